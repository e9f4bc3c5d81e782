package termui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStylesRenderPlainForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	s := NewStyles(&buf, DefaultTheme)

	assert.Equal(t, "--- BLOG OUTLINE (streaming) ---", s.Heading.Render("--- BLOG OUTLINE (streaming) ---"))
	assert.Equal(t, "Assistant:", s.Label.Render("Assistant:"))
}

func TestPlain(t *testing.T) {
	s := Plain()
	assert.Equal(t, "Goodbye.", s.Help.Render("Goodbye."))
	assert.Equal(t, "oops", s.Error.Render("oops"))
}
