package studio

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"topic-studio/internal/llm"
)

// groundedStub answers only with sentences found in the CONTEXT block and
// refuses otherwise, the way a compliant model is instructed to behave.
type groundedStub struct{}

var stubStopwords = map[string]bool{"what": true, "does": true, "which": true, "where": true, "when": true, "about": true, "with": true}

func (groundedStub) Complete(_ context.Context, req llm.Request) (string, error) {
	body := strings.TrimPrefix(req.Input, "CONTEXT:\n")
	contextText, rest, ok := strings.Cut(body, "\n\nQUESTION:\n")
	if !ok {
		return "", errors.New("malformed prompt")
	}
	question, _, _ := strings.Cut(rest, "\n\nANSWER:")

	var sentences []string
	for _, line := range strings.Split(contextText, "\n") {
		for _, s := range strings.SplitAfter(line, ". ") {
			if s = strings.TrimSpace(s); s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	for _, word := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if len(word) < 4 || stubStopwords[word] {
			continue
		}
		for _, s := range sentences {
			if strings.Contains(strings.ToLower(s), word) {
				return " " + s + " ", nil
			}
		}
	}
	return RefusalAnswer, nil
}

func (groundedStub) Stream(context.Context, llm.Request) (llm.Stream, error) {
	return nil, errors.New("not supported")
}

func compostingContext() string {
	return BuildContext("composting", "1. Intro\n2. Benefits\n3. Steps",
		"Composting recycles organic waste. It enriches soil naturally.")
}

func TestGroundedAnswererRequest(t *testing.T) {
	client := new(llm.MockClient)
	ctxText := compostingContext()
	client.On("Complete", mock.Anything, llm.Request{
		Instructions:    `You answer questions using ONLY the provided context. If the answer is not clearly supported by the context, say: "I don't have that information in the outline/summary." Be concise and helpful.`,
		Input:           "CONTEXT:\n" + ctxText + "\n\nQUESTION:\nWhat is step 3?\n\nANSWER:",
		MaxOutputTokens: DefaultAnswerMaxTokens,
	}).Return("\nSteps.\n", nil).Once()

	got, err := NewGroundedAnswerer(client, 0).Answer(context.Background(), ctxText, "  What is step 3?  ")

	require.NoError(t, err)
	assert.Equal(t, "Steps.", got)
	client.AssertExpectations(t)
}

func TestGroundedAnswererWithCompliantModel(t *testing.T) {
	answerer := NewGroundedAnswerer(groundedStub{}, 0)
	ctxText := compostingContext()

	got, err := answerer.Answer(context.Background(), ctxText, "What does it do to soil?")
	require.NoError(t, err)
	assert.Contains(t, got, "enriches soil")

	got, err = answerer.Answer(context.Background(), ctxText, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, RefusalAnswer, got)
}

func TestGroundedAnswererUnrelatedContext(t *testing.T) {
	ctxText := BuildContext("knitting", "1. Yarn\n2. Needles", "Knitting uses yarn. Needles come in sizes.")

	got, err := NewGroundedAnswerer(groundedStub{}, 0).Answer(context.Background(), ctxText, "How fast is a cheetah?")

	require.NoError(t, err)
	assert.Equal(t, "I don't have that information in the outline/summary.", got)
}

func TestGroundedAnswererErrors(t *testing.T) {
	t.Run("blank question", func(t *testing.T) {
		client := new(llm.MockClient)
		_, err := NewGroundedAnswerer(client, 0).Answer(context.Background(), "ctx", "  ")
		assert.ErrorIs(t, err, ErrEmptyQuestion)
		client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("request failure", func(t *testing.T) {
		client := new(llm.MockClient)
		boom := errors.New("timeout")
		client.On("Complete", mock.Anything, mock.Anything).Return("", boom).Once()

		_, err := NewGroundedAnswerer(client, 0).Answer(context.Background(), "ctx", "why?")

		assert.ErrorIs(t, err, boom)
		var genErr *GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, StageAnswer, genErr.Stage)
		assert.Equal(t, "answer generation failed: timeout", err.Error())
	})
}
