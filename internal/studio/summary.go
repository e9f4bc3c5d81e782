package studio

import (
	"context"
	"fmt"
	"strings"

	"topic-studio/internal/llm"
)

const DefaultSummaryMaxTokens = 120

// Summarizer condenses an outline into two sentences. The sentence count is
// only requested from the model, never checked here.
type Summarizer struct {
	client    llm.Client
	maxTokens int64
}

func NewSummarizer(client llm.Client, maxTokens int64) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = DefaultSummaryMaxTokens
	}
	return &Summarizer{client: client, maxTokens: maxTokens}
}

func summaryRequest(outline string, maxTokens int64) llm.Request {
	return llm.Request{
		Instructions:    strategistPersona,
		Input:           fmt.Sprintf("Summarize the following blog outline in exactly 2 sentences:\n\n%s", outline),
		MaxOutputTokens: maxTokens,
	}
}

func (s *Summarizer) Run(ctx context.Context, outline string) (string, error) {
	if strings.TrimSpace(outline) == "" {
		return "", ErrEmptyOutline
	}
	text, err := s.client.Complete(ctx, summaryRequest(outline, s.maxTokens))
	if err != nil {
		return "", generationError(StageSummary, err)
	}
	return strings.TrimSpace(text), nil
}
