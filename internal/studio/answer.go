package studio

import (
	"context"
	"fmt"
	"strings"

	"topic-studio/internal/llm"
)

const (
	DefaultAnswerMaxTokens = 200

	// RefusalAnswer is what the model is told to say when the context does
	// not support an answer.
	RefusalAnswer = "I don't have that information in the outline/summary."
)

var groundingInstructions = "You answer questions using ONLY the provided context. " +
	"If the answer is not clearly supported by the context, say: " +
	`"` + RefusalAnswer + `" ` +
	"Be concise and helpful."

// Answerer answers a follow-up question against a grounding context.
type Answerer interface {
	Answer(ctx context.Context, contextText, question string) (string, error)
}

// GroundedAnswerer restricts the model to the supplied context by
// instruction. It does not verify the answer against the context.
type GroundedAnswerer struct {
	client    llm.Client
	maxTokens int64
}

func NewGroundedAnswerer(client llm.Client, maxTokens int64) *GroundedAnswerer {
	if maxTokens <= 0 {
		maxTokens = DefaultAnswerMaxTokens
	}
	return &GroundedAnswerer{client: client, maxTokens: maxTokens}
}

func answerRequest(contextText, question string, maxTokens int64) llm.Request {
	return llm.Request{
		Instructions:    groundingInstructions,
		Input:           fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION:\n%s\n\nANSWER:", contextText, question),
		MaxOutputTokens: maxTokens,
	}
}

func (a *GroundedAnswerer) Answer(ctx context.Context, contextText, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	text, err := a.client.Complete(ctx, answerRequest(contextText, question, a.maxTokens))
	if err != nil {
		return "", generationError(StageAnswer, err)
	}
	return strings.TrimSpace(text), nil
}
