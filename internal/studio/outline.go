package studio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"topic-studio/internal/llm"
)

const (
	strategistPersona       = "You are an expert content strategist."
	DefaultOutlineMaxTokens = 300
)

// OutlineStreamer opens a streaming outline request and reduces the deltas
// into the final outline while forwarding each one to a live sink.
type OutlineStreamer struct {
	client    llm.Client
	maxTokens int64
	log       *slog.Logger
}

func NewOutlineStreamer(client llm.Client, maxTokens int64, log *slog.Logger) *OutlineStreamer {
	if maxTokens <= 0 {
		maxTokens = DefaultOutlineMaxTokens
	}
	return &OutlineStreamer{client: client, maxTokens: maxTokens, log: orDiscard(log)}
}

func outlineRequest(topic string, maxTokens int64) llm.Request {
	return llm.Request{
		Instructions:    strategistPersona,
		Input:           fmt.Sprintf("Create a detailed blog post outline about: \"%s\"", topic),
		MaxOutputTokens: maxTokens,
	}
}

// Run streams the outline for topic. Deltas are appended and written to sink
// strictly in arrival order. On any failure the partial outline is dropped.
func (s *OutlineStreamer) Run(ctx context.Context, topic string, sink io.Writer) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	if sink == nil {
		sink = io.Discard
	}

	stream, err := s.client.Stream(ctx, outlineRequest(topic, s.maxTokens))
	if err != nil {
		return "", generationError(StageOutline, err)
	}
	defer stream.Close()

	var (
		buf    strings.Builder
		deltas int
	)
	for stream.Next() {
		chunk := stream.Current()
		switch chunk.Kind {
		case llm.ChunkTextDelta:
			buf.WriteString(chunk.Text)
			deltas++
			if _, err := io.WriteString(sink, chunk.Text); err != nil {
				return "", generationError(StageOutline, fmt.Errorf("write live output: %w", err))
			}
		default:
			s.log.Debug("ignoring stream event", "stage", StageOutline, "type", chunk.Type)
		}
	}
	if err := stream.Err(); err != nil {
		return "", generationError(StageOutline, err)
	}
	s.log.Debug("outline stream complete", "deltas", deltas, "bytes", buf.Len())
	return buf.String(), nil
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return log
}
