package studio

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Result holds the artifacts of one topic. It is never mutated after Prepare.
type Result struct {
	Topic   string
	Outline string
	Summary string
	Context string
}

// Hooks lets a caller render stage boundaries around the live outline.
type Hooks struct {
	OutlineStart func()
	OutlineDone  func()
}

// Pipeline runs outline → summary → context strictly in sequence.
type Pipeline struct {
	outline    *OutlineStreamer
	summarizer *Summarizer
	log        *slog.Logger
}

func NewPipeline(outline *OutlineStreamer, summarizer *Summarizer, log *slog.Logger) *Pipeline {
	return &Pipeline{outline: outline, summarizer: summarizer, log: orDiscard(log)}
}

// Prepare validates topic and produces the outline, summary and grounding
// context. A blank topic fails before any request is made.
func (p *Pipeline) Prepare(ctx context.Context, topic string, sink io.Writer, hooks Hooks) (Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{}, ErrEmptyTopic
	}
	log := p.log.With("topic", topic)

	log.Info("generating outline", "stage", StageOutline)
	if hooks.OutlineStart != nil {
		hooks.OutlineStart()
	}
	outline, err := p.outline.Run(ctx, topic, sink)
	if err != nil {
		log.Error("outline stage failed", "err", err)
		return Result{}, err
	}
	if hooks.OutlineDone != nil {
		hooks.OutlineDone()
	}

	log.Info("summarizing outline", "stage", StageSummary, "outline_bytes", len(outline))
	summary, err := p.summarizer.Run(ctx, outline)
	if err != nil {
		log.Error("summary stage failed", "err", err)
		return Result{}, err
	}

	return Result{
		Topic:   topic,
		Outline: outline,
		Summary: summary,
		Context: BuildContext(topic, outline, summary),
	}, nil
}
