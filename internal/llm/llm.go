package llm

import "context"

// Request is the provider-neutral shape of a single generation call.
type Request struct {
	Instructions    string
	Input           string
	MaxOutputTokens int64
}

// ChunkKind tags a streamed chunk.
type ChunkKind int

const (
	// ChunkOther covers every event that carries no output text.
	ChunkOther ChunkKind = iota
	// ChunkTextDelta carries an incremental piece of output text.
	ChunkTextDelta
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkTextDelta:
		return "text-delta"
	default:
		return "other"
	}
}

// Chunk is one unit of a streaming response. Text is only meaningful for
// ChunkTextDelta; Type keeps the provider's raw event name for logging.
type Chunk struct {
	Kind ChunkKind
	Text string
	Type string
}

// TextDelta builds a text-delta chunk.
func TextDelta(text string) Chunk {
	return Chunk{Kind: ChunkTextDelta, Text: text}
}

// Stream is a lazy, finite, non-restartable sequence of chunks.
// Callers iterate with Next/Current, check Err once Next returns false and
// always Close.
type Stream interface {
	Next() bool
	Current() Chunk
	Err() error
	Close() error
}

// Client is the generation capability every pipeline stage is built on.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (Stream, error)
}
