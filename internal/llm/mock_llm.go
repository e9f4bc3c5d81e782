package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Stream(ctx context.Context, req Request) (Stream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Stream), args.Error(1)
}

// SliceStream replays a fixed list of chunks, then reports err (if any) the
// way ssestream does: only after iteration has ended.
type SliceStream struct {
	chunks []Chunk
	err    error
	pos    int
	cur    Chunk
	done   bool
	closes int
}

// NewSliceStream returns a stream over chunks that fails with err once they are exhausted.
func NewSliceStream(chunks []Chunk, err error) *SliceStream {
	return &SliceStream{chunks: chunks, err: err}
}

func (s *SliceStream) Next() bool {
	if s.closes > 0 || s.pos >= len(s.chunks) {
		s.done = true
		return false
	}
	s.cur = s.chunks[s.pos]
	s.pos++
	return true
}

func (s *SliceStream) Current() Chunk { return s.cur }

// Err reports the configured error once Next has returned false.
func (s *SliceStream) Err() error {
	if s.done {
		return s.err
	}
	return nil
}

func (s *SliceStream) Close() error {
	s.closes++
	return nil
}

// Closed reports how many times Close was called.
func (s *SliceStream) Closed() int { return s.closes }
