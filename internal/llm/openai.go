package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/openai/openai-go/v3/responses"
)

// OpenAIClient calls the OpenAI Responses API.
type OpenAIClient struct {
	model   string
	timeout time.Duration
	client  *openai.Client
}

// OpenAIOptions tunes the client. Zero values fall back to defaults.
type OpenAIOptions struct {
	BaseURL string
	Timeout time.Duration
}

const (
	defaultModel          = "gpt-4o"
	defaultRequestTimeout = 60 * time.Second

	eventOutputTextDelta = "response.output_text.delta"
	eventError           = "error"
	eventResponseFailed  = "response.failed"
)

// NewOpenAIClient builds a client against api.openai.com or opts.BaseURL.
func NewOpenAIClient(apiKey, model string, opts OpenAIOptions) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	return &OpenAIClient{
		model:   model,
		timeout: opts.Timeout,
		client:  &cli,
	}, nil
}

// Model returns the model every request is sent to.
func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqCtx, span := startSpan(reqCtx, "complete", c.model, req)
	resp, err := c.client.Responses.New(reqCtx, c.params(req))
	if err != nil {
		span.end(err)
		return "", err
	}
	text := resp.OutputText()
	span.addOutput(len(text))
	span.end(nil)
	return text, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req Request) (Stream, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	reqCtx, span := startSpan(reqCtx, "stream", c.model, req)

	raw := c.client.Responses.NewStreaming(reqCtx, c.params(req))
	if err := raw.Err(); err != nil {
		span.end(err)
		cancel()
		_ = raw.Close()
		return nil, err
	}
	return &openaiStream{raw: raw, cancel: cancel, span: span}, nil
}

func (c *OpenAIClient) params(req Request) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Input),
		},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(req.MaxOutputTokens)
	}
	return params
}

// openaiStream adapts the SSE event stream of the Responses API to Stream.
type openaiStream struct {
	raw    *ssestream.Stream[responses.ResponseStreamEventUnion]
	cancel context.CancelFunc
	span   *genSpan
	cur    Chunk
	err    error
	once   sync.Once
}

func (s *openaiStream) Next() bool {
	if s.err != nil || !s.raw.Next() {
		return false
	}
	ev := s.raw.Current()
	switch ev.Type {
	case eventOutputTextDelta:
		s.cur = Chunk{Kind: ChunkTextDelta, Text: ev.Delta, Type: ev.Type}
		s.span.addOutput(len(ev.Delta))
	case eventError:
		s.err = fmt.Errorf("openai stream error %s: %s", ev.Code, ev.Message)
		return false
	case eventResponseFailed:
		s.err = fmt.Errorf("openai response failed: %s", ev.Response.Error.Message)
		return false
	default:
		s.cur = Chunk{Kind: ChunkOther, Type: ev.Type}
	}
	return true
}

func (s *openaiStream) Current() Chunk { return s.cur }

func (s *openaiStream) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.raw.Err()
}

func (s *openaiStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.raw.Close()
		s.span.end(s.Err())
		s.cancel()
	})
	return err
}
