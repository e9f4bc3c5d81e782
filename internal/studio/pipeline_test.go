package studio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"topic-studio/internal/llm"
)

func newTestPipeline(client llm.Client) *Pipeline {
	return NewPipeline(NewOutlineStreamer(client, 0, nil), NewSummarizer(client, 0), nil)
}

func TestPipelinePrepareComposting(t *testing.T) {
	client := new(llm.MockClient)
	stream := llm.NewSliceStream([]llm.Chunk{
		{Kind: llm.ChunkOther, Type: "response.created"},
		llm.TextDelta("1. Intro\n"),
		llm.TextDelta("2. Benefits\n"),
		llm.TextDelta("3. Steps"),
		{Kind: llm.ChunkOther, Type: "response.completed"},
	}, nil)
	outline := "1. Intro\n2. Benefits\n3. Steps"
	summary := "Composting recycles organic waste. It enriches soil naturally."

	var events []string
	client.On("Stream", mock.Anything, outlineRequest("composting", DefaultOutlineMaxTokens)).
		Run(func(mock.Arguments) { events = append(events, "stream") }).
		Return(stream, nil).Once()
	client.On("Complete", mock.Anything, summaryRequest(outline, DefaultSummaryMaxTokens)).
		Run(func(mock.Arguments) {
			// the outline stream must be exhausted and closed before summarizing
			assert.Equal(t, 1, stream.Closed())
			events = append(events, "summary")
		}).
		Return(summary+"\n", nil).Once()

	var sink bytes.Buffer
	res, err := newTestPipeline(client).Prepare(context.Background(), "  composting ", &sink, Hooks{
		OutlineStart: func() { events = append(events, "start") },
		OutlineDone:  func() { events = append(events, "done") },
	})

	require.NoError(t, err)
	assert.Equal(t, "composting", res.Topic)
	assert.Equal(t, outline, res.Outline)
	assert.Equal(t, summary, res.Summary)
	assert.Equal(t, outline, sink.String())
	assert.Contains(t, res.Context, "TOPIC:\ncomposting")
	assert.Contains(t, res.Context, "SUMMARY:\nComposting recycles organic waste. It enriches soil naturally.")
	assert.Equal(t, BuildContext(res.Topic, res.Outline, res.Summary), res.Context)
	assert.Equal(t, []string{"start", "stream", "done", "summary"}, events)
	client.AssertExpectations(t)

	answerer := NewGroundedAnswerer(groundedStub{}, 0)
	got, err := answerer.Answer(context.Background(), res.Context, "What does it do to soil?")
	require.NoError(t, err)
	assert.True(t, strings.Contains(got, "enriches soil"), "got %q", got)

	got, err = answerer.Answer(context.Background(), res.Context, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, RefusalAnswer, got)
}

func TestPipelinePrepareBlankTopic(t *testing.T) {
	client := new(llm.MockClient)

	_, err := newTestPipeline(client).Prepare(context.Background(), "   ", nil, Hooks{})

	assert.ErrorIs(t, err, ErrEmptyTopic)
	client.AssertNotCalled(t, "Stream", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestPipelinePrepareOutlineFailureStopsBeforeSummary(t *testing.T) {
	client := new(llm.MockClient)
	boom := errors.New("stream aborted")
	client.On("Stream", mock.Anything, mock.Anything).
		Return(llm.NewSliceStream([]llm.Chunk{llm.TextDelta("1.")}, boom), nil).Once()

	res, err := newTestPipeline(client).Prepare(context.Background(), "composting", nil, Hooks{})

	assert.ErrorIs(t, err, boom)
	assert.True(t, IsGenerationFailure(err))
	assert.Equal(t, Result{}, res)
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestPipelinePrepareSummaryFailure(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Stream", mock.Anything, mock.Anything).
		Return(llm.NewSliceStream([]llm.Chunk{llm.TextDelta("1. Intro")}, nil), nil).Once()
	client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	res, err := newTestPipeline(client).Prepare(context.Background(), "composting", nil, Hooks{})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, StageSummary, genErr.Stage)
	assert.Equal(t, Result{}, res)
	client.AssertExpectations(t)
}
