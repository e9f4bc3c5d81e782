package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// scriptedPrompter feeds fixed lines and then io.EOF.
type scriptedPrompter struct {
	lines   []string
	prompts []string
	closes  int
	err     error
}

func (p *scriptedPrompter) Prompt(_ context.Context, promptText string) (string, error) {
	p.prompts = append(p.prompts, promptText)
	if len(p.lines) == 0 {
		if p.err != nil {
			return "", p.err
		}
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptedPrompter) Close() error {
	p.closes++
	return nil
}

type mockAnswerer struct {
	mock.Mock
}

func (m *mockAnswerer) Answer(ctx context.Context, contextText, question string) (string, error) {
	args := m.Called(ctx, contextText, question)
	return args.String(0), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordExchange(ctx context.Context, question, answer string) error {
	args := m.Called(ctx, question, answer)
	return args.Error(0)
}

const testContext = "TOPIC:\ncomposting\n\nOUTLINE:\n1. Intro\n\nSUMMARY:\nIt enriches soil.\n"

func TestSessionExitCommands(t *testing.T) {
	for _, cmd := range []string{"EXIT", "exit", "Quit", "quit", "  exit  "} {
		t.Run(cmd, func(t *testing.T) {
			answerer := new(mockAnswerer)
			p := &scriptedPrompter{lines: []string{cmd, "never read"}}
			var out bytes.Buffer

			s := New(answerer, testContext, &out)
			err := s.Run(context.Background(), p)

			require.NoError(t, err)
			assert.Equal(t, StateClosed, s.State())
			assert.Equal(t, 1, p.closes)
			assert.Equal(t, []string{QuestionPrompt}, p.prompts)
			assert.Contains(t, out.String(), Farewell)
			answerer.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSessionEmptyLinesReprompt(t *testing.T) {
	answerer := new(mockAnswerer)
	p := &scriptedPrompter{lines: []string{"", "   ", "\t", "quit"}}
	var out bytes.Buffer

	err := New(answerer, testContext, &out).Run(context.Background(), p)

	require.NoError(t, err)
	assert.Len(t, p.prompts, 4)
	assert.NotContains(t, out.String(), "Assistant:")
	assert.Equal(t, 1, p.closes)
	answerer.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionAnswersQuestions(t *testing.T) {
	answerer := new(mockAnswerer)
	recorder := new(mockRecorder)
	answerer.On("Answer", mock.Anything, testContext, "What does it do to soil?").
		Return("It enriches soil.", nil).Once()
	answerer.On("Answer", mock.Anything, testContext, "What is the capital of France?").
		Return("I don't have that information in the outline/summary.", nil).Once()
	recorder.On("RecordExchange", mock.Anything, "What does it do to soil?", "It enriches soil.").Return(nil).Once()
	recorder.On("RecordExchange", mock.Anything, "What is the capital of France?", mock.Anything).
		Return(errors.New("db down")).Once()

	p := &scriptedPrompter{lines: []string{"  What does it do to soil?  ", "What is the capital of France?", "exit"}}
	var out bytes.Buffer

	s := New(answerer, testContext, &out, WithRecorder(recorder))
	err := s.Run(context.Background(), p)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Assistant: It enriches soil.")
	assert.Contains(t, out.String(), "Assistant: I don't have that information in the outline/summary.")
	assert.True(t, strings.HasSuffix(out.String(), Farewell+"\n"))
	assert.Equal(t, 1, p.closes)
	answerer.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestSessionAnswerFailureEndsSession(t *testing.T) {
	answerer := new(mockAnswerer)
	boom := errors.New("generation failed")
	answerer.On("Answer", mock.Anything, testContext, "why?").Return("", boom).Once()

	p := &scriptedPrompter{lines: []string{"why?", "second question"}}
	var out bytes.Buffer

	s := New(answerer, testContext, &out)
	err := s.Run(context.Background(), p)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 1, p.closes)
	assert.Len(t, p.prompts, 1)
	assert.NotContains(t, out.String(), Farewell)
	answerer.AssertExpectations(t)
}

func TestSessionEndOfInputCloses(t *testing.T) {
	p := &scriptedPrompter{}
	var out bytes.Buffer

	err := New(new(mockAnswerer), testContext, &out).Run(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, 1, p.closes)
	assert.Contains(t, out.String(), Farewell)
}

func TestSessionReadFailure(t *testing.T) {
	readErr := errors.New("tty gone")
	p := &scriptedPrompter{err: readErr}

	err := New(new(mockAnswerer), testContext, io.Discard).Run(context.Background(), p)

	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, 1, p.closes)
}

func TestSessionCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &scriptedPrompter{lines: []string{"question"}}

	err := New(new(mockAnswerer), testContext, io.Discard).Run(ctx, p)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.prompts)
	assert.Equal(t, 1, p.closes)
}

func TestSessionOverTerminal(t *testing.T) {
	answerer := new(mockAnswerer)
	answerer.On("Answer", mock.Anything, testContext, "soil?").Return("Richer soil.", nil).Once()

	var out bytes.Buffer
	term := NewTerminal(NewLineReader(strings.NewReader("\nsoil?\nQUIT\n")), &out)

	err := New(answerer, testContext, &out).Run(context.Background(), term)

	require.NoError(t, err)
	assert.Equal(t, "You: You: \nAssistant: Richer soil.\n\nYou: Goodbye.\n", out.String())
	_, err = term.Prompt(context.Background(), QuestionPrompt)
	assert.ErrorIs(t, err, ErrPrompterClosed)
}

func TestSessionInterruptWhileWaitingForQuestion(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := NewTerminal(NewLineReader(pr), io.Discard)
	answerer := new(mockAnswerer)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(answerer, testContext, io.Discard)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, term) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run still waiting for a question after cancel")
	}
	assert.Equal(t, StateClosed, s.State())
	_, err := term.Prompt(context.Background(), QuestionPrompt)
	assert.ErrorIs(t, err, ErrPrompterClosed)
	answerer.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-question", StateAwaitingQuestion.String())
	assert.Equal(t, "answering", StateAnswering.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
