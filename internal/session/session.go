package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"topic-studio/internal/termui"
)

// State is a position in the question loop.
type State int

const (
	StateAwaitingQuestion State = iota
	StateAnswering
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingQuestion:
		return "awaiting-question"
	case StateAnswering:
		return "answering"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	QuestionPrompt = "You: "
	Farewell       = "Goodbye."
)

// Answerer answers one question against the session context.
type Answerer interface {
	Answer(ctx context.Context, contextText, question string) (string, error)
}

// Recorder receives every answered exchange. It is optional.
type Recorder interface {
	RecordExchange(ctx context.Context, question, answer string) error
}

// Session drives the read-question / answer / print loop over a fixed,
// read-only context.
type Session struct {
	answerer Answerer
	context  string
	out      io.Writer
	styles   termui.Styles
	log      *slog.Logger
	recorder Recorder
	state    State
}

// Option customizes a Session.
type Option func(*Session)

func WithStyles(s termui.Styles) Option { return func(sess *Session) { sess.styles = s } }

func WithLogger(log *slog.Logger) Option { return func(sess *Session) { sess.log = log } }

func WithRecorder(r Recorder) Option { return func(sess *Session) { sess.recorder = r } }

func New(answerer Answerer, contextText string, out io.Writer, opts ...Option) *Session {
	s := &Session{
		answerer: answerer,
		context:  contextText,
		out:      out,
		styles:   termui.Plain(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:    StateAwaitingQuestion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current loop state.
func (s *Session) State() State { return s.state }

// Run loops until the user types exit/quit, input ends, ctx is done or
// answering fails. p is closed exactly once on every return path. An
// answering failure or ctx.Err() is returned as is and ends the session.
func (s *Session) Run(ctx context.Context, p Prompter) (err error) {
	defer func() {
		s.state = StateClosed
		if cerr := p.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close prompter: %w", cerr)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.state = StateAwaitingQuestion
		line, err := p.Prompt(ctx, QuestionPrompt)
		if errors.Is(err, io.EOF) {
			s.println(s.styles.Help.Render(Farewell))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if isExit(question) {
			s.println(s.styles.Help.Render(Farewell))
			return nil
		}

		s.state = StateAnswering
		answer, err := s.answerer.Answer(ctx, s.context, question)
		if err != nil {
			s.log.Error("answer failed", "err", err)
			return err
		}
		fmt.Fprintf(s.out, "\n%s %s\n\n", s.styles.Label.Render("Assistant:"), answer)

		if s.recorder != nil {
			if err := s.recorder.RecordExchange(ctx, question, answer); err != nil {
				s.log.Warn("failed to record exchange", "err", err)
			}
		}
	}
}

func (s *Session) println(text string) {
	fmt.Fprintln(s.out, text)
}

func isExit(input string) bool {
	return strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit")
}
