package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"topic-studio/internal/app"
	"topic-studio/internal/config"
	"topic-studio/internal/session"
	"topic-studio/internal/store"
	"topic-studio/internal/studio"
	"topic-studio/internal/termui"
)

const (
	topicPrompt     = "Enter a topic: "
	emptyTopicMsg   = "Topic cannot be empty. Please run again."
	outlineHeading  = "--- BLOG OUTLINE (streaming) ---"
	streamDone      = "--- Stream complete ---"
	summaryHeading  = "--- 2-SENTENCE SUMMARY ---"
	followUpHeading = "--- FOLLOW-UP Q&A ---"
	followUpHelp    = `Ask a question about the topic. Type "exit" to quit.`
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		model string
		noQA  bool
	)
	cmd := &cobra.Command{
		Use:           "studio [topic]",
		Short:         "Stream a blog outline for a topic, summarize it and answer follow-up questions",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			errOut := cmd.ErrOrStderr()
			deps, err := app.BuildCLI(errOut, func(c *config.Config) {
				if model != "" {
					c.LLMModel = model
				}
			})
			if err != nil {
				fmt.Fprintln(errOut, termui.NewStyles(errOut, termui.DefaultTheme).Error.Render("Error: "+err.Error()))
				return err
			}
			defer deps.Close()

			r := &runner{
				pipeline:  deps.Pipeline(),
				answerer:  deps.Answerer(),
				store:     deps.Store,
				log:       deps.Log,
				in:        session.NewLineReader(cmd.InOrStdin()),
				out:       cmd.OutOrStdout(),
				errOut:    errOut,
				styles:    termui.NewStyles(cmd.OutOrStdout(), termui.DefaultTheme),
				errStyles: termui.NewStyles(errOut, termui.DefaultTheme),
				noQA:      noQA,
			}
			var topic string
			if len(args) == 1 {
				topic = args[0]
			}
			return r.run(cmd.Context(), topic)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model to generate with (overrides LLM_MODEL)")
	cmd.Flags().BoolVar(&noQA, "no-qa", false, "stop after the summary instead of starting the Q&A session")
	return cmd
}

// runner holds one CLI invocation. store is nil when persistence is off.
type runner struct {
	pipeline  *studio.Pipeline
	answerer  studio.Answerer
	store     store.Store
	log       *slog.Logger
	in        *session.LineReader
	out       io.Writer
	errOut    io.Writer
	styles    termui.Styles
	errStyles termui.Styles
	noQA      bool
}

func (r *runner) run(ctx context.Context, topic string) error {
	topic, err := r.captureTopic(ctx, topic)
	if err != nil {
		return r.fail(err)
	}
	if topic == "" {
		fmt.Fprintln(r.out, emptyTopicMsg)
		return studio.ErrEmptyTopic
	}
	fmt.Fprintln(r.out, "✅ Topic captured:", topic)

	saved := r.createSession(ctx, topic)

	res, err := r.pipeline.Prepare(ctx, topic, r.out, studio.Hooks{
		OutlineStart: func() { fmt.Fprintf(r.out, "\n%s\n\n", r.styles.Heading.Render(outlineHeading)) },
		OutlineDone:  func() { fmt.Fprintf(r.out, "\n\n%s\n", r.styles.Help.Render(streamDone)) },
	})
	if err != nil {
		r.markFailed(ctx, saved, err)
		return r.fail(err)
	}
	r.saveArtifacts(ctx, saved, res)

	fmt.Fprintf(r.out, "\n%s\n\n%s\n", r.styles.Heading.Render(summaryHeading), res.Summary)
	if r.noQA {
		return nil
	}

	fmt.Fprintf(r.out, "\n%s\n%s\n\n", r.styles.Heading.Render(followUpHeading), r.styles.Help.Render(followUpHelp))
	opts := []session.Option{session.WithStyles(r.styles), session.WithLogger(r.log)}
	if saved != nil {
		opts = append(opts, session.WithRecorder(store.SessionRecorder{Store: r.store, SessionID: saved.ID}))
	}
	sess := session.New(r.answerer, res.Context, r.out, opts...)
	if err := sess.Run(ctx, session.NewTerminal(r.in, r.out)); err != nil {
		return r.fail(err)
	}
	return nil
}

// captureTopic prompts for a topic when none was passed. The terminal is
// released before generation starts.
func (r *runner) captureTopic(ctx context.Context, topic string) (string, error) {
	if strings.TrimSpace(topic) != "" {
		return strings.TrimSpace(topic), nil
	}
	term := session.NewTerminal(r.in, r.out)
	defer term.Close()
	line, err := term.Prompt(ctx, topicPrompt)
	if errors.Is(err, context.Canceled) {
		return "", err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read topic: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// fail reports err on stderr. An interrupt only ends the current line.
func (r *runner) fail(err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(r.out)
		return err
	}
	fmt.Fprintln(r.errOut, r.errStyles.Error.Render("Error: "+err.Error()))
	return err
}

// Persistence is best effort in the CLI: a store failure is logged and the
// run goes on without it.
func (r *runner) createSession(ctx context.Context, topic string) *store.Session {
	if r.store == nil {
		return nil
	}
	s, err := r.store.CreateSession(ctx, topic)
	if err != nil {
		r.log.Warn("failed to persist session, continuing without it", "err", err)
		return nil
	}
	return &s
}

func (r *runner) saveArtifacts(ctx context.Context, saved *store.Session, res studio.Result) {
	if saved == nil {
		return
	}
	if err := r.store.SaveArtifacts(ctx, saved.ID, res.Outline, res.Summary); err != nil {
		r.log.Warn("failed to save artifacts", "session_id", saved.ID, "err", err)
	}
}

func (r *runner) markFailed(ctx context.Context, saved *store.Session, cause error) {
	if saved == nil {
		return
	}
	if err := r.store.MarkFailed(context.WithoutCancel(ctx), saved.ID, cause.Error()); err != nil {
		r.log.Warn("failed to mark session failed", "session_id", saved.ID, "err", err)
	}
}
