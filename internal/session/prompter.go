package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrPrompterClosed is returned by Prompt after Close.
var ErrPrompterClosed = errors.New("prompter closed")

// Prompter reads one line of user input per prompt. Prompt returns ctx.Err()
// as soon as ctx is done, even while waiting for input.
type Prompter interface {
	Prompt(ctx context.Context, promptText string) (string, error)
	Close() error
}

type lineResult struct {
	line string
	err  error
}

// LineReader reads lines from one input in the background. A read abandoned
// on cancellation is handed to the next ReadLine call, so no line is lost.
type LineReader struct {
	in      *bufio.Reader
	mu      sync.Mutex
	pending chan lineResult
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{in: bufio.NewReader(r)}
}

// ReadLine returns the next line including its terminator, or ctx.Err().
func (l *LineReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	ch := l.pending
	if ch == nil {
		ch = make(chan lineResult, 1)
		l.pending = ch
		go func() {
			line, err := l.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
	}
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		l.mu.Lock()
		if l.pending == ch {
			l.pending = nil
		}
		l.mu.Unlock()
		return res.line, res.err
	}
}

// Terminal is a line-oriented Prompter. Several Terminals may share one
// LineReader so input buffered by one stretch is not lost to the next.
type Terminal struct {
	in     *LineReader
	out    io.Writer
	mu     sync.Mutex
	closed bool
}

func NewTerminal(in *LineReader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// Prompt writes promptText and waits until a full line (or EOF) arrives or
// ctx is done. The trailing newline is stripped; a final unterminated line is
// returned with a nil error and the following call reports io.EOF.
func (t *Terminal) Prompt(ctx context.Context, promptText string) (string, error) {
	if t.isClosed() {
		return "", ErrPrompterClosed
	}
	if _, err := io.WriteString(t.out, promptText); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	line, err := t.in.ReadLine(ctx)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close releases the terminal. It is safe to call more than once, also while
// a Prompt is waiting.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
