package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"subgen/internal/logging"
	"subgen/internal/services"
)

type lineResult struct {
	text string
	err  error
}

// Console reads lines from an input stream and writes prompts to an output
// stream. A single background reader owns the input so a cancelled read never
// swallows the next line.
type Console struct {
	in       io.Reader
	out      io.Writer
	logger   *slog.Logger
	observer func(State)

	once  sync.Once
	lines chan lineResult
	mu    sync.Mutex
	err   error
}

// Option customizes a Console.
type Option func(*Console)

// WithLogger attaches a logger used for selection debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) { c.logger = logging.NewComponentLogger(logger, "prompt") }
}

// WithObserver registers a callback invoked on every selection state change.
func WithObserver(fn func(State)) Option {
	return func(c *Console) { c.observer = fn }
}

// NewConsole builds a console over in and out.
func NewConsole(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{in: in, out: out, logger: logging.NewNop(), lines: make(chan lineResult)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Out returns the writer prompts are printed to.
func (c *Console) Out() io.Writer {
	return c.out
}

func (c *Console) start() {
	go func() {
		reader := bufio.NewReader(c.in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				c.lines <- lineResult{text: strings.TrimRight(line, "\r\n")}
			}
			if err != nil {
				c.lines <- lineResult{err: err}
				return
			}
		}
	}()
}

// ReadLine prints prompt and returns the next input line without its line
// terminator. It returns io.EOF once input is exhausted and ctx.Err() when the
// context ends first.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	sticky := c.err
	c.mu.Unlock()
	if sticky != nil {
		return "", sticky
	}

	c.once.Do(c.start)
	if prompt != "" {
		fmt.Fprint(c.out, prompt)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-c.lines:
		if result.err != nil {
			c.mu.Lock()
			c.err = result.err
			c.mu.Unlock()
			return "", result.err
		}
		return result.text, nil
	}
}

// Choose lists options and loops until the user enters a valid 1-based number.
// It returns the chosen 0-based index, or an error wrapping
// services.ErrSelectionAborted when input ends, the user quits, or ctx is done.
func (c *Console) Choose(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("prompt: no options to choose from")
	}

	if title != "" {
		fmt.Fprintln(c.out, title)
	}
	rows := make([][]string, len(options))
	for i, option := range options {
		rows[i] = []string{strconv.Itoa(i + 1), option}
	}
	fmt.Fprintln(c.out, RenderTable([]string{"#", "File"}, rows, []Alignment{AlignRight, AlignLeft}))

	question := fmt.Sprintf("Enter the number of the video file you want to use (1-%d, q to cancel): ", len(options))
	for {
		c.transition(AwaitingInput)
		line, err := c.ReadLine(ctx, question)
		if err != nil {
			c.transition(Cancelled)
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out)
				return -1, services.Wrap(services.ErrSelectionAborted, "resolving", "select", "input closed", nil)
			}
			return -1, services.Wrap(services.ErrSelectionAborted, "resolving", "select", "", err)
		}

		c.transition(Validating)
		state, index := Evaluate(line, len(options))
		c.transition(state)
		switch state {
		case Accepted:
			c.logger.Debug("selection accepted", logging.Int("choice", index+1), logging.String("file", options[index]))
			return index, nil
		case Cancelled:
			return -1, services.Wrap(services.ErrSelectionAborted, "resolving", "select", "cancelled by user", nil)
		default:
			c.logger.Debug("selection rejected", logging.String("input", line))
			fmt.Fprintln(c.out, "Invalid selection. Please try again.")
		}
	}
}

func (c *Console) transition(state State) {
	if c.observer != nil {
		c.observer(state)
	}
}
