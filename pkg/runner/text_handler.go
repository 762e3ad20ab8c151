package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/botflow/pkg/domain"
)

// TextHandler implements the interactive terminal interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	// Prefix returns the speaker tag printed before each line.
	Prefix func(domain.Role) string

	// TypingDelay pauses before each bot line, imitating the builder's
	// preview widget. Zero disables it.
	TypingDelay time.Duration

	// EchoUser prints the user's own lines. Off for terminals, where the
	// typed text is already visible.
	EchoUser bool

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTypingDelay configures the cosmetic pause before bot lines.
func WithTypingDelay(d time.Duration) TextHandlerOption {
	return func(h *TextHandler) {
		h.TypingDelay = d
	}
}

// WithPrefix configures the speaker tag.
func WithPrefix(prefix func(domain.Role) string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prefix = prefix
	}
}

// WithEchoUser prints user lines as part of the transcript.
func WithEchoUser(echo bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.EchoUser = echo
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prefix: func(domain.Role) string { return "" },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Output prints each line, rendering bot text through the Renderer.
func (h *TextHandler) Output(ctx context.Context, messages []domain.ChatMessage) error {
	for _, msg := range messages {
		if msg.Type == domain.RoleUser && !h.EchoUser {
			continue
		}

		text := msg.Text
		if msg.Type == domain.RoleBot {
			if err := h.pause(ctx); err != nil {
				return err
			}
			if h.Renderer != nil {
				if rendered, err := h.Renderer(text); err == nil {
					text = rendered
				}
			}
		}

		if _, err := fmt.Fprintln(h.Writer, h.Prefix(msg.Type)+strings.TrimSpace(text)); err != nil {
			return err
		}
	}
	return nil
}

func (h *TextHandler) pause(ctx context.Context) error {
	if h.TypingDelay <= 0 {
		return nil
	}
	t := time.NewTimer(h.TypingDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// initPump starts the single goroutine that reads lines, so a blocked read
// never prevents Input from honouring ctx.
func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go func() {
			for {
				text, err := h.Reader.ReadString('\n')
				if err != nil && text != "" {
					// Last line without a trailing newline.
					h.inputChan <- inputResult{text: text}
				}
				if err != nil {
					h.inputChan <- inputResult{err: err}
					close(h.inputChan)
					return
				}
				h.inputChan <- inputResult{text: text}
			}
		}()
	})
}

// Input prompts and reads one line.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()
	fmt.Fprint(h.Writer, h.Prefix(domain.RoleUser))

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimRight(res.text, "\r\n"), nil
	}
}
