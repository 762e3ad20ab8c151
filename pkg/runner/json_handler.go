package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
)

// JSONHandler implements IOHandler as JSON Lines: one ChatMessage object per
// output line; input lines are either a JSON string or raw text.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

// Output encodes every message, including the user's, so that the stream is
// a complete transcript.
func (h *JSONHandler) Output(ctx context.Context, messages []domain.ChatMessage) error {
	for _, msg := range messages {
		if err := h.Encoder.Encode(msg); err != nil {
			return err
		}
	}
	return nil
}

// Input reads one line.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && text == "" {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return val, nil
	}
	return text, nil
}
