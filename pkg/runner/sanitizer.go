package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 4KB, far above any sensible chat answer.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "BOTFLOW_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// InputPolicy bounds what an end user may submit as an answer.
type InputPolicy struct {
	// MaxBytes is the largest accepted input. Zero means DefaultMaxInputSize.
	MaxBytes int
}

// DefaultInputPolicy reads the size limit from EnvMaxInputSize when set.
func DefaultInputPolicy() InputPolicy {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return InputPolicy{MaxBytes: size}
		}
	}
	return InputPolicy{MaxBytes: DefaultMaxInputSize}
}

// Sanitize rejects oversized or invalid UTF-8 input and strips control
// characters other than newline, tab and carriage return. Oversized input is
// rejected, never truncated.
func (p InputPolicy) Sanitize(input string) (string, error) {
	limit := p.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(input, isUnsafeControl) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if isUnsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

// SanitizeInput applies DefaultInputPolicy.
func SanitizeInput(input string) (string, error) {
	return DefaultInputPolicy().Sanitize(input)
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
