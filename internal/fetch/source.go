package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/garyellow/admission-lists/internal/errors"
)

// Stdin is the location that reads from standard input.
const Stdin = "-"

// IsURL reports whether location is an http or https URL.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Loader reads sources by location: a file path, an http(s) URL or "-".
type Loader struct {
	client *Client
	stdin  io.Reader
}

// NewLoader creates a Loader that fetches URLs with client.
func NewLoader(client *Client) *Loader {
	return &Loader{client: client, stdin: os.Stdin}
}

// WithStdin returns a copy of l reading "-" from r.
func (l *Loader) WithStdin(r io.Reader) *Loader {
	clone := *l
	clone.stdin = r
	return &clone
}

// Load returns the content at location.
func (l *Loader) Load(ctx context.Context, location string) ([]byte, error) {
	switch {
	case location == "":
		return nil, apperrors.NewValidationError("location", "source location is required")
	case location == Stdin:
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return nil, apperrors.NewSourceError("stdin", 0, err)
		}
		return data, nil
	case IsURL(location):
		if l.client == nil {
			return nil, apperrors.NewSourceError(location, 0, fmt.Errorf("no HTTP client configured"))
		}
		return l.client.Get(ctx, location)
	default:
		data, err := os.ReadFile(location)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperrors.NewSourceError(location, 0, fmt.Errorf("%w: %w", apperrors.ErrNotFound, err))
			}
			return nil, apperrors.NewSourceError(location, 0, err)
		}
		return data, nil
	}
}
