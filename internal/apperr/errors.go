package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid")

	// ErrEmptyPrompt is returned before the pipeline starts.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrNoCredentials is returned before any network call when no API key resolves.
	ErrNoCredentials = errors.New("no API key configured")
	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("llm transport failure")
)

// TransportError reports a failed call to the language model service.
// Kind is a short classification such as "authentication" or "rate_limit".
type TransportError struct {
	Kind string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Kind == "" {
		return "llm request failed: " + e.Err.Error()
	}
	return "llm request failed (" + e.Kind + "): " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
