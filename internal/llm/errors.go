package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Veraticus/transco/internal/common"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
)

// ErrMalformedResponse is returned when an answer cannot be decoded at all.
var ErrMalformedResponse = errors.New("malformed LLM response")

// TransientError is a failure worth retrying: timeouts, throttling,
// server errors and dropped connections.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient LLM error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient LLM error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError is a request that failed for good, either because the service
// rejected it or because retries were exhausted. The batch is abandoned for
// the current round.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("LLM request failed: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// transientStatus reports whether an HTTP status is worth retrying.
func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

// transientError wraps err for a retryable status. Throttling also wraps
// common.ErrRateLimit so retries wait longer.
func transientError(err error, code int) error {
	if code == http.StatusTooManyRequests {
		err = fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	}
	return &TransientError{Err: err, StatusCode: code}
}

// classifyError maps provider errors onto TransientError. Anything not
// recognized as transient is returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var oaiAPI *openai.APIError
	if errors.As(err, &oaiAPI) {
		if transientStatus(oaiAPI.HTTPStatusCode) {
			return transientError(err, oaiAPI.HTTPStatusCode)
		}
		return err
	}

	var oaiReq *openai.RequestError
	if errors.As(err, &oaiReq) {
		if transientStatus(oaiReq.HTTPStatusCode) {
			return transientError(err, oaiReq.HTTPStatusCode)
		}
		return err
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		if transientStatus(antErr.StatusCode) {
			return transientError(err, antErr.StatusCode)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Err: err}
	}

	return err
}
