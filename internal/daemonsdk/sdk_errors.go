package daemonsdk

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	ErrNoDaemonURL            = errors.New("sdk: daemon url missing")
	ErrEventsNotConnected     = errors.New("sdk: events: not connected")
	ErrEventsClosed           = errors.New("sdk: events: closed")
	ErrEventsMessageQueueFull = errors.New("sdk: events: message queue full")
)

// Error codes returned by the control plane.
const (
	CodeBadRequest   = "ERR_BAD_REQUEST"
	CodeUnknownRoot  = "ERR_UNKNOWN_ROOT"
	CodeUnknownError = "ERR_UNKNOWN_ERROR"
	CodeNotReady     = "ERR_NOT_READY"
	CodeUnauthorized = "ERR_UNAUTHORIZED"
)

// APIError is the error body of a failed control plane call.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// IsCode reports whether err carries an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok && err.Code != "" {
			return fmt.Errorf("%s %w", operation, err)
		}
		return fmt.Errorf("api error: %s %s", operation, resp.Status)
	}

	return nil
}
