package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// GenericErrorMessage is the user-facing fallback when the backend reports no
// detail. Raw technical error strings are never shown to end users.
const GenericErrorMessage = "Die Anfrage konnte nicht verarbeitet werden. Bitte versuchen Sie es erneut."

// APIError carries a backend-reported failure. Detail mirrors the optional
// `detail` field of error response bodies.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("api error: status=%d", e.StatusCode)
	if msg := strings.TrimSpace(e.Detail); msg != "" {
		return fmt.Sprintf("%s: %s", base, msg)
	}
	return base
}

// Message returns the text to surface to the user: the backend detail when
// present, the generic localized fallback otherwise.
func (e *APIError) Message() string {
	if e == nil {
		return GenericErrorMessage
	}
	if msg := strings.TrimSpace(e.Detail); msg != "" {
		return msg
	}
	return GenericErrorMessage
}

// newAPIError decodes the optional `detail` field from an error response body.
func newAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode()}

	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Detail = strings.TrimSpace(body.Detail)
	}

	return apiErr
}

// IsTransient reports whether an error is worth retrying on a later cycle.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			(apiErr.StatusCode >= http.StatusInternalServerError && apiErr.StatusCode <= 599)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
