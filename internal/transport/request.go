package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/seatsync/seatsync/pkg/errors"
)

// DecodeResponse decodes a JSON response into the target structure,
// closing the body. Non-2xx responses are converted to an *errors.APIError
// whose status code maps to the soft/hard sentinels (404 not found,
// 422 copilot not enabled, 429 rate limited). Pass a nil target for
// endpoints that return no body.
func DecodeResponse(resp *http.Response, resource string, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.APIError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			Message:    apiMessage(body),
			Endpoint:   resp.Request.URL.Path,
		}
	}

	if target == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", resource+" response", err)
	}
	return nil
}

// apiMessage extracts the API's error message field, falling back to the
// raw body.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return string(body)
}
