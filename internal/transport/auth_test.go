package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatsync/seatsync/pkg/errors"
)

func TestTokenAuthApply(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orgs/acme/members", nil)

	(&TokenAuth{Token: "ghp_test"}).Apply(req)

	assert.Equal(t, "Bearer ghp_test", req.Header.Get("Authorization"))
}

func TestTokenAuthEmptyTokenSetsNothing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	(&TokenAuth{}).Apply(req)

	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestNoAuthApply(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	(&NoAuth{}).Apply(req)

	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestClientSetsCommonHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, &TokenAuth{Token: "ghp_test"})
	resp, err := c.Get(context.Background(), "/orgs/acme/copilot/billing/seats")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "application/vnd.github+json", got.Get("Accept"))
	assert.Equal(t, "2022-11-28", got.Get("X-GitHub-Api-Version"))
	assert.Equal(t, "Bearer ghp_test", got.Get("Authorization"))
}

func TestDecodeResponseMapsStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusNotFound, errors.ErrNotFound},
		{http.StatusUnprocessableEntity, errors.ErrCopilotNotEnabled},
		{http.StatusTooManyRequests, errors.ErrRateLimited},
		{http.StatusUnauthorized, errors.ErrUnauthorized},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}))

		c := New(srv.URL, &NoAuth{})
		resp, err := c.Get(context.Background(), "/x")
		require.NoError(t, err)

		decodeErr := DecodeResponse(resp, "seats", nil)
		require.Error(t, decodeErr)
		assert.ErrorIs(t, decodeErr, tt.target, "status %d", tt.status)
		assert.Contains(t, decodeErr.Error(), "nope", "API message is surfaced")
		srv.Close()
	}
}

func TestDecodeResponseParsesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"total_seats": 3}`))
	}))
	defer srv.Close()

	c := New(srv.URL, &NoAuth{})
	resp, err := c.Get(context.Background(), "/x")
	require.NoError(t, err)

	var payload struct {
		TotalSeats int `json:"total_seats"`
	}
	require.NoError(t, DecodeResponse(resp, "seats", &payload))
	assert.Equal(t, 3, payload.TotalSeats)
}

func TestPostSendsJSONBody(t *testing.T) {
	var body string
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(strings.Builder)
		_, _ = io.Copy(b, r.Body)
		body = b.String()
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"seats_created": 1}`))
	}))
	defer srv.Close()

	c := New(srv.URL, &NoAuth{})
	resp, err := c.Post(context.Background(), "/orgs/acme/copilot/billing/selected_users",
		map[string][]string{"selected_usernames": {"octocat"}})
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.JSONEq(t, `{"selected_usernames":["octocat"]}`, body)
	assert.Equal(t, "application/json", contentType)
}
