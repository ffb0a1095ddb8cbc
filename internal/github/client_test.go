package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatsync/seatsync/pkg/enrollment"
	"github.com/seatsync/seatsync/pkg/errors"
	"github.com/seatsync/seatsync/pkg/revoke"
	"github.com/seatsync/seatsync/pkg/seats"
)

var (
	_ seats.Source        = (*Client)(nil)
	_ enrollment.Assigner = (*Client)(nil)
	_ revoke.API          = (*Client)(nil)
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "ghp_test")
}

func TestListSeats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/acme/copilot/billing/seats", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{
			"total_seats": 2,
			"seats": [
				{
					"created_at": "2024-01-10T09:00:00Z",
					"last_activity_at": "2024-06-01T12:00:00Z",
					"last_activity_editor": "vscode/1.90",
					"assignee": {"login": "Octocat"},
					"assigning_team": {"slug": "platform", "name": "Platform"}
				},
				{
					"created_at": "2024-02-01T00:00:00Z",
					"assignee": {"login": "hubot"}
				}
			]
		}`))
	})

	got, total, err := c.ListSeats(context.Background(), "acme", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "acme", got[0].Organization)
	assert.Equal(t, "Octocat", got[0].Login)
	require.NotNil(t, got[0].AssigningTeam)
	assert.Equal(t, "platform", got[0].AssigningTeam.Slug)
	require.NotNil(t, got[0].LastActivityAt)
	assert.Nil(t, got[1].LastActivityAt)
	assert.Nil(t, got[1].AssigningTeam)
}

func TestListEnterpriseSeatsCarriesOrganization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enterprises/megacorp/copilot/billing/seats", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"total_seats": 1,
			"seats": [
				{
					"created_at": "2024-03-01T00:00:00Z",
					"assignee": {"login": "octocat"},
					"organization": {"login": "acme"}
				}
			]
		}`))
	})

	got, total, err := c.ListEnterpriseSeats(context.Background(), "megacorp", 1)
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "acme", got[0].Organization)
}

func TestListSeatsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, _, err := c.ListSeats(context.Background(), "ghost", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.True(t, errors.IsSoft(err))
}

func TestListMembers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/acme/members", r.URL.Path)
		_, _ = w.Write([]byte(`[{"login":"octocat"},{"login":"hubot"}]`))
	})

	got, err := c.ListMembers(context.Background(), "acme", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"octocat", "hubot"}, got)
}

func TestAssignSeats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orgs/acme/copilot/billing/selected_users", r.URL.Path)

		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"octocat", "hubot"}, body["selected_usernames"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"seats_created": 2}`))
	})

	created, err := c.AssignSeats(context.Background(), "acme", []string{"octocat", "hubot"})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestAssignSeatsCopilotNotEnabled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Copilot Business is not enabled"}`))
	})

	_, err := c.AssignSeats(context.Background(), "acme", []string{"octocat"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCopilotNotEnabled)
}

func TestRevokeSeats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/orgs/acme/copilot/billing/selected_users", r.URL.Path)
		_, _ = w.Write([]byte(`{"seats_cancelled": 3}`))
	})

	cancelled, err := c.RevokeSeats(context.Background(), "acme", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, cancelled)
}

func TestTeamRole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/acme/teams/platform/memberships/octocat", r.URL.Path)
		_, _ = w.Write([]byte(`{"role":"maintainer","state":"active"}`))
	})

	role, err := c.TeamRole(context.Background(), "acme", "platform", "octocat")
	require.NoError(t, err)
	assert.Equal(t, "maintainer", role)
}

func TestRemoveTeamMember(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/orgs/acme/teams/platform/memberships/octocat", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.RemoveTeamMember(context.Background(), "acme", "platform", "octocat"))
	assert.True(t, called)
}

func TestRemoveTeamMemberForbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Must have admin rights"}`))
	})

	err := c.RemoveTeamMember(context.Background(), "acme", "platform", "octocat")
	require.Error(t, err)
	assert.False(t, errors.IsSoft(err))
}
