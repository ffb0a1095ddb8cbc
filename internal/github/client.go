// Package github implements the page-level management API operations the
// reconciliation engine depends on: Copilot seat listings (organization
// and enterprise), membership rosters, seat assignment and revocation,
// and team role lookups.
package github

import (
	"context"
	"fmt"
	"net/url"

	"github.com/agentstation/utc"

	"github.com/seatsync/seatsync/internal/transport"
	"github.com/seatsync/seatsync/pkg/seats"
)

// Client talks to the management API. It satisfies seats.Source,
// enrollment.Assigner, and revoke.API.
type Client struct {
	transport *transport.Client
}

// NewClient creates an API client. baseURL may be empty for the public
// endpoint.
func NewClient(baseURL, token string, opts ...transport.Option) *Client {
	return &Client{
		transport: transport.New(baseURL, &transport.TokenAuth{Token: token}, opts...),
	}
}

// Response structures for the seat management API.
type seatsResponse struct {
	TotalSeats int        `json:"total_seats"`
	Seats      []seatJSON `json:"seats"`
}

type seatJSON struct {
	CreatedAt               utc.Time  `json:"created_at"`
	LastActivityAt          *utc.Time `json:"last_activity_at"`
	LastActivityEditor      string    `json:"last_activity_editor"`
	PendingCancellationDate *utc.Time `json:"pending_cancellation_date"`
	Assignee                struct {
		Login string `json:"login"`
	} `json:"assignee"`
	AssigningTeam *struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	} `json:"assigning_team"`
	Organization *struct {
		Login string `json:"login"`
	} `json:"organization"`
}

type memberJSON struct {
	Login string `json:"login"`
}

// ListSeats retrieves one page of an organization's Copilot seats along
// with the server-reported total.
func (c *Client) ListSeats(ctx context.Context, org string, page int) ([]seats.Seat, int, error) {
	path := fmt.Sprintf("/orgs/%s/copilot/billing/seats?per_page=%d&page=%d",
		url.PathEscape(org), seats.PerPage, page)
	return c.listSeats(ctx, path, org)
}

// ListEnterpriseSeats retrieves one page of an enterprise's Copilot
// seats. Seats carry their owning organization when the API provides it.
func (c *Client) ListEnterpriseSeats(ctx context.Context, enterprise string, page int) ([]seats.Seat, int, error) {
	path := fmt.Sprintf("/enterprises/%s/copilot/billing/seats?per_page=%d&page=%d",
		url.PathEscape(enterprise), seats.PerPage, page)
	return c.listSeats(ctx, path, "")
}

// listSeats fetches and converts one seat page.
func (c *Client) listSeats(ctx context.Context, path, org string) ([]seats.Seat, int, error) {
	resp, err := c.transport.Get(ctx, path)
	if err != nil {
		return nil, 0, err
	}

	var payload seatsResponse
	if err := transport.DecodeResponse(resp, "seats", &payload); err != nil {
		return nil, 0, err
	}

	converted := make([]seats.Seat, 0, len(payload.Seats))
	for _, s := range payload.Seats {
		converted = append(converted, convertSeat(s, org))
	}
	return converted, payload.TotalSeats, nil
}

// convertSeat maps an API seat to the domain type.
func convertSeat(s seatJSON, org string) seats.Seat {
	seat := seats.Seat{
		Organization:            org,
		Login:                   s.Assignee.Login,
		CreatedAt:               s.CreatedAt,
		LastActivityAt:          s.LastActivityAt,
		LastActivityEditor:      s.LastActivityEditor,
		PendingCancellationDate: s.PendingCancellationDate,
	}
	if s.Organization != nil && s.Organization.Login != "" {
		seat.Organization = s.Organization.Login
	}
	if s.AssigningTeam != nil {
		seat.AssigningTeam = &seats.Team{Slug: s.AssigningTeam.Slug, Name: s.AssigningTeam.Name}
	}
	return seat
}

// ListMembers retrieves one page of an organization's membership roster.
// An empty page signals the end.
func (c *Client) ListMembers(ctx context.Context, org string, page int) ([]string, error) {
	path := fmt.Sprintf("/orgs/%s/members?per_page=%d&page=%d",
		url.PathEscape(org), seats.PerPage, page)

	resp, err := c.transport.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	var payload []memberJSON
	if err := transport.DecodeResponse(resp, "members", &payload); err != nil {
		return nil, err
	}

	logins := make([]string, 0, len(payload))
	for _, m := range payload {
		logins = append(logins, m.Login)
	}
	return logins, nil
}

// AssignSeats requests Copilot seats for the given logins and returns
// the number of seats the request created.
func (c *Client) AssignSeats(ctx context.Context, org string, logins []string) (int, error) {
	path := fmt.Sprintf("/orgs/%s/copilot/billing/selected_users", url.PathEscape(org))

	resp, err := c.transport.Post(ctx, path, map[string][]string{"selected_usernames": logins})
	if err != nil {
		return 0, err
	}

	var payload struct {
		SeatsCreated int `json:"seats_created"`
	}
	if err := transport.DecodeResponse(resp, "seat assignment", &payload); err != nil {
		return 0, err
	}
	return payload.SeatsCreated, nil
}

// RevokeSeats cancels the Copilot seats of the given logins and returns
// the number of seats cancelled.
func (c *Client) RevokeSeats(ctx context.Context, org string, logins []string) (int, error) {
	path := fmt.Sprintf("/orgs/%s/copilot/billing/selected_users", url.PathEscape(org))

	resp, err := c.transport.Delete(ctx, path, map[string][]string{"selected_usernames": logins})
	if err != nil {
		return 0, err
	}

	var payload struct {
		SeatsCancelled int `json:"seats_cancelled"`
	}
	if err := transport.DecodeResponse(resp, "seat revocation", &payload); err != nil {
		return 0, err
	}
	return payload.SeatsCancelled, nil
}

// TeamRole returns the login's role on the given team.
func (c *Client) TeamRole(ctx context.Context, org, team, login string) (string, error) {
	path := fmt.Sprintf("/orgs/%s/teams/%s/memberships/%s",
		url.PathEscape(org), url.PathEscape(team), url.PathEscape(login))

	resp, err := c.transport.Get(ctx, path)
	if err != nil {
		return "", err
	}

	var payload struct {
		Role string `json:"role"`
	}
	if err := transport.DecodeResponse(resp, "team membership", &payload); err != nil {
		return "", err
	}
	return payload.Role, nil
}

// RemoveTeamMember removes the login from the given team, which cancels
// a team-assigned seat.
func (c *Client) RemoveTeamMember(ctx context.Context, org, team, login string) error {
	path := fmt.Sprintf("/orgs/%s/teams/%s/memberships/%s",
		url.PathEscape(org), url.PathEscape(team), url.PathEscape(login))

	resp, err := c.transport.Delete(ctx, path, nil)
	if err != nil {
		return err
	}
	return transport.DecodeResponse(resp, "team membership", nil)
}
