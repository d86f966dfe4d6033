package social

import (
	"context"
	"time"

	"circles/backend/internal/graph"
)

// Store is the entity store the engine writes through. Satisfied by
// graph.Store (Neo4j) and graph.MemoryStore.
type Store interface {
	CreateNode(ctx context.Context, kind graph.Kind, props map[string]any) (string, error)
	MatchNode(ctx context.Context, kind graph.Kind, id string) (map[string]any, error)
	MatchNodeByProp(ctx context.Context, kind graph.Kind, key string, value any) (string, map[string]any, error)
	SetProps(ctx context.Context, kind graph.Kind, id string, props map[string]any) error
	CreateEdge(ctx context.Context, e graph.Edge) error
	DeleteEdges(ctx context.Context, kind graph.Kind, id string, rel graph.Rel) error
	DeleteNode(ctx context.Context, kind graph.Kind, id string) error
	OneHop(ctx context.Context, q graph.OneHopQuery) ([]graph.Neighbor, error)
}

// Invite is one end of an INVITED_TO edge with its RSVP flag. On a
// Person the ID is an event id; on an Event it is a person id.
type Invite struct {
	ID        string `json:"id"`
	Attending bool   `json:"attending"`
}

// Person is a user of the app. Email is stored lower-cased and is the
// lookup key for authentication.
type Person struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	Photo          string `json:"photo,omitempty"`
	MessagingToken string `json:"messaging_token,omitempty"`

	// Knows holds ids of befriended people, Circles ids of circles this
	// person belongs to, Invites their event invitations.
	Knows   []string `json:"knows,omitempty"`
	Circles []string `json:"circles,omitempty"`
	Invites []Invite `json:"invites,omitempty"`
}

// Circle is a group of people that events are scheduled under.
type Circle struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description,omitempty"`
	OwnerID        string `json:"owner_id"`
	MembersCanAdd  bool   `json:"members_can_add"`
	MembersCanPing bool   `json:"members_can_ping"`

	Members []string `json:"members,omitempty"`
	Events  []string `json:"events,omitempty"`
}

// Event belongs to exactly one circle, fixed at creation.
type Event struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start_datetime"`
	End         time.Time `json:"end_datetime"`
	CreatedAt   time.Time `json:"created_at"`
	OwnerID     string    `json:"owner_id"`
	CircleID    string    `json:"circle"`

	Invitees []Invite `json:"invitees,omitempty"`
}

func (p *Person) props() map[string]any {
	return map[string]any{
		"display_name":    p.DisplayName,
		"email":           p.Email,
		"photo":           p.Photo,
		"messaging_token": p.MessagingToken,
	}
}

func (c *Circle) props() map[string]any {
	return map[string]any{
		"display_name":     c.DisplayName,
		"description":      c.Description,
		"owner_id":         c.OwnerID,
		"members_can_add":  c.MembersCanAdd,
		"members_can_ping": c.MembersCanPing,
	}
}

func (e *Event) props() map[string]any {
	return map[string]any{
		"display_name":   e.DisplayName,
		"description":    e.Description,
		"location":       e.Location,
		"start_datetime": e.Start.Format(time.RFC3339),
		"end_datetime":   e.End.Format(time.RFC3339),
		"created_at":     e.CreatedAt.Format(time.RFC3339),
		"owner_id":       e.OwnerID,
	}
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func propBool(props map[string]any, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return false
}

func propTime(props map[string]any, key string) time.Time {
	if v, ok := props[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
