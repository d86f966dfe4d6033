package social

import (
	"context"
	"time"
)

// JSON projections. Relationship keys keep the wire names the mobile
// clients use: People, Circles, Events, Circle.

// JSON projects a person with their one-hop neighborhood. Events is a
// map of event id to the person's attendance flag.
func (p *Person) JSON() map[string]any {
	events := make(map[string]bool, len(p.Invites))
	for _, inv := range p.Invites {
		events[inv.ID] = inv.Attending
	}
	return map[string]any{
		"id":           p.ID,
		"display_name": p.DisplayName,
		"email":        p.Email,
		"photo":        p.Photo,
		"People":       idsOrEmpty(p.Knows),
		"Circles":      idsOrEmpty(p.Circles),
		"Events":       events,
	}
}

// JSONLimited is the reduced projection shown to requesters who are
// not authorized to see the person in full.
func (p *Person) JSONLimited() map[string]any {
	return map[string]any{
		"id":           p.ID,
		"display_name": p.DisplayName,
		"photo":        p.Photo,
	}
}

// JSON projects a circle with its member and scheduled-event id lists.
func (c *Circle) JSON() map[string]any {
	return map[string]any{
		"id":               c.ID,
		"display_name":     c.DisplayName,
		"description":      c.Description,
		"owner_id":         c.OwnerID,
		"members_can_add":  c.MembersCanAdd,
		"members_can_ping": c.MembersCanPing,
		"People":           idsOrEmpty(c.Members),
		"Events":           idsOrEmpty(c.Events),
	}
}

// RenderEvent projects an event with its owning circle's id and name
// and a People map of invitee id to attendance.
func (en *Engine) RenderEvent(ctx context.Context, e *Event) (map[string]any, error) {
	people := make(map[string]bool, len(e.Invitees))
	for _, inv := range e.Invitees {
		people[inv.ID] = inv.Attending
	}

	circle := map[string]any{}
	if e.CircleID != "" {
		c, err := en.GetCircle(ctx, e.CircleID)
		if err != nil {
			return nil, err
		}
		circle["id"] = c.ID
		circle["display_name"] = c.DisplayName
	}

	return map[string]any{
		"id":             e.ID,
		"display_name":   e.DisplayName,
		"description":    e.Description,
		"location":       e.Location,
		"start_datetime": e.Start.Format(time.RFC3339),
		"end_datetime":   e.End.Format(time.RFC3339),
		"created_at":     e.CreatedAt.Format(time.RFC3339),
		"owner_id":       e.OwnerID,
		"Circle":         circle,
		"People":         people,
	}, nil
}

func idsOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
