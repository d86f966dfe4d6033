package social

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"circles/backend/internal/graph"
	apperrors "circles/backend/pkg/errors"
	"circles/backend/pkg/logger"
)

// Engine keeps the graph's relationships coherent across entity
// creation, wholesale replacement and deletion. Every mutation
// resolves all referenced ids before the first write, so a bad
// reference never leaves a partial state behind.
type Engine struct {
	store Store
	log   *zap.Logger
}

// NewEngine creates an engine on top of the given store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		log:   logger.Get(),
	}
}

// CreatePerson validates and persists a transient person plus all
// edges present on it. Emails are unique: they are the auth lookup key.
func (en *Engine) CreatePerson(ctx context.Context, p *Person) error {
	p.Email = strings.ToLower(p.Email)

	existingID, _, err := en.store.MatchNodeByProp(ctx, graph.KindPerson, "email", p.Email)
	if err != nil {
		return err
	}
	if existingID != "" {
		return apperrors.NewValidation(fmt.Sprintf("email %q is already registered", p.Email))
	}

	if err := en.resolveAll(ctx, graph.KindPerson, p.Knows); err != nil {
		return err
	}
	if err := en.resolveAll(ctx, graph.KindCircle, p.Circles); err != nil {
		return err
	}
	if err := en.resolveAll(ctx, graph.KindEvent, inviteIDs(p.Invites)); err != nil {
		return err
	}

	id, err := en.store.CreateNode(ctx, graph.KindPerson, p.props())
	if err != nil {
		return err
	}
	p.ID = id

	return en.writePersonEdges(ctx, p)
}

// CreateCircle validates and persists a transient circle. Membership
// is written as PART_OF edges from each member.
func (en *Engine) CreateCircle(ctx context.Context, c *Circle) error {
	if err := en.resolveAll(ctx, graph.KindPerson, append([]string{c.OwnerID}, c.Members...)); err != nil {
		return err
	}

	id, err := en.store.CreateNode(ctx, graph.KindCircle, c.props())
	if err != nil {
		return err
	}
	c.ID = id

	return en.writeMemberEdges(ctx, c)
}

// CreateEvent validates and persists a transient event under its
// circle. Before commit the propagation rule runs: every current
// member of the circle becomes an invitee with attending=false. The
// snapshot is taken once; people joining the circle later are not
// retroactively invited.
func (en *Engine) CreateEvent(ctx context.Context, e *Event) error {
	circleProps, err := en.store.MatchNode(ctx, graph.KindCircle, e.CircleID)
	if err != nil {
		return err
	}
	if circleProps == nil {
		return apperrors.NewReference(string(graph.KindCircle), e.CircleID)
	}
	if err := en.resolveAll(ctx, graph.KindPerson, append([]string{e.OwnerID}, inviteIDs(e.Invitees)...)); err != nil {
		return err
	}

	members, err := en.circleMemberIDs(ctx, e.CircleID)
	if err != nil {
		return err
	}
	e.Invitees = mergeInvitees(e.Invitees, members)

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	id, err := en.store.CreateNode(ctx, graph.KindEvent, e.props())
	if err != nil {
		return err
	}
	e.ID = id

	if err := en.store.CreateEdge(ctx, graph.Edge{
		SrcKind: graph.KindCircle, SrcID: e.CircleID,
		Rel:     graph.RelScheduled,
		DstKind: graph.KindEvent, DstID: e.ID,
	}); err != nil {
		return err
	}

	return en.writeInviteeEdges(ctx, e)
}

// GetPerson loads a person and their one-hop relationships.
func (en *Engine) GetPerson(ctx context.Context, id string) (*Person, error) {
	props, err := en.store.MatchNode(ctx, graph.KindPerson, id)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, apperrors.NewNotFound(string(graph.KindPerson), id)
	}
	return en.hydratePerson(ctx, id, props)
}

// FindPersonByEmail looks a person up by their normalized email.
func (en *Engine) FindPersonByEmail(ctx context.Context, email string) (*Person, error) {
	email = strings.ToLower(email)
	id, props, err := en.store.MatchNodeByProp(ctx, graph.KindPerson, "email", email)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.NewNotFound(string(graph.KindPerson), email)
	}
	return en.hydratePerson(ctx, id, props)
}

// GetCircle loads a circle, its members and its scheduled events.
func (en *Engine) GetCircle(ctx context.Context, id string) (*Circle, error) {
	props, err := en.store.MatchNode(ctx, graph.KindCircle, id)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, apperrors.NewNotFound(string(graph.KindCircle), id)
	}

	c := &Circle{
		ID:             id,
		DisplayName:    propString(props, "display_name"),
		Description:    propString(props, "description"),
		OwnerID:        propString(props, "owner_id"),
		MembersCanAdd:  propBool(props, "members_can_add"),
		MembersCanPing: propBool(props, "members_can_ping"),
	}

	members, err := en.circleMemberIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Members = members

	events, err := en.store.OneHop(ctx, graph.OneHopQuery{
		SrcKind: graph.KindCircle, SrcID: id,
		Rel:     graph.RelScheduled,
		DstKind: graph.KindEvent,
	})
	if err != nil {
		return nil, err
	}
	c.Events = neighborIDs(events)

	return c, nil
}

// GetEvent loads an event, its invitees and its owning circle.
func (en *Engine) GetEvent(ctx context.Context, id string) (*Event, error) {
	props, err := en.store.MatchNode(ctx, graph.KindEvent, id)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, apperrors.NewNotFound(string(graph.KindEvent), id)
	}

	e := &Event{
		ID:          id,
		DisplayName: propString(props, "display_name"),
		Description: propString(props, "description"),
		Location:    propString(props, "location"),
		Start:       propTime(props, "start_datetime"),
		End:         propTime(props, "end_datetime"),
		CreatedAt:   propTime(props, "created_at"),
		OwnerID:     propString(props, "owner_id"),
	}

	circles, err := en.store.OneHop(ctx, graph.OneHopQuery{
		SrcKind: graph.KindEvent, SrcID: id,
		Rel:     graph.RelScheduled,
		DstKind: graph.KindCircle,
	})
	if err != nil {
		return nil, err
	}
	if len(circles) > 0 {
		e.CircleID = circles[0].ID
	}

	invitees, err := en.store.OneHop(ctx, graph.OneHopQuery{
		SrcKind: graph.KindEvent, SrcID: id,
		Rel:     graph.RelInvitedTo,
		DstKind: graph.KindPerson,
	})
	if err != nil {
		return nil, err
	}
	e.Invitees = neighborInvites(invitees)

	return e, nil
}

// DeletePerson removes the person's edges, then the node.
func (en *Engine) DeletePerson(ctx context.Context, id string) error {
	if err := en.store.DeleteEdges(ctx, graph.KindPerson, id, graph.RelAny); err != nil {
		return err
	}
	return en.store.DeleteNode(ctx, graph.KindPerson, id)
}

// DeleteEvent removes the event's edges, then the node.
func (en *Engine) DeleteEvent(ctx context.Context, id string) error {
	if err := en.store.DeleteEdges(ctx, graph.KindEvent, id, graph.RelAny); err != nil {
		return err
	}
	return en.store.DeleteNode(ctx, graph.KindEvent, id)
}

// DeleteCircle cascades: every event scheduled under the circle is
// deleted first (its edges before its node), then the circle's own
// edges and node. Children before parents, so no dangling edge state
// is observable.
func (en *Engine) DeleteCircle(ctx context.Context, id string) error {
	events, err := en.store.OneHop(ctx, graph.OneHopQuery{
		SrcKind: graph.KindCircle, SrcID: id,
		Rel:     graph.RelScheduled,
		DstKind: graph.KindEvent,
	})
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := en.DeleteEvent(ctx, ev.ID); err != nil {
			return err
		}
	}

	if err := en.store.DeleteEdges(ctx, graph.KindCircle, id, graph.RelAny); err != nil {
		return err
	}
	return en.store.DeleteNode(ctx, graph.KindCircle, id)
}

// SetMessagingToken stores a person's push token.
func (en *Engine) SetMessagingToken(ctx context.Context, personID, token string) error {
	return en.store.SetProps(ctx, graph.KindPerson, personID, map[string]any{
		"messaging_token": token,
	})
}

func (en *Engine) hydratePerson(ctx context.Context, id string, props map[string]any) (*Person, error) {
	p := &Person{
		ID:             id,
		DisplayName:    propString(props, "display_name"),
		Email:          propString(props, "email"),
		Photo:          propString(props, "photo"),
		MessagingToken: propString(props, "messaging_token"),
	}

	knows, err := en.store.OneHop(ctx, graph.OneHopQuery{
		SrcKind: graph.KindPerson, SrcID: id,
		Rel:     graph.RelKnows,
		DstKind: graph.KindPerson,
	})
	if err != nil {
		return nil, err
	}
	p.Knows = neighborIDs(knows)

	circles, err := en.store.OneHop(ctx, graph.OneHopQuery{
		SrcKind: graph.KindPerson, SrcID: id,
		Rel:     graph.RelPartOf,
		DstKind: graph.KindCircle,
	})
	if err != nil {
		return nil, err
	}
	p.Circles = neighborIDs(circles)

	invites, err := en.store.OneHop(ctx, graph.OneHopQuery{
		SrcKind: graph.KindPerson, SrcID: id,
		Rel:     graph.RelInvitedTo,
		DstKind: graph.KindEvent,
	})
	if err != nil {
		return nil, err
	}
	p.Invites = neighborInvites(invites)

	return p, nil
}

// resolveAll fails with a reference error on the first id that does
// not match an existing node of the expected kind.
func (en *Engine) resolveAll(ctx context.Context, kind graph.Kind, ids []string) error {
	for _, id := range ids {
		props, err := en.store.MatchNode(ctx, kind, id)
		if err != nil {
			return err
		}
		if props == nil {
			return apperrors.NewReference(string(kind), id)
		}
	}
	return nil
}

func (en *Engine) writePersonEdges(ctx context.Context, p *Person) error {
	for _, other := range p.Knows {
		if err := en.store.CreateEdge(ctx, graph.Edge{
			SrcKind: graph.KindPerson, SrcID: p.ID,
			Rel:     graph.RelKnows,
			DstKind: graph.KindPerson, DstID: other,
		}); err != nil {
			return err
		}
	}
	for _, circleID := range p.Circles {
		if err := en.store.CreateEdge(ctx, graph.Edge{
			SrcKind: graph.KindPerson, SrcID: p.ID,
			Rel:     graph.RelPartOf,
			DstKind: graph.KindCircle, DstID: circleID,
		}); err != nil {
			return err
		}
	}
	for _, inv := range p.Invites {
		if err := en.store.CreateEdge(ctx, graph.Edge{
			SrcKind: graph.KindPerson, SrcID: p.ID,
			Rel:     graph.RelInvitedTo,
			DstKind: graph.KindEvent, DstID: inv.ID,
			Props:   map[string]any{"attending": inv.Attending},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (en *Engine) writeMemberEdges(ctx context.Context, c *Circle) error {
	for _, member := range c.Members {
		if err := en.store.CreateEdge(ctx, graph.Edge{
			SrcKind: graph.KindPerson, SrcID: member,
			Rel:     graph.RelPartOf,
			DstKind: graph.KindCircle, DstID: c.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (en *Engine) writeInviteeEdges(ctx context.Context, e *Event) error {
	for _, inv := range e.Invitees {
		if err := en.store.CreateEdge(ctx, graph.Edge{
			SrcKind: graph.KindPerson, SrcID: inv.ID,
			Rel:     graph.RelInvitedTo,
			DstKind: graph.KindEvent, DstID: e.ID,
			Props:   map[string]any{"attending": inv.Attending},
		}); err != nil {
			return err
		}
	}
	return nil
}

func neighborIDs(neighbors []graph.Neighbor) []string {
	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}

func neighborInvites(neighbors []graph.Neighbor) []Invite {
	invites := make([]Invite, 0, len(neighbors))
	for _, n := range neighbors {
		attending, _ := n.EdgeProps["attending"].(bool)
		invites = append(invites, Invite{ID: n.ID, Attending: attending})
	}
	sortInvites(invites)
	return invites
}

func inviteIDs(invites []Invite) []string {
	ids := make([]string, 0, len(invites))
	for _, inv := range invites {
		ids = append(ids, inv.ID)
	}
	return ids
}
