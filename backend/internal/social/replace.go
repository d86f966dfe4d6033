package social

import (
	"context"
	"fmt"
	"strings"

	"circles/backend/internal/graph"
	apperrors "circles/backend/pkg/errors"
)

// Replacement is a full overwrite, never a diff: for every
// relationship type the entity owns, all stored edges are deleted and
// the transient's edges written in their place. Every transient edge
// target is resolved before the first delete, so a bad reference
// leaves the persisted edge set fully intact.

// ReplacePerson overwrites a persisted person's scalars and edge sets
// (KNOWS, PART_OF, INVITED_TO) with the transient's. The persisted
// struct is updated in place to the committed state.
func (en *Engine) ReplacePerson(ctx context.Context, persisted, transient *Person) error {
	transient.Email = strings.ToLower(transient.Email)
	if transient.Email != persisted.Email {
		id, _, err := en.store.MatchNodeByProp(ctx, graph.KindPerson, "email", transient.Email)
		if err != nil {
			return err
		}
		if id != "" && id != persisted.ID {
			return apperrors.NewValidation(fmt.Sprintf("email %q is already registered", transient.Email))
		}
	}

	if err := en.resolveAll(ctx, graph.KindPerson, transient.Knows); err != nil {
		return err
	}
	if err := en.resolveAll(ctx, graph.KindCircle, transient.Circles); err != nil {
		return err
	}
	if err := en.resolveAll(ctx, graph.KindEvent, inviteIDs(transient.Invites)); err != nil {
		return err
	}

	if err := en.store.SetProps(ctx, graph.KindPerson, persisted.ID, transient.props()); err != nil {
		return err
	}

	for _, rel := range []graph.Rel{graph.RelKnows, graph.RelPartOf, graph.RelInvitedTo} {
		if err := en.store.DeleteEdges(ctx, graph.KindPerson, persisted.ID, rel); err != nil {
			return err
		}
	}
	replacement := *transient
	replacement.ID = persisted.ID
	if err := en.writePersonEdges(ctx, &replacement); err != nil {
		return err
	}

	*persisted = replacement
	return nil
}

// ReplaceCircle overwrites a persisted circle's scalars and membership
// edge set. Scheduled events are not part of the owned edge set; they
// survive the replace.
func (en *Engine) ReplaceCircle(ctx context.Context, persisted, transient *Circle) error {
	if err := en.resolveAll(ctx, graph.KindPerson, append([]string{transient.OwnerID}, transient.Members...)); err != nil {
		return err
	}

	if err := en.store.SetProps(ctx, graph.KindCircle, persisted.ID, transient.props()); err != nil {
		return err
	}

	if err := en.store.DeleteEdges(ctx, graph.KindCircle, persisted.ID, graph.RelPartOf); err != nil {
		return err
	}
	replacement := *transient
	replacement.ID = persisted.ID
	replacement.Events = persisted.Events
	if err := en.writeMemberEdges(ctx, &replacement); err != nil {
		return err
	}

	*persisted = replacement
	return nil
}

// ReplaceEvent overwrites a persisted event's scalars and invitee edge
// set. The creation timestamp is immutable and the owning circle is
// fixed for life; a transient naming a different circle is rejected.
func (en *Engine) ReplaceEvent(ctx context.Context, persisted, transient *Event) error {
	if transient.CircleID != "" && transient.CircleID != persisted.CircleID {
		return apperrors.NewValidation("an event cannot be moved to another circle")
	}

	if err := en.resolveAll(ctx, graph.KindPerson, inviteIDs(transient.Invitees)); err != nil {
		return err
	}

	replacement := *transient
	replacement.ID = persisted.ID
	replacement.CircleID = persisted.CircleID
	replacement.CreatedAt = persisted.CreatedAt
	if replacement.OwnerID == "" {
		replacement.OwnerID = persisted.OwnerID
	}

	if err := en.store.SetProps(ctx, graph.KindEvent, persisted.ID, replacement.props()); err != nil {
		return err
	}

	if err := en.store.DeleteEdges(ctx, graph.KindEvent, persisted.ID, graph.RelInvitedTo); err != nil {
		return err
	}
	if err := en.writeInviteeEdges(ctx, &replacement); err != nil {
		return err
	}

	*persisted = replacement
	return nil
}

// NewlyAdded returns the ids present in after but not in before. The
// caller computes this before a replace to decide who gets notified.
func NewlyAdded(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, id := range before {
		seen[id] = true
	}
	var added []string
	for _, id := range after {
		if !seen[id] {
			added = append(added, id)
		}
	}
	return added
}
