package social

import (
	"context"

	"go.uber.org/zap"

	"circles/backend/internal/graph"
)

// circleMemberIDs returns the ids of every person holding a PART_OF
// edge to the circle.
func (en *Engine) circleMemberIDs(ctx context.Context, circleID string) ([]string, error) {
	members, err := en.store.OneHop(ctx, graph.OneHopQuery{
		SrcKind: graph.KindCircle, SrcID: circleID,
		Rel:     graph.RelPartOf,
		DstKind: graph.KindPerson,
	})
	if err != nil {
		return nil, err
	}
	return neighborIDs(members), nil
}

// mergeInvitees unions explicit invitees with the circle's member
// snapshot. Members not explicitly listed default to attending=false.
func mergeInvitees(explicit []Invite, members []string) []Invite {
	seen := make(map[string]bool, len(explicit))
	merged := make([]Invite, 0, len(explicit)+len(members))
	for _, inv := range explicit {
		seen[inv.ID] = true
		merged = append(merged, inv)
	}
	for _, id := range members {
		if !seen[id] {
			merged = append(merged, Invite{ID: id, Attending: false})
		}
	}
	sortInvites(merged)
	return merged
}

// SyncCircleKnows creates the missing KNOWS edges between every pair
// of the circle's current members. This never runs implicitly; circle
// membership by itself does not imply acquaintance.
func (en *Engine) SyncCircleKnows(ctx context.Context, circleID string) (int, error) {
	if _, err := en.GetCircle(ctx, circleID); err != nil {
		return 0, err
	}

	members, err := en.circleMemberIDs(ctx, circleID)
	if err != nil {
		return 0, err
	}

	created := 0
	for i, a := range members {
		known, err := en.store.OneHop(ctx, graph.OneHopQuery{
			SrcKind: graph.KindPerson, SrcID: a,
			Rel:     graph.RelKnows,
			DstKind: graph.KindPerson,
		})
		if err != nil {
			return created, err
		}
		existing := make(map[string]bool, len(known))
		for _, n := range known {
			existing[n.ID] = true
		}
		for _, b := range members[i+1:] {
			if existing[b] {
				continue
			}
			if err := en.store.CreateEdge(ctx, graph.Edge{
				SrcKind: graph.KindPerson, SrcID: a,
				Rel:     graph.RelKnows,
				DstKind: graph.KindPerson, DstID: b,
			}); err != nil {
				return created, err
			}
			created++
		}
	}

	if created > 0 {
		en.log.Info("synced circle acquaintances",
			zap.String("circle_id", circleID),
			zap.Int("edges_created", created),
		)
	}
	return created, nil
}
