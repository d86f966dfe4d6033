package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"circles/backend/internal/social"
	apperrors "circles/backend/pkg/errors"
)

// postCircle creates a circle and notifies its members.
func (s *Server) postCircle(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	payload, ok := bindPayload(c)
	if !ok {
		return
	}
	circle, err := social.CircleFromJSON(payload)
	if err != nil {
		s.abortWith(c, err)
		return
	}
	if err := s.engine.CreateCircle(ctx, circle); err != nil {
		s.abortWith(c, err)
		return
	}

	if tokens := s.tokensFor(ctx, circle.Members, requester.ID); len(tokens) > 0 {
		go s.notifier.NewCircle(context.Background(), tokens, circle.DisplayName)
	}

	success(c)
}

// getCircle returns a circle or one of its subresource lists. Only
// members and the owner may see a circle.
func (s *Server) getCircle(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	circle, err := s.engine.GetCircle(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	ownerReq := requester.ID == circle.OwnerID
	memberReq := contains(requester.Circles, circle.ID)
	if !ownerReq && !memberReq {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized circle request"))
		return
	}

	resource := c.Param("resource")
	switch resource {
	case "":
		c.JSON(http.StatusOK, circle.JSON())
	case resourcePeople:
		out := make([]map[string]any, 0, len(circle.Members))
		for _, id := range circle.Members {
			member, err := s.engine.GetPerson(ctx, id)
			if err != nil {
				s.abortWith(c, err)
				return
			}
			out = append(out, member.JSONLimited())
		}
		c.JSON(http.StatusOK, out)
	case resourceEvents:
		out := make([]map[string]any, 0, len(circle.Events))
		for _, id := range circle.Events {
			event, err := s.engine.GetEvent(ctx, id)
			if err != nil {
				s.abortWith(c, err)
				return
			}
			rendered, err := s.engine.RenderEvent(ctx, event)
			if err != nil {
				s.abortWith(c, err)
				return
			}
			out = append(out, rendered)
		}
		c.JSON(http.StatusOK, out)
	default:
		s.abortWith(c, apperrors.NewNotFound("resource", resource))
	}
}

// putCircle replaces a circle wholesale. Allowed for the owner, or for
// members when the incoming circle keeps member changes open. Newly
// added members get a notification.
func (s *Server) putCircle(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	persisted, err := s.engine.GetCircle(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}

	payload, ok := bindPayload(c)
	if !ok {
		return
	}
	transient, err := social.CircleFromJSON(payload)
	if err != nil {
		s.abortWith(c, err)
		return
	}

	ownerReq := requester.ID == persisted.OwnerID
	memberReq := contains(requester.Circles, persisted.ID)
	if !ownerReq && !(memberReq && (transient.MembersCanAdd || transient.MembersCanPing)) {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized update request"))
		return
	}

	// Delta before the destructive edge rewrite.
	newlyAdded := social.NewlyAdded(persisted.Members, transient.Members)

	if err := s.engine.ReplaceCircle(ctx, persisted, transient); err != nil {
		s.abortWith(c, err)
		return
	}

	if tokens := s.tokensFor(ctx, newlyAdded, requester.ID); len(tokens) > 0 {
		go s.notifier.NewCircle(context.Background(), tokens, persisted.DisplayName)
	}

	success(c)
}

// deleteCircle removes a circle and every event scheduled under it.
// Only the owner may delete a circle.
func (s *Server) deleteCircle(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	circle, err := s.engine.GetCircle(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	if requester.ID != circle.OwnerID {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized circle request"))
		return
	}
	if err := s.engine.DeleteCircle(ctx, circle.ID); err != nil {
		s.abortWith(c, err)
		return
	}

	success(c)
}

// postSyncKnows runs the explicit acquaintance batch for a circle's
// members. Owner only.
func (s *Server) postSyncKnows(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	circle, err := s.engine.GetCircle(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	if requester.ID != circle.OwnerID {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized sync request"))
		return
	}

	created, err := s.engine.SyncCircleKnows(ctx, circle.ID)
	if err != nil {
		s.abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "edges_created": created})
}
