package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"circles/backend/internal/social"
	apperrors "circles/backend/pkg/errors"
)

// postEvent creates an event under a circle and notifies the circle's
// members. The requester must own the circle or be a member of one
// that lets members ping.
func (s *Server) postEvent(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	payload, ok := bindPayload(c)
	if !ok {
		return
	}
	event, err := social.EventFromJSON(payload)
	if err != nil {
		s.abortWith(c, err)
		return
	}
	event.OwnerID = requester.ID

	circle, err := s.engine.GetCircle(ctx, event.CircleID)
	if err != nil {
		s.abortWith(c, err)
		return
	}
	ownerReq := requester.ID == circle.OwnerID
	memberReq := contains(requester.Circles, circle.ID)
	if !ownerReq && !(memberReq && circle.MembersCanPing) {
		s.abortWith(c, apperrors.NewAuthorization("insufficient permissions"))
		return
	}

	if err := s.engine.CreateEvent(ctx, event); err != nil {
		s.abortWith(c, err)
		return
	}

	if tokens := s.tokensFor(ctx, circle.Members, requester.ID); len(tokens) > 0 {
		go s.notifier.EventInvite(context.Background(), tokens, event.DisplayName, circle.DisplayName)
	}

	success(c)
}

// getEvent returns an event or one of its subresources. Visible to
// the owner and invitees.
func (s *Server) getEvent(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	event, err := s.engine.GetEvent(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	ownerReq := requester.ID == event.OwnerID
	guestReq := false
	for _, inv := range requester.Invites {
		if inv.ID == event.ID {
			guestReq = true
			break
		}
	}
	if !ownerReq && !guestReq {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized event request"))
		return
	}

	resource := c.Param("resource")
	switch resource {
	case "":
		rendered, err := s.engine.RenderEvent(ctx, event)
		if err != nil {
			s.abortWith(c, err)
			return
		}
		c.JSON(http.StatusOK, rendered)
	case resourceCircle, resourceCircles:
		circle, err := s.engine.GetCircle(ctx, event.CircleID)
		if err != nil {
			s.abortWith(c, err)
			return
		}
		c.JSON(http.StatusOK, circle.JSON())
	case resourcePeople:
		people := make(map[string]bool, len(event.Invitees))
		for _, inv := range event.Invitees {
			people[inv.ID] = inv.Attending
		}
		c.JSON(http.StatusOK, people)
	default:
		s.abortWith(c, apperrors.NewNotFound("resource", resource))
	}
}

// putEvent replaces an event wholesale. Owner and invitees may update
// it (invitees change their attendance this way).
func (s *Server) putEvent(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	persisted, err := s.engine.GetEvent(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	ownerReq := requester.ID == persisted.OwnerID
	guestReq := false
	for _, inv := range requester.Invites {
		if inv.ID == persisted.ID {
			guestReq = true
			break
		}
	}
	if !ownerReq && !guestReq {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized event request"))
		return
	}

	payload, ok := bindPayload(c)
	if !ok {
		return
	}
	transient, err := social.EventFromJSON(payload)
	if err != nil {
		s.abortWith(c, err)
		return
	}

	if err := s.engine.ReplaceEvent(ctx, persisted, transient); err != nil {
		s.abortWith(c, err)
		return
	}

	success(c)
}

// deleteEvent removes an event. Owner only.
func (s *Server) deleteEvent(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	event, err := s.engine.GetEvent(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	if requester.ID != event.OwnerID {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized event deletion request"))
		return
	}
	if err := s.engine.DeleteEvent(ctx, event.ID); err != nil {
		s.abortWith(c, err)
		return
	}

	success(c)
}
