package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"circles/backend/internal/social"
	apperrors "circles/backend/pkg/errors"
)

// Subresource names.
const (
	resourceCircles = "circles"
	resourceCircle  = "circle"
	resourceEvents  = "events"
	resourcePeople  = "people"
)

// postUser creates a new account.
func (s *Server) postUser(c *gin.Context) {
	payload, ok := bindPayload(c)
	if !ok {
		return
	}

	p, err := social.PersonFromJSON(payload)
	if err != nil {
		s.abortWith(c, err)
		return
	}
	if err := s.engine.CreatePerson(c.Request.Context(), p); err != nil {
		s.abortWith(c, err)
		return
	}

	success(c)
}

// getUser returns a person, full for themselves and limited for
// everyone else, or one of their subresource lists (self only).
func (s *Server) getUser(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	person, err := s.engine.GetPerson(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	selfReq := requester.ID == person.ID

	resource := c.Param("resource")
	if resource == "" {
		if selfReq {
			c.JSON(http.StatusOK, person.JSON())
		} else {
			c.JSON(http.StatusOK, person.JSONLimited())
		}
		return
	}

	if !selfReq {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized resource access"))
		return
	}

	switch resource {
	case resourceCircles:
		out := make([]map[string]any, 0, len(person.Circles))
		for _, id := range person.Circles {
			circle, err := s.engine.GetCircle(ctx, id)
			if err != nil {
				s.abortWith(c, err)
				return
			}
			out = append(out, circle.JSON())
		}
		c.JSON(http.StatusOK, out)
	case resourceEvents:
		out := make([]map[string]any, 0, len(person.Invites))
		for _, inv := range person.Invites {
			event, err := s.engine.GetEvent(ctx, inv.ID)
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
	case resourcePeople:
		out := make([]map[string]any, 0, len(person.Knows))
		for _, id := range person.Knows {
			known, err := s.engine.GetPerson(ctx, id)
			if err != nil {
				s.abortWith(c, err)
				return
			}
			out = append(out, known.JSONLimited())
		}
		c.JSON(http.StatusOK, out)
	default:
		s.abortWith(c, apperrors.NewNotFound("resource", resource))
	}
}

// putUser replaces a person wholesale. People newly present in the
// KNOWS set get a friend notification.
func (s *Server) putUser(c *gin.Context) {
	ctx := c.Request.Context()
	requester := s.requester(c)

	persisted, err := s.engine.GetPerson(ctx, c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	if requester.ID != persisted.ID {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized modification request"))
		return
	}

	payload, ok := bindPayload(c)
	if !ok {
		return
	}
	transient, err := social.PersonFromJSON(payload)
	if err != nil {
		s.abortWith(c, err)
		return
	}

	// Delta before the destructive edge rewrite.
	newlyAdded := social.NewlyAdded(persisted.Knows, transient.Knows)

	if err := s.engine.ReplacePerson(ctx, persisted, transient); err != nil {
		s.abortWith(c, err)
		return
	}

	if tokens := s.tokensFor(ctx, newlyAdded, requester.ID); len(tokens) > 0 {
		go s.notifier.NewFriend(context.Background(), tokens, requester.DisplayName)
	}

	success(c)
}

// deleteUser removes a person's own account.
func (s *Server) deleteUser(c *gin.Context) {
	requester := s.requester(c)
	id := c.Param("id")

	if requester.ID != id {
		s.abortWith(c, apperrors.NewAuthorization("unauthorized deletion request"))
		return
	}
	if err := s.engine.DeletePerson(c.Request.Context(), id); err != nil {
		s.abortWith(c, err)
		return
	}

	success(c)
}

// getID returns the requester's id and registers the messaging token
// sent in the Messaging header.
func (s *Server) getID(c *gin.Context) {
	requester := s.requester(c)

	if token := c.GetHeader("Messaging"); token != "" {
		if err := s.engine.SetMessagingToken(c.Request.Context(), requester.ID, token); err != nil {
			s.abortWith(c, err)
			return
		}
	}

	c.String(http.StatusOK, requester.ID)
}
