package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/middleware/identity"
	"github.com/quorumapp/quorum-api/internal/response"
	"github.com/quorumapp/quorum-api/internal/scheduler"
	"github.com/quorumapp/quorum-api/internal/validation"
)

type VoteHandler struct {
	sched *scheduler.Scheduler
	log   *log.Logger
}

func NewVoteHandler(sched *scheduler.Scheduler) *VoteHandler {
	return &VoteHandler{
		sched: sched,
		log:   logger.Handler("vote_handler"),
	}
}

type CastVoteRequest struct {
	ChoiceID string `json:"choice_id" binding:"required"`
	Value    int    `json:"value"`
}

// CastVote handles POST /api/groups/{group_id}/events/{event_id}/votes. The
// voter comes from the bearer token, never from the payload.
func (h *VoteHandler) CastVote(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("group_id"))
	if err != nil {
		response.BadRequestError(c, "group_id must be a valid UUID")
		return
	}
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.BadRequestError(c, "event_id must be a valid UUID")
		return
	}

	username, ok := identity.Username(c)
	if !ok {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}
	if err := validation.ValidateVoteValue(req.Value); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	err = h.sched.OnVoteCast(c.Request.Context(), groupID, eventID, req.ChoiceID, username, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			response.NotFoundError(c, "Event not found")
		case errors.Is(err, event.ErrWrongStage):
			response.ConflictError(c, "Event is not accepting votes")
		case errors.Is(err, event.ErrAlreadyResolved):
			response.ConflictError(c, "Event already resolved")
		default:
			h.log.Error("Failed to cast vote", "event_id", eventID, "error", err)
			response.BadRequestError(c, err.Error())
		}
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Vote recorded", gin.H{
		"event_id":  eventID,
		"choice_id": req.ChoiceID,
		"value":     req.Value,
	})
}
