package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/response"
	"github.com/quorumapp/quorum-api/internal/scheduler"
	"github.com/quorumapp/quorum-api/internal/storage/postgres"
	"github.com/quorumapp/quorum-api/internal/validation"
)

type EventHandler struct {
	sched     *scheduler.Scheduler
	eventRepo postgres.EventRepository
	validator validation.EventValidation
	log       *log.Logger
}

func NewEventHandler(sched *scheduler.Scheduler, eventRepo postgres.EventRepository) *EventHandler {
	return &EventHandler{
		sched:     sched,
		eventRepo: eventRepo,
		validator: validation.EventValidation{},
		log:       logger.Handler("event_handler"),
	}
}

type CreateEventRequest struct {
	Name              string `json:"name" binding:"required"`
	CategoryID        string `json:"category_id" binding:"required"`
	RSVPDurationMin   int    `json:"rsvp_duration_min"`
	VotingDurationMin int    `json:"voting_duration_min"`
}

// eventPayload decorates an event with its derived stage so clients never
// have to re-derive it.
type eventPayload struct {
	*event.Event
	Stage string `json:"stage"`
}

func newEventPayload(ev *event.Event) eventPayload {
	return eventPayload{Event: ev, Stage: ev.Stage().String()}
}

// CreateEvent handles POST /api/groups/{group_id}/events. With a zero RSVP
// duration the event comes back already advanced past the consider stage.
func (h *EventHandler) CreateEvent(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("group_id"))
	if err != nil {
		response.BadRequestError(c, "group_id must be a valid UUID")
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.validator.ValidateEventName(req.Name); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if err := validation.ValidateDuration(req.RSVPDurationMin, "rsvp_duration_min"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if err := validation.ValidateDuration(req.VotingDurationMin, "voting_duration_min"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		response.BadRequestError(c, "category_id must be a valid UUID")
		return
	}

	ev, outcome, err := h.sched.OnEventCreated(c.Request.Context(), scheduler.CreateEventParams{
		GroupID:           groupID,
		CategoryID:        categoryID,
		Name:              req.Name,
		RSVPDurationMin:   req.RSVPDurationMin,
		VotingDurationMin: req.VotingDurationMin,
	})
	if err != nil {
		h.log.Error("Failed to create event", "group_id", groupID, "error", err)
		response.InternalServerError(c, "Failed to create event")
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Event created", gin.H{
		"event":   newEventPayload(ev),
		"outcome": outcome.Kind.String(),
	})
}

// GetEvent handles GET /api/groups/{group_id}/events/{event_id}
func (h *EventHandler) GetEvent(c *gin.Context) {
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

	ev, err := h.eventRepo.Get(c.Request.Context(), groupID, eventID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			response.NotFoundError(c, "Event not found")
			return
		}
		h.log.Error("Failed to retrieve event", "event_id", eventID, "error", err)
		response.InternalServerError(c, "Failed to retrieve event")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Event retrieved", newEventPayload(ev))
}

// ListEvents handles GET /api/groups/{group_id}/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("group_id"))
	if err != nil {
		response.BadRequestError(c, "group_id must be a valid UUID")
		return
	}

	events, err := h.eventRepo.GetByGroup(c.Request.Context(), groupID)
	if err != nil {
		h.log.Error("Failed to list events", "group_id", groupID, "error", err)
		response.InternalServerError(c, "Failed to list events")
		return
	}

	payload := make([]eventPayload, 0, len(events))
	for _, ev := range events {
		payload = append(payload, newEventPayload(ev))
	}
	response.SuccessResponse(c, http.StatusOK, "Events retrieved", payload)
}
