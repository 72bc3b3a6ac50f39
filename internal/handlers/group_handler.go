package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/group"
	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/response"
	"github.com/quorumapp/quorum-api/internal/storage/postgres"
	"github.com/quorumapp/quorum-api/internal/validation"
)

type GroupHandler struct {
	groupRepo postgres.GroupRepository
	validator validation.GroupValidation
	log       *log.Logger
}

func NewGroupHandler(groupRepo postgres.GroupRepository) *GroupHandler {
	return &GroupHandler{
		groupRepo: groupRepo,
		log:       logger.Handler("group_handler"),
	}
}

type CreateGroupRequest struct {
	Name    string   `json:"name" binding:"required"`
	Members []string `json:"members" binding:"required,min=1"`
}

// CreateGroup handles POST /api/groups
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.validator.ValidateGroupName(req.Name); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	newGroup := group.NewGroup(req.Name, req.Members)
	if err := newGroup.Validate(); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	if err := h.groupRepo.Create(c.Request.Context(), newGroup); err != nil {
		h.log.Error("Failed to create group", "error", err)
		response.InternalServerError(c, "Failed to create group")
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Group created", newGroup)
}

// GetGroup handles GET /api/groups/{group_id}
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("group_id"))
	if err != nil {
		response.BadRequestError(c, "group_id must be a valid UUID")
		return
	}

	grp, err := h.groupRepo.Get(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, group.ErrNotFound) {
			response.NotFoundError(c, "Group not found")
			return
		}
		h.log.Error("Failed to get group", "group_id", groupID, "error", err)
		response.InternalServerError(c, "Failed to retrieve group")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", grp)
}

// DeleteGroup handles DELETE /api/groups/{group_id}. Pending entries of the
// group's events are cleaned up lazily by the scanner.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("group_id"))
	if err != nil {
		response.BadRequestError(c, "group_id must be a valid UUID")
		return
	}

	if err := h.groupRepo.Delete(c.Request.Context(), groupID); err != nil {
		if errors.Is(err, group.ErrNotFound) {
			response.NotFoundError(c, "Group not found")
			return
		}
		h.log.Error("Failed to delete group", "group_id", groupID, "error", err)
		response.InternalServerError(c, "Failed to delete group")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Group deleted", nil)
}
