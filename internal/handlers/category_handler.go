package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumapp/quorum-api/internal/domain/category"
	"github.com/quorumapp/quorum-api/internal/domain/common"
	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/middleware/identity"
	"github.com/quorumapp/quorum-api/internal/response"
	"github.com/quorumapp/quorum-api/internal/storage/postgres"
	"github.com/quorumapp/quorum-api/internal/validation"
)

type CategoryHandler struct {
	categoryRepo postgres.CategoryRepository
	groupRepo    postgres.GroupRepository
	log          *log.Logger
}

func NewCategoryHandler(categoryRepo postgres.CategoryRepository, groupRepo postgres.GroupRepository) *CategoryHandler {
	return &CategoryHandler{
		categoryRepo: categoryRepo,
		groupRepo:    groupRepo,
		log:          logger.Handler("category_handler"),
	}
}

type CreateCategoryRequest struct {
	Name    string            `json:"name" binding:"required"`
	Choices map[string]string `json:"choices" binding:"required,min=1"`
}

// CreateCategory handles POST /api/groups/{group_id}/categories. Choice ids
// may be omitted as map keys equal to the label; a UUID is generated when the
// key is empty.
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("group_id"))
	if err != nil {
		response.BadRequestError(c, "group_id must be a valid UUID")
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}

	if _, err := h.groupRepo.Get(c.Request.Context(), groupID); err != nil {
		response.NotFoundError(c, "Group not found")
		return
	}

	choices := make(common.ChoiceMap, len(req.Choices))
	for id, label := range req.Choices {
		if id == "" {
			id = uuid.NewString()
		}
		choices[id] = label
	}

	newCategory := category.NewCategory(groupID, req.Name, choices)
	if err := newCategory.Validate(); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	if err := h.categoryRepo.Create(c.Request.Context(), newCategory); err != nil {
		h.log.Error("Failed to create category", "error", err)
		response.InternalServerError(c, "Failed to create category")
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Category created", newCategory)
}

type PutRatingRequest struct {
	Value int `json:"value"`
}

// PutRating handles PUT /api/categories/{category_id}/choices/{choice_id}/rating.
// The acting member comes from the bearer token.
func (h *CategoryHandler) PutRating(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("category_id"))
	if err != nil {
		response.BadRequestError(c, "category_id must be a valid UUID")
		return
	}
	choiceID := c.Param("choice_id")

	username, ok := identity.Username(c)
	if !ok {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	var req PutRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload: "+err.Error())
		return
	}
	if err := validation.ValidateRating(req.Value); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	cat, err := h.categoryRepo.Get(c.Request.Context(), categoryID)
	if err != nil {
		if errors.Is(err, category.ErrNotFound) {
			response.NotFoundError(c, "Category not found")
			return
		}
		response.InternalServerError(c, "Failed to retrieve category")
		return
	}
	if _, exists := cat.Choices[choiceID]; !exists {
		response.NotFoundError(c, "Choice not found in category")
		return
	}

	rating := &category.Rating{ChoiceID: choiceID, Username: username, Value: req.Value}
	if err := h.categoryRepo.PutRating(c.Request.Context(), rating); err != nil {
		h.log.Error("Failed to store rating", "choice_id", choiceID, "error", err)
		response.InternalServerError(c, "Failed to store rating")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Rating stored", rating)
}
