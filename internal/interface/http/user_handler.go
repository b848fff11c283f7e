package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-ddd-user-service/internal/application"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/go-ddd-user-service/pkg/response"
	"github.com/oksasatya/go-ddd-user-service/pkg/validation"
)

// UserSearcher is the read side of the search index.
type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]elasticsearch.UserDocument, error)
}

type UserHandler struct {
	Svc      *userapp.Service
	Searcher UserSearcher // nil disables /users/search
	Logger   *logrus.Logger

	DefaultLimit int
	MaxLimit     int
}

func NewUserHandler(svc *userapp.Service, searcher UserSearcher, logger *logrus.Logger, defaultLimit, maxLimit int) *UserHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &UserHandler{Svc: svc, Searcher: searcher, Logger: logger, DefaultLimit: defaultLimit, MaxLimit: maxLimit}
}

type createUserRequest struct {
	Email string `json:"email" binding:"required,max=255"`
	Name  string `json:"name" binding:"required,max=100"`
}

type updateUserRequest struct {
	Email *string `json:"email" binding:"omitempty,max=255"`
	Name  *string `json:"name" binding:"omitempty,max=100"`
}

type listUsersQuery struct {
	Limit  *int   `form:"limit" binding:"omitempty,min=1"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Status string `form:"status" binding:"omitempty,userstatus"`
}

type searchUsersQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(u userapp.UserOutput) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), userapp.CreateUserInput{Email: req.Email, Name: req.Name})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toResponse(u), "user created", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(u), "user", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	limit := h.DefaultLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit > h.MaxLimit {
		response.Error[any](c, http.StatusBadRequest, "invalid query", map[string]string{"limit": "must be at most " + strconv.Itoa(h.MaxLimit)})
		return
	}

	page, err := h.Svc.ListUsers(c.Request.Context(), userapp.ListUsersInput{Limit: limit, Offset: q.Offset, Status: q.Status})
	if err != nil {
		h.writeError(c, err)
		return
	}
	data := make([]userResponse, 0, len(page.Data))
	for _, u := range page.Data {
		data = append(data, toResponse(u))
	}
	response.Success(c, http.StatusOK, data, "users", response.PageMeta{
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.HasMore(),
	})
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), userapp.UpdateUserInput{Email: req.Email, Name: req.Name})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(u), "user updated", nil)
}

func (h *UserHandler) Activate(c *gin.Context) {
	u, err := h.Svc.ActivateUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(u), "user activated", nil)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	u, err := h.Svc.DeactivateUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(u), "user deactivated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Search queries the search index. Results may trail the primary store by
// however long the events worker takes to catch up.
func (h *UserHandler) Search(c *gin.Context) {
	if h.Searcher == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "search is not configured", nil)
		return
	}
	var q searchUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	docs, err := h.Searcher.Search(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("user search failed")
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	data := make([]userResponse, 0, len(docs))
	for _, d := range docs {
		data = append(data, userResponse{
			ID:        d.ID,
			Email:     d.Email,
			Name:      d.Name,
			Status:    d.Status,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}
	response.Success(c, http.StatusOK, data, "search results", nil)
}

// writeError maps use-case errors onto HTTP statuses.
func (h *UserHandler) writeError(c *gin.Context, err error) {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error[any](c, http.StatusBadRequest, "validation failed", map[string]string{verr.Field: verr.Reason})
	case errors.Is(err, entity.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, entity.ErrDuplicateEmail):
		response.Error[any](c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, entity.ErrInvalidStateTransition):
		response.Error[any](c, http.StatusConflict, err.Error(), nil)
	default:
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("user request failed")
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}
