package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkarlsen/userdeck/internal/config"
	"github.com/mkarlsen/userdeck/internal/models"
	"github.com/mkarlsen/userdeck/internal/services"
	"github.com/mkarlsen/userdeck/internal/utils"
	"github.com/mkarlsen/userdeck/pkg/response"
)

type UserHandler struct {
	userService   *services.UserService
	searchService *services.SearchService
	serverCfg     *config.ServerConfig
}

func NewUserHandler(userService *services.UserService, searchService *services.SearchService, serverCfg *config.ServerConfig) *UserHandler {
	return &UserHandler{
		userService:   userService,
		searchService: searchService,
		serverCfg:     serverCfg,
	}
}

// UserListResponse is the paginated directory envelope.
type UserListResponse struct {
	Items []models.User          `json:"items"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
	Links []utils.PaginationLink `json:"links"`
}

// List handles the fixed-filter directory search driven by query parameters.
func (h *UserHandler) List(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	h.respondPage(c, filter, skip, limit)
}

// SearchRequest is the advanced-search body: the same closed filter set plus
// the pagination window.
type SearchRequest struct {
	services.SearchFilter
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Search handles the advanced directory search with a JSON filter body. It
// produces identical results to List for the same effective filter set.
func (h *UserHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Role != "" && !models.ValidRole(req.Role) {
		response.BadRequest(c, services.ErrInvalidRole.Error())
		return
	}

	h.respondPage(c, req.SearchFilter, req.Skip, req.Limit)
}

func (h *UserHandler) respondPage(c *gin.Context, filter services.SearchFilter, skip, limit int) {
	skip, limit = services.NormalizePage(skip, limit)

	total, users, err := h.searchService.Search(filter, skip, limit)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	baseURL := h.baseURL(c)

	c.JSON(200, UserListResponse{
		Items: users,
		Total: total,
		Page:  skip/limit + 1,
		Size:  limit,
		Links: utils.BuildPaginationLinks(baseURL, skip, limit, total),
	})
}

// baseURL derives the absolute URL for pagination links, preferring the
// configured external base URL over the incoming request's host.
func (h *UserHandler) baseURL(c *gin.Context) string {
	if h.serverCfg.BaseURL != "" {
		return h.serverCfg.BaseURL + c.Request.URL.Path
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, c.Request.URL.Path)
}

// filterFromQuery builds the typed filter from query parameters. Both the
// created_from/created_to and registration_date_start/registration_date_end
// spellings are accepted.
func filterFromQuery(c *gin.Context) (services.SearchFilter, error) {
	filter := services.SearchFilter{
		Username: c.Query("username"),
		Email:    c.Query("email"),
		Role:     c.Query("role"),
	}

	if filter.Role != "" && !models.ValidRole(filter.Role) {
		return filter, services.ErrInvalidRole
	}

	if raw := c.Query("is_locked"); raw != "" {
		locked, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid is_locked value: %q", raw)
		}
		filter.IsLocked = &locked
	}

	from := c.Query("created_from")
	if from == "" {
		from = c.Query("registration_date_start")
	}
	if from != "" {
		t, err := parseTime(from)
		if err != nil {
			return filter, fmt.Errorf("invalid created_from value: %q", from)
		}
		filter.CreatedFrom = &t
	}

	to := c.Query("created_to")
	if to == "" {
		to = c.Query("registration_date_end")
	}
	if to != "" {
		t, err := parseTime(to)
		if err != nil {
			return filter, fmt.Errorf("invalid created_to value: %q", to)
		}
		filter.CreatedTo = &t
	}

	return filter, nil
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// GetByID returns a single user.
func (h *UserHandler) GetByID(c *gin.Context) {
	user, err := h.userService.GetByID(c.Param("id"))
	if err != nil {
		response.Error(c, translateUserError(err))
		return
	}
	response.Success(c, user)
}

// Update applies a partial patch to a user.
func (h *UserHandler) Update(c *gin.Context) {
	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Update(c.Param("id"), &req)
	if err != nil {
		response.Error(c, translateUserError(err))
		return
	}

	response.Success(c, user)
}

// Delete removes a user.
func (h *UserHandler) Delete(c *gin.Context) {
	deleted, err := h.userService.Delete(c.Param("id"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if !deleted {
		response.NotFound(c, "user not found")
		return
	}
	response.Success(c, gin.H{"message": "user deleted"})
}

type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyEmail redeems a verification token for the given user.
func (h *UserHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ok, err := h.userService.VerifyEmail(c.Param("id"), req.Token)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if !ok {
		response.BadRequest(c, "invalid verification token")
		return
	}

	response.Success(c, gin.H{"message": "email verified"})
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ResetPassword stores a new password and clears any lockout.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ok, err := h.userService.ResetPassword(c.Param("id"), req.Password)
	if err != nil {
		response.Error(c, translateUserError(err))
		return
	}
	if !ok {
		response.NotFound(c, "user not found")
		return
	}

	response.Success(c, gin.H{"message": "password reset"})
}

// Unlock clears a lockout. Already-unlocked accounts report not found to
// match the unlock-in-need semantics.
func (h *UserHandler) Unlock(c *gin.Context) {
	ok, err := h.userService.Unlock(c.Param("id"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if !ok {
		response.NotFound(c, "user not found or not locked")
		return
	}

	response.Success(c, gin.H{"message": "account unlocked"})
}

// Anonymize irreversibly scrubs a user's identifying fields.
func (h *UserHandler) Anonymize(c *gin.Context) {
	user, err := h.userService.Anonymize(c.Param("id"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}

	response.Success(c, user)
}
