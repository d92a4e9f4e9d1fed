package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkarlsen/userdeck/internal/config"
	"github.com/mkarlsen/userdeck/internal/middleware"
	"github.com/mkarlsen/userdeck/internal/services"
	"github.com/mkarlsen/userdeck/internal/utils"
	"github.com/mkarlsen/userdeck/pkg/response"
)

type AuthHandler struct {
	userService *services.UserService
	jwtCfg      *config.JWTConfig
}

func NewAuthHandler(userService *services.UserService, jwtCfg *config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtCfg:      jwtCfg,
	}
}

// Register creates a new account and dispatches the verification email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Create(&req)
	if err != nil {
		response.Error(c, translateUserError(err))
		return
	}

	response.Created(c, user)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string      `json:"token"`
	User     interface{} `json:"user"`
	ExpireAt time.Time   `json:"expire_at"`
}

// Login authenticates by email and password and issues a bearer token
// carrying the user id and role.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Login(req.Email, req.Password)
	if err != nil {
		// An unknown email is reported as bad credentials so the endpoint
		// does not leak which addresses are registered.
		if errors.Is(err, services.ErrUserNotFound) {
			response.Unauthorized(c, services.ErrInvalidCredentials.Error())
			return
		}
		response.Error(c, translateUserError(err))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role, h.jwtCfg.ExpireHour)
	if err != nil {
		response.ServerError(c, "failed to issue token")
		return
	}

	response.Success(c, LoginResponse{
		Token:    token,
		User:     user,
		ExpireAt: time.Now().Add(time.Duration(h.jwtCfg.ExpireHour) * time.Hour),
	})
}

// GetCurrentUser returns the authenticated caller's profile.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.userService.GetByID(userID)
	if err != nil {
		response.Error(c, translateUserError(err))
		return
	}

	response.Success(c, user)
}

// translateUserError maps service-level sentinel errors onto structured API
// errors. Anything unmapped surfaces as a 500 so callers can retry.
func translateUserError(err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidNickname),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrEmptyUpdate),
		errors.Is(err, services.ErrInvalidProfilePicture),
		errors.Is(err, services.ErrInvalidURL),
		errors.Is(err, services.ErrInvalidRole):
		return response.NewBadRequest(err.Error())
	case errors.Is(err, services.ErrBioTooLong):
		return response.NewUnprocessable(err.Error())
	case errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrDuplicateNickname):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		return response.NewNotFound(err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.NewUnauthorized(err.Error())
	case errors.Is(err, services.ErrEmailNotVerified),
		errors.Is(err, services.ErrAccountLocked):
		return response.NewForbidden(err.Error())
	default:
		return response.NewServerError(err.Error())
	}
}
