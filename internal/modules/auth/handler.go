package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tracking-moments/core/internal/middleware"
	"github.com/tracking-moments/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/logout", authMW, h.logout)
	a.GET("/session", h.session)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, ErrEmailTaken.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, UserSummary{ID: u.ID, Name: u.Name, Email: u.Email})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Email, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.UnauthorizedMsg(c, ErrInvalidCredentials.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{
		Token: token,
		User:  UserSummary{ID: u.ID, Name: u.Name, Email: u.Email},
	})
}

func (h *Handler) logout(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	sessionID := middleware.CurrentSessionID(c)
	if sessionID != "" {
		if err := h.svc.Logout(userID, sessionID); err != nil {
			response.InternalError(c, err)
			return
		}
	}
	response.OK(c, gin.H{"success": true})
}

// session returns the authenticated user summary, or null for anonymous
// callers. Registered behind OptionalAuth on the api group.
func (h *Handler) session(c *gin.Context) {
	if !middleware.IsAuthenticated(c) {
		response.OK(c, nil)
		return
	}
	u, err := h.svc.GetUser(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.OK(c, nil)
		return
	}
	response.OK(c, UserSummary{ID: u.ID, Name: u.Name, Email: u.Email})
}
