package favorite

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

// All favorite routes act on the caller's own relation, so everything
// sits behind the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	favs := rg.Group("/favorites", authMW)

	favs.GET("", h.list)
	favs.POST("/:postId", h.add)
	favs.DELETE("/:postId", h.remove)
}

func (h *Handler) add(c *gin.Context) {
	err := h.svc.Add(middleware.CurrentUserID(c), c.Param("postId"))
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			response.NotFoundMsg(c, ErrPostNotFound.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Remove(middleware.CurrentUserID(c), c.Param("postId")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) list(c *gin.Context) {
	posts, err := h.svc.ListByUser(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, posts)
}
