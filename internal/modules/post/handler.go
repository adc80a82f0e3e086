package post

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tracking-moments/core/internal/middleware"
	"github.com/tracking-moments/core/internal/modules/storage/upload"
	"github.com/tracking-moments/core/internal/pkg/response"
)

type Handler struct {
	svc    *Service
	images *upload.Store
}

func NewHandler(svc *Service, images *upload.Store) *Handler {
	return &Handler{svc: svc, images: images}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	posts := rg.Group("/posts")

	posts.GET("/:id", h.getByID)
	posts.GET("/user/:userId", h.listActive)

	authed := posts.Group("", authMW)
	authed.POST("", h.create)
	authed.PUT("/:id", h.update)
	authed.PATCH("/:id", h.setArchived)
	authed.PATCH("/:id/restore", h.restore)
	authed.DELETE("/:id", h.delete)
	authed.GET("/user/:userId/archived", h.listArchived)
}

func (h *Handler) create(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	description := strings.TrimSpace(c.PostForm("description"))
	if title == "" || description == "" {
		response.BadRequest(c, "title and description are required")
		return
	}

	dto := CreatePostDTO{Title: title, Description: description}

	if raw := strings.TrimSpace(c.PostForm("post_date")); raw != "" {
		d, err := time.Parse(PostDateLayout, raw)
		if err != nil {
			response.BadRequest(c, "post_date must be YYYY-MM-DD")
			return
		}
		dto.PostDate = &d
	}

	ref, ok := h.saveImage(c)
	if !ok {
		return
	}
	dto.Image = ref

	p, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, p)
}

func (h *Handler) getByID(c *gin.Context) {
	p, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFoundMsg(c, ErrNotFound.Error())
		return
	}
	response.OK(c, p)
}

func (h *Handler) listActive(c *gin.Context) {
	posts, err := h.svc.ListByOwner(c.Param("userId"), false)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, posts)
}

func (h *Handler) listArchived(c *gin.Context) {
	ownerID := c.Param("userId")
	if ownerID != middleware.CurrentUserID(c) {
		response.ForbiddenMsg(c, "you can only view your own archived posts")
		return
	}
	posts, err := h.svc.ListByOwner(ownerID, true)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, posts)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdatePostDTO

	if v, present := c.GetPostForm("title"); present {
		title := strings.TrimSpace(v)
		if title == "" {
			response.BadRequest(c, "title must not be empty")
			return
		}
		dto.Title = &title
	}
	if v, present := c.GetPostForm("description"); present {
		description := v
		dto.Description = &description
	}
	if v, present := c.GetPostForm("post_date"); present {
		d, err := time.Parse(PostDateLayout, strings.TrimSpace(v))
		if err != nil {
			response.BadRequest(c, "post_date must be YYYY-MM-DD")
			return
		}
		dto.PostDate = &d
	}

	ref, ok := h.saveImage(c)
	if !ok {
		return
	}
	dto.Image = ref

	p, err := h.svc.Update(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) setArchived(c *gin.Context) {
	var body struct {
		IsArchived *bool `json:"is_archived" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "is_archived is required")
		return
	}
	if err := h.svc.SetArchived(c.Param("id"), middleware.CurrentUserID(c), *body.IsArchived); err != nil {
		h.writeDomainError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) restore(c *gin.Context) {
	if err := h.svc.Restore(c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		h.writeDomainError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		h.writeDomainError(c, err)
		return
	}
	response.NoContent(c)
}

// saveImage stores the optional "image" form file. A false return means
// the response was already written.
func (h *Handler) saveImage(c *gin.Context) (*upload.ImageRef, bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, true
		}
		response.BadRequest(c, "invalid image upload")
		return nil, false
	}
	ref, err := h.images.SaveImage(c.Request.Context(), fh)
	if err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	return ref, true
}

func (h *Handler) writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, ErrNotFound.Error())
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c)
	default:
		response.InternalError(c, err)
	}
}
