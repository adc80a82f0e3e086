package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tracking-moments/core/internal/middleware"
	"github.com/tracking-moments/core/internal/modules/auth"
	"github.com/tracking-moments/core/internal/modules/favorite"
	"github.com/tracking-moments/core/internal/modules/post"
	"github.com/tracking-moments/core/internal/modules/storage/upload"
	"github.com/tracking-moments/core/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "tracking-moments",
		"version": "1.0.0",
	}

	images := upload.NewStore(a.cfg)
	r.Static(upload.URLPrefix, images.LocalDir())

	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.RateLimit(a.rc.Raw()))
	api.Use(middleware.Idempotence(a.rc.Raw()))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })

	auth.NewHandler(auth.NewService(db)).RegisterRoutes(api, authMW)
	post.NewHandler(post.NewService(db), images).RegisterRoutes(api, authMW)
	favorite.NewHandler(favorite.NewService(db)).RegisterRoutes(api, authMW)
}
