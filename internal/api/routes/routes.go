package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/techfinder/internal/api/handlers"
	"github.com/yoockh/techfinder/internal/api/middleware"
)

type Deps struct {
	Auth     middleware.JWTOptions
	Session  *handlers.SessionHandler
	Profile  *handlers.ProfileHandler
	Search   *handlers.SearchHandler
	Favorite *handlers.FavoriteHandler
	WS       *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.Auth))

	auth.GET("/session", d.Session.Get)
	auth.POST("/session/logout", d.Session.Logout)

	auth.GET("/contractors", d.Profile.Contractors)
	auth.GET("/contractors/:id", d.Profile.Contractor)
	auth.GET("/recruiters", d.Profile.Recruiters)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile/me", d.Profile.Update)
	auth.POST("/profile/me/picture", d.Profile.UploadPicture)
	auth.GET("/profile/:identity", d.Profile.ByIdentity)

	auth.POST("/search", d.Search.Search)
	auth.GET("/search/last", d.Search.Last)
	auth.DELETE("/search/last", d.Search.Clear)

	auth.GET("/favorites", d.Favorite.List)
	auth.GET("/favorites/:techId", d.Favorite.Get)
	auth.POST("/favorites/:techId/toggle", d.Favorite.Toggle)

	// WebSocket
	auth.GET("/ws/search", d.WS.Search)
}
