package core

import (
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"

	"github.com/adamwrona/galleria/config"
	"github.com/adamwrona/galleria/database/repo/accounts"
	"github.com/adamwrona/galleria/database/repo/comments"
	"github.com/adamwrona/galleria/database/repo/galleries"
	"github.com/adamwrona/galleria/database/repo/images"
	"github.com/adamwrona/galleria/database/repo/stats"
	"github.com/adamwrona/galleria/internal/auth"
	"github.com/adamwrona/galleria/internal/policy"
	"github.com/adamwrona/galleria/storage/local"
	"github.com/adamwrona/galleria/web/handlers"
	"github.com/adamwrona/galleria/web/middleware"
)

// RouterDependencies carries everything route registration needs.
type RouterDependencies struct {
	AccountsRepo  *accounts.Repository
	GalleriesRepo *galleries.Repository
	ImagesRepo    *images.Repository
	CommentsRepo  *comments.Repository
	StatsRepo     *stats.Repository

	Tokens          *auth.TokenService
	Login           *auth.LoginService
	Storage         *local.Storage
	AuthRateLimiter *middleware.IPRateLimiter
	Config          *config.Config
}

// RegisterRoutes wires the full route surface onto the engine.
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	cfg := deps.Config

	userHandler := handlers.NewUserHandler(deps.AccountsRepo, deps.Login, cfg.AuthCookieMaxAge)
	galleryHandler := handlers.NewGalleryHandler(deps.GalleriesRepo, deps.ImagesRepo, deps.AccountsRepo)
	imageHandler := handlers.NewImageHandler(deps.ImagesRepo, deps.GalleriesRepo, deps.CommentsRepo, deps.Storage, cfg.UploadMaxSizeMB)
	commentHandler := handlers.NewCommentHandler(deps.CommentsRepo, deps.ImagesRepo)
	statsHandler := handlers.NewStatsHandler(deps.StatsRepo)

	// Every page resolves the identity; it never rejects on its own.
	router.Use(middleware.Authenticate(deps.Tokens, deps.AccountsRepo))

	router.GET("/", handlers.Home)

	router.Static(local.WebPrefix, deps.Storage.BasePath())
	router.GET("/api-docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	usersGroup := router.Group("/users")
	{
		// Login and logout are open; management pages are admin only.
		loginGroup := usersGroup.Group("")
		loginGroup.Use(deps.AuthRateLimiter.Middleware())
		{
			loginGroup.GET("/user_login", userHandler.LoginGet)
			loginGroup.POST("/user_login", userHandler.LoginPost)
		}
		usersGroup.GET("/user_logout", userHandler.LogoutGet)

		usersGroup.GET("/", middleware.Authorize(policy.UserList), userHandler.List)
		usersGroup.GET("/user_add", middleware.Authorize(policy.UserCreate), userHandler.AddGet)
		usersGroup.POST("/user_add", middleware.Authorize(policy.UserCreate), userHandler.AddPost)
		usersGroup.POST("/user_delete/:user_id", userHandler.DeletePost)
	}

	galleriesGroup := router.Group("/galleries")
	{
		galleriesGroup.GET("/", galleryHandler.List)
		galleriesGroup.GET("/gallery_add", galleryHandler.AddGet)
		galleriesGroup.POST("/gallery_add", galleryHandler.AddPost)
		galleriesGroup.GET("/gallery_browse", galleryHandler.BrowseGet)
		galleriesGroup.POST("/gallery_browse", galleryHandler.BrowsePost)
		galleriesGroup.GET("/gallery_update/:gallery_id", galleryHandler.UpdateGet)
		galleriesGroup.POST("/gallery_update/:gallery_id", galleryHandler.UpdatePost)
		galleriesGroup.POST("/gallery_delete/:gallery_id", galleryHandler.DeletePost)
	}

	imagesGroup := router.Group("/images")
	{
		imagesGroup.GET("/", imageHandler.List)
		imagesGroup.GET("/image_add", imageHandler.AddGet)
		imagesGroup.POST("/image_add", imageHandler.AddPost)
		imagesGroup.GET("/image_upload", imageHandler.UploadGet)
		imagesGroup.POST("/image_upload", imageHandler.UploadPost)
		imagesGroup.GET("/image_update", imageHandler.UpdateGet)
		imagesGroup.POST("/image_update", imageHandler.UpdatePost)
		imagesGroup.GET("/image_show", imageHandler.Show)
		imagesGroup.POST("/image_delete/:image_id", imageHandler.DeletePost)
	}

	commentsGroup := router.Group("/comments")
	{
		commentsGroup.POST("/comment_add/:image_id", commentHandler.AddPost)
		commentsGroup.GET("/comment_edit/:comment_id", commentHandler.EditGet)
		commentsGroup.POST("/comment_edit/:comment_id", commentHandler.EditPost)
		commentsGroup.POST("/comment_delete/:comment_id", commentHandler.DeletePost)
	}

	router.GET("/stats/", statsHandler.List)
}
