package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/linklet/linklet/config"
	"github.com/linklet/linklet/controllers"
	"github.com/linklet/linklet/middleware"
	"github.com/linklet/linklet/utils"
)

// SetupRouter wires middleware and all API routes. The database handle and
// mailer are injected so tests can run against sqlite and a fake mailer.
func SetupRouter(db *gorm.DB, mailer utils.Mailer) *gin.Engine {
	cfg := config.Get()
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(middleware.RequestID())
	if utils.Logger != nil {
		// Request lines go to their own rotated file; panics stay with the
		// application log.
		accessLogger, err := utils.NewRollingFileLogger(cfg.GinLogPath, cfg.LogLevel,
			cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			accessLogger = utils.Logger
		}
		router.Use(middleware.AccessLog(accessLogger))
		router.Use(middleware.Recovery(utils.Logger))
	} else {
		router.Use(gin.Recovery())
	}

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	auth := controllers.NewAuthController(db, mailer)
	posts := controllers.NewPostController(db)
	comments := controllers.NewCommentController(db)
	messages := controllers.NewMessageController(db)
	jobs := controllers.NewJobController(db)
	search := controllers.NewSearchController(db)

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware())
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/create-account", auth.CreateAccount)
			authGroup.POST("/login-account", auth.LoginAccount)
			authGroup.POST("/verify-code", auth.VerifyCode)
			authGroup.POST("/resend-code", auth.ResendCode)
			authGroup.POST("/refresh-token", auth.RefreshAccessToken)
			authGroup.POST("/logout-account", auth.Logout)
			authGroup.GET("/me", middleware.AuthRequired(), auth.Me)
			authGroup.PATCH("/avatar", middleware.AuthRequired(), auth.UpdateAvatar)
		}

		postGroup := api.Group("/posts")
		{
			postGroup.GET("", middleware.OptionalAuth(), posts.ListPosts)
			postGroup.GET("/:id", middleware.OptionalAuth(), posts.GetPost)
			postGroup.POST("", middleware.AuthRequired(), middleware.CreationLimit("post"), posts.CreatePost)
			postGroup.DELETE("/:id", middleware.AuthRequired(), posts.DeletePost)
			postGroup.PATCH("/:id/like", middleware.AuthRequired(), posts.LikePost)
			postGroup.PATCH("/:id/unlike", middleware.AuthRequired(), posts.UnlikePost)
		}

		commentGroup := api.Group("/comments")
		{
			commentGroup.GET("", middleware.OptionalAuth(), comments.ListComments)
			commentGroup.GET("/:id/thread", middleware.OptionalAuth(), comments.GetThread)
			commentGroup.POST("", middleware.AuthRequired(), middleware.CreationLimit("comment"), comments.CreateComment)
			commentGroup.DELETE("/:id", middleware.AuthRequired(), comments.DeleteComment)
			commentGroup.PATCH("/:id/like", middleware.AuthRequired(), comments.LikeComment)
			commentGroup.PATCH("/:id/unlike", middleware.AuthRequired(), comments.UnlikeComment)
		}

		messageGroup := api.Group("/messages")
		messageGroup.Use(middleware.AuthRequired())
		{
			messageGroup.POST("", middleware.CreationLimit("message"), messages.SendMessage)
			messageGroup.GET("/conversations", messages.ListConversations)
			messageGroup.GET("/:userId", messages.GetConversation)
		}

		jobGroup := api.Group("/jobs")
		{
			jobGroup.GET("", jobs.ListJobs)
			jobGroup.POST("", middleware.AuthRequired(), middleware.CreationLimit("job"), jobs.CreateJob)
		}

		api.GET("/search", middleware.OptionalAuth(), search.Search)
	}

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
