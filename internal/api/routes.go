package api

import (
	"gymhub/social-fitness/internal/metrics"
	"gymhub/social-fitness/internal/service"
	"gymhub/social-fitness/internal/storage"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth     service.AuthService
	Posts    service.PostService
	Workouts service.WorkoutService
	Progress service.ProgressService
	Media    storage.Gateway
}

type RouterConfig struct {
	CORSOrigins    []string
	MaxUploadBytes int64
}

// NewRouter builds the engine with its middleware stack and every route registered.
// m may be nil, in which case /metrics is not exposed.
func NewRouter(cfg RouterConfig, svc Services, m *metrics.Metrics, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggingMiddleware(logger))
	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	SetupRoutes(router, svc, cfg.MaxUploadBytes, logger)
	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AddAllowHeaders("Authorization")
	return c
}

func SetupRoutes(router *gin.Engine, svc Services, maxUploadBytes int64, logger *slog.Logger) {
	authHandler := NewAuthHandler(svc.Auth, logger)
	postHandler := NewPostHandler(svc.Posts, maxUploadBytes, logger)
	workoutHandler := NewWorkoutHandler(svc.Workouts, logger)
	progressHandler := NewProgressHandler(svc.Progress, logger)
	fileHandler := NewFileHandler(svc.Media, logger)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/signin", authHandler.Signin)
		}

		// Media links are embedded in feed responses, so they are served without a token.
		fileGroup := apiV1.Group("/files")
		{
			fileGroup.GET("/images/:name", fileHandler.Serve(storage.CategoryImages))
			fileGroup.GET("/videos/:name", fileHandler.Serve(storage.CategoryVideos))
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(svc.Auth))
	{
		protected.GET("/me", authHandler.Me)

		postGroup := protected.Group("/posts")
		{
			postGroup.GET("", postHandler.ListPosts)
			postGroup.POST("", postHandler.CreatePost)
			postGroup.GET("/user/:userId", postHandler.ListUserPosts)
			postGroup.GET("/:id", postHandler.GetPost)
			postGroup.PUT("/:id", postHandler.UpdatePost)
			postGroup.DELETE("/:id", postHandler.DeletePost)
			postGroup.POST("/:id/like", postHandler.LikePost)
			postGroup.POST("/:id/unlike", postHandler.UnlikePost)

			postGroup.GET("/:id/comments", postHandler.ListComments)
			postGroup.POST("/:id/comments", postHandler.AddComment)
			postGroup.PUT("/:id/comments/:commentId", postHandler.UpdateComment)
			postGroup.DELETE("/:id/comments/:commentId", postHandler.DeleteComment)
		}

		scheduleGroup := protected.Group("/workout-schedule")
		{
			scheduleGroup.GET("", workoutHandler.ListSchedules)
			scheduleGroup.POST("", workoutHandler.CreateSchedule)
			scheduleGroup.GET("/:id", workoutHandler.GetSchedule)
			scheduleGroup.PUT("/:id", workoutHandler.UpdateSchedule)
			scheduleGroup.DELETE("/:id", workoutHandler.DeleteSchedule)
			scheduleGroup.PUT("/:id/exercises/:exerciseId/complete", workoutHandler.ToggleExercise)
		}

		progressGroup := protected.Group("/progress")
		{
			progressGroup.GET("", progressHandler.ListGoals)
			progressGroup.POST("", progressHandler.CreateGoal)
			progressGroup.GET("/:id", progressHandler.GetGoal)
			progressGroup.PUT("/:id", progressHandler.UpdateGoal)
			progressGroup.DELETE("/:id", progressHandler.DeleteGoal)
			progressGroup.GET("/:id/history", progressHandler.ListHistory)
			progressGroup.POST("/:id/history", progressHandler.AddHistory)
		}
	}
}
