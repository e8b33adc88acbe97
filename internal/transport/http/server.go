package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "manabinote/internal/app"
	"manabinote/internal/bootstrap"
	"manabinote/internal/cache"
	"manabinote/internal/platform/rabbitmq"
	"manabinote/internal/repository"
	"manabinote/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.Static("/uploads", app.Uploads.Dir())

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	mistakeRepo := repository.NewMistakeRepository(app.MySQL)

	turnCache := cache.NewTurnCache(
		app.Redis,
		time.Duration(app.Config.Redis.TurnsTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.TurnsDirtyTTLSeconds)*time.Second,
	)
	scheduler := rabbitmq.NewCompactionPublisher(app.MQConn, app.Config.RabbitMQ.CompactionQueue)

	mistakeService := appsvc.NewMistakeService(userRepo, mistakeRepo)
	tutorService := appsvc.NewTutorService(
		sessionRepo,
		userRepo,
		mistakeService,
		app.LLMClient,
		scheduler,
		turnCache,
		app.Config.LLM.MaxTokens,
		app.Config.LLM.Temperature,
	)

	homeworkHandler := handler.NewHomeworkHandler(tutorService, app.Uploads)
	mistakeHandler := handler.NewMistakeHandler(mistakeService)
	sessionHandler := handler.NewSessionHandler(tutorService, app.Memory)

	v1 := router.Group("/api/v1")

	homeworkGroup := v1.Group("/homework")
	homeworkGroup.POST("/upload", homeworkHandler.Upload)
	homeworkGroup.POST("/continue", homeworkHandler.Continue)
	homeworkGroup.POST("/chat", homeworkHandler.Chat)

	v1.POST("/mistakes", mistakeHandler.Record)
	v1.GET("/mistakes/:user_id", mistakeHandler.List)

	v1.GET("/sessions/:id", sessionHandler.Get)
	v1.POST("/sessions/:id/compact", sessionHandler.Compact)

	return router
}
