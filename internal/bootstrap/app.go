package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"manabinote/internal/ai"
	"manabinote/internal/config"
	"manabinote/internal/memory"
	"manabinote/internal/model"
	"manabinote/internal/pkg/uploads"
	mysqlClient "manabinote/internal/platform/mysql"
	rabbitmqClient "manabinote/internal/platform/rabbitmq"
	redisClient "manabinote/internal/platform/redis"
	"manabinote/internal/repository"
	"manabinote/internal/worker"
)

const appTitle = "ManabiNote AI Tutor"

type App struct {
	Config           *config.Config
	MySQL            *gorm.DB
	Redis            *redis.Client
	MQConn           *amqp.Connection
	LLMClient        *ai.Client
	Uploads          *uploads.Store
	Memory           *memory.Service
	CompactionWorker *worker.CompactionWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.Turn{},
		&model.SessionImage{},
		&model.Mistake{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	uploadStore, err := uploads.NewStore(cfg.Uploads.Dir)
	if err != nil {
		return nil, err
	}

	llmClient := ai.NewClient(ai.Config{
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		AppURL:   cfg.App.URL,
		AppTitle: appTitle,
	})

	sessionRepo := repository.NewSessionRepository(mysqlDB)
	compactor, err := memory.NewCompactor(cfg.Memory.MaxContextTokens, cfg.Memory.MinRecentTurns)
	if err != nil {
		return nil, err
	}
	summarizer := memory.NewLLMSummarizer(llmClient, cfg.LLM.MaxTokens, cfg.LLM.SummaryTemperature)
	memoryService := memory.NewService(sessionRepo, compactor, summarizer)

	compactionWorker := worker.NewCompactionWorker(mqConn, memoryService, cfg.RabbitMQ.CompactionQueue)
	if err := compactionWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start compaction worker failed: %w", err)
	}

	return &App{
		Config:           cfg,
		MySQL:            mysqlDB,
		Redis:            redisCli,
		MQConn:           mqConn,
		LLMClient:        llmClient,
		Uploads:          uploadStore,
		Memory:           memoryService,
		CompactionWorker: compactionWorker,
		StartedAt:        time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.CompactionWorker != nil {
		a.CompactionWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
