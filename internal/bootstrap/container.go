package bootstrap

import (
	"context"
	"log"

	"loan-insights-be/internal/config"
	"loan-insights-be/internal/controller"
	"loan-insights-be/internal/pkg/logger"
	"loan-insights-be/internal/pkg/mailer"
	"loan-insights-be/internal/repository/cache"
	"loan-insights-be/internal/repository/unitofwork"
	"loan-insights-be/internal/service"
	"loan-insights-be/pkg/charts"
	"loan-insights-be/pkg/excel"
	"loan-insights-be/pkg/formatter"
	"loan-insights-be/pkg/llm/factory"
	"loan-insights-be/pkg/sqlexec"
	"loan-insights-be/pkg/sqlgen"

	pktNats "loan-insights-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	ChatController    controller.IChatController
	HistoryController controller.IHistoryController
	ExportController  controller.IExportController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, loanDB *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS audit bus, optional
	var auditPub service.IAuditPublisher
	if natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL); err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		auditPub = natsPub
	}

	// Redis
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.Redis.URL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	threadCache := cache.NewThreadCache(rdb, cfg.Redis.ThreadTTL)

	// 3. AI Pipeline
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		GeminiAPIKey:  cfg.Keys.GoogleGemini,
		OpenAIAPIKey:  cfg.Keys.OpenAI,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		Timeout:       cfg.Ai.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	sqlGenerator := sqlgen.NewGenerator(llmProvider)
	sqlExecutor := sqlexec.NewExecutor(loanDB, cfg.LoanDB.QueryTimeout)
	resultFormatter := formatter.NewFormatter(llmProvider)
	chartRenderer := charts.NewRenderer(cfg.Export.StoragePath)
	excelExporter := excel.NewExporter(cfg.Export.StoragePath)

	// 4. Services
	threadService := service.NewThreadService(uowFactory, threadCache, auditPub, cfg.Export.StoragePath, sysLogger)
	publisherService := service.NewPublisherService(cfg.Export.Topic, pubSub)

	exportLogger := logger.NewIsolatedLogger("logs/export.log")
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Export.Topic,
		excelExporter,
		threadService,
		exportLogger,
	)

	authService := service.NewAuthService(uowFactory, emailService)
	chatService := service.NewChatService(
		sqlGenerator,
		sqlExecutor,
		resultFormatter,
		chartRenderer,
		threadService,
		publisherService,
		auditPub,
		cfg.Ai.ContextWindow,
		sysLogger,
	)

	// 5. Controllers
	return &Container{
		AuthController:    controller.NewAuthController(authService),
		ChatController:    controller.NewChatController(chatService),
		HistoryController: controller.NewHistoryController(threadService),
		ExportController:  controller.NewExportController(threadService),
		ConsumerService:   consumerService,
	}
}
