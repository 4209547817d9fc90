package main

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/audit"
	"github.com/Ugochu266/chatbot-sub001/internal/config"
	"github.com/Ugochu266/chatbot-sub001/internal/escalation"
	"github.com/Ugochu266/chatbot-sub001/internal/generator"
	"github.com/Ugochu266/chatbot-sub001/internal/handler"
	"github.com/Ugochu266/chatbot-sub001/internal/metrics"
	"github.com/Ugochu266/chatbot-sub001/internal/moderation"
	"github.com/Ugochu266/chatbot-sub001/internal/notifier"
	"github.com/Ugochu266/chatbot-sub001/internal/pipeline"
	"github.com/Ugochu266/chatbot-sub001/internal/repository"
	"github.com/Ugochu266/chatbot-sub001/internal/retrieval"
	"github.com/Ugochu266/chatbot-sub001/internal/rulestore"
	"github.com/Ugochu266/chatbot-sub001/internal/sanitizer"
	"github.com/Ugochu266/chatbot-sub001/internal/server"
	"github.com/Ugochu266/chatbot-sub001/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfgPath := "configs/config.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repository.MigrateDB(db, logger)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Rule store over the backing store, shared by all detection components.
	ruleRepo := repository.NewRuleRepository(db, logger)
	rules := rulestore.New(ruleRepo, logger, m, time.Duration(cfg.RuleStore.TimeoutSeconds)*time.Second)

	classifier := moderation.NewOpenAIClassifier(cfg.OpenAI.APIKey, time.Duration(cfg.OpenAI.ClassifierTimeoutSeconds)*time.Second)
	sink := audit.NewLogSink(os.Stdout, 256)
	defer sink.Close()

	safetyPipeline := pipeline.New(
		sanitizer.New(rules, logger),
		moderation.NewEvaluator(classifier, rules, logger, m),
		escalation.New(rules, logger, m),
		sink,
		logger,
		m,
	)

	gen := generator.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model, time.Duration(cfg.OpenAI.GeneratorTimeoutSeconds)*time.Second)

	var retriever retrieval.Retriever
	if cfg.Retrieval.Enabled {
		retriever = retrieval.NewClient(cfg.Retrieval.URL, time.Duration(cfg.Retrieval.TimeoutSeconds)*time.Second, logger)
	}

	var escalationNotifier notifier.Notifier
	tgNotifier, err := notifier.NewTelegramNotifier(cfg.Notifier.TelegramBotToken, cfg.Notifier.ReviewersChatID, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
	} else if tgNotifier != nil {
		escalationNotifier = tgNotifier
	}

	convRepo := repository.NewConversationRepository(db, logger)
	authRepo := repository.NewAuthRepository(db, logger)
	authService := service.NewAuthService(authRepo, cfg.Auth.JWTSecret, logger)

	chatHandler := handler.NewChatHandler(safetyPipeline, gen, retriever, convRepo, escalationNotifier, cfg.Retrieval.DocumentLimit, logger)
	rulesHandler := handler.NewRulesHandler(ruleRepo, rules, logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	srv := server.NewServer(chatHandler, rulesHandler, authHandler, authService, registry, logger)
	srv.Run(cfg.Server.Port)
}
