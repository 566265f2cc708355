// Command consultantd runs the webhook relay in front of the configured
// live-chat vendor.
package main

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/srclab/consultant/internal/config"
	"github.com/srclab/consultant/internal/consultant"
	"github.com/srclab/consultant/internal/events"
	"github.com/srclab/consultant/internal/httpclient"
	"github.com/srclab/consultant/internal/logging"
	"github.com/srclab/consultant/internal/relay"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Bootstrap logger until the configured one is built.
	bootLogger, _ := zap.NewProduction()

	cfg, err := config.Load(configPath, bootLogger)
	if err != nil {
		bootLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootLogger.Fatal("failed to configure logging", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	cons, err := consultant.New(cfg, httpclient.New(cfg.HTTPTimeout), logger)
	if err != nil {
		logger.Fatal("failed to build consultant adapter", zap.Error(err))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQP.URL != "" {
		publisher, err = events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger.Named("events"))
		if err != nil {
			logger.Fatal("failed to connect to event broker", zap.Error(err))
		}
	}
	defer publisher.Close()

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	handler := relay.NewHandler(cons, publisher, cfg.AllowedUserIDs, logger.Named("relay"))
	relay.RegisterRoutes(r, handler)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong")) //nolint:errcheck
	})

	logger.Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("consultant", cons.Name()))

	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
