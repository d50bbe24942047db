package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/incidents-platform/auth-service/internal/config"
	"github.com/incidents-platform/auth-service/internal/handlers"
	"github.com/incidents-platform/auth-service/internal/httpserver"
	"github.com/incidents-platform/auth-service/internal/logging"
	"github.com/incidents-platform/auth-service/internal/mykafka"
	"github.com/incidents-platform/auth-service/internal/notify"
	"github.com/incidents-platform/auth-service/internal/repo"
	"github.com/incidents-platform/auth-service/internal/search"
	"github.com/incidents-platform/auth-service/internal/service"
	"github.com/incidents-platform/auth-service/internal/tasks"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	store := repo.New(db)
	runner := tasks.NewRunner(logger)

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer(configuration.KAFKA_ADDRESS)
	}
	notifier := notify.NewEmailNotifier(producer, configuration.EMAIL_TOPIC, logger)
	events := notify.NewAccountEvents(producer, configuration.USER_TOPIC, logger)

	var index service.SearchIndex
	if configuration.ES_URL != "" {
		esClient, err := search.NewClient(search.ClientConfig{
			URL:      configuration.ES_URL,
			User:     configuration.ES_USER,
			Password: configuration.ES_PASSWORD,
		})
		if err != nil {
			log.Fatalf("elasticsearch init failed: %v", err)
		}
		index = search.NewUserIndex(esClient, configuration.ES_INDEX)
	} else {
		logger.Warn("search indexing disabled: no elasticsearch configured")
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	issuer := service.NewTokenIssuer(store, jwtSecret, configuration.ACCESS_TTL)
	sessions := service.NewSessionManager(store)

	tokenUsers := &service.UserService{
		Repo:     store,
		Scheme:   issuer,
		Issuer:   issuer,
		Index:    index,
		Notifier: notifier,
		Events:   events,
		Tasks:    runner,
	}
	sessionUsers := &service.UserService{
		Repo:     store,
		Scheme:   sessions,
		Issuer:   issuer,
		Index:    index,
		Notifier: notifier,
		Events:   events,
		Tasks:    runner,
	}
	admin := &service.AdminService{
		Repo:   store,
		Scheme: issuer,
		Issuer: issuer,
		Index:  index,
		Events: events,
		Tasks:  runner,
	}
	reindex := &service.ReindexService{Repo: store, Index: index, Tasks: runner}

	// one best-effort reindex at process start, outside the request path
	reindex.SubmitFullReindex()

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logging.IntoContext(req.Context(), logger)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{Users: tokenUsers, Tokens: issuer},
		SessionHandler: &handlers.SessionHandler{Users: sessionUsers, Sessions: sessions},
		AdminHandler:   &handlers.AdminHandler{Admin: admin, Search: reindex},
		JWTSecret:      jwtSecret,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	runner.Wait()

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
