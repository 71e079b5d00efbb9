package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/daobinhgiang/bedtrack/internal/auth"
	"github.com/daobinhgiang/bedtrack/internal/config"
	"github.com/daobinhgiang/bedtrack/internal/credential"
	"github.com/daobinhgiang/bedtrack/internal/handler"
	"github.com/daobinhgiang/bedtrack/internal/mailer"
	"github.com/daobinhgiang/bedtrack/internal/provider"
	"github.com/daobinhgiang/bedtrack/internal/repository"
	"github.com/daobinhgiang/bedtrack/internal/session"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoDBURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from MongoDB")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, readpref.Primary()); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping MongoDB")
	}

	db := mongoClient.Database(cfg.MongoDBDatabase)

	accounts := repository.NewAccountMongoRepository(ctx, &logger, db)
	identities := repository.NewIdentityMongoRepository(ctx, &logger, db)
	profiles := repository.NewProfileMongoRepository(db)
	resetTokens := repository.NewResetTokenMongoRepository(ctx, &logger, db)

	googleProvider := provider.NewGoogleProvider(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
	)

	jwtAuth := auth.NewJWTAuthenticator(cfg.TokenIssuer, cfg.TokenIssuer)

	var backendMailer credential.Mailer
	var support session.SupportNotifier
	if cfg.MailEnabled {
		m := mailer.NewMailer(&logger)
		backendMailer = m
		if cfg.SupportEmail != "" {
			support = mailer.NewSupportNotifier(m, cfg.SupportEmail, &logger)
		}
	}

	backend := credential.NewBackend(
		accounts,
		identities,
		resetTokens,
		googleProvider,
		jwtAuth,
		backendMailer,
		credential.Config{
			PasswordSignupEnabled: cfg.PasswordSignupEnabled,
			TokenIssuer:           cfg.TokenIssuer,
			ResetTokenSecret:      cfg.ResetTokenSecret,
			ResetTokenTTL:         cfg.ResetTokenTTL,
			ResetURL:              cfg.ResetURL,
		},
		&logger,
	)

	registry := handler.NewClientRegistry(func() (*credential.Client, *session.Controller) {
		client := backend.NewClient()
		ctrl := session.New(client, profiles, support, nil, &logger)
		return client, ctrl
	})
	defer registry.Close()

	router := handler.NewRouter(&handler.RouterDeps{
		Registry:          registry,
		Reset:             backend,
		JWTAuth:           jwtAuth,
		ClientTokenSecret: cfg.ClientTokenSecret,
		Logger:            &logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info().Int("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down server gracefully")
	}
}
