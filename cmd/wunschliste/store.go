package main

import (
	"context"
	"log/slog"

	firestoreadapter "github.com/ericfisherdev/wunschliste/internal/adapter/driven/firestore"
	"github.com/ericfisherdev/wunschliste/internal/adapter/driven/jsonfile"
	"github.com/ericfisherdev/wunschliste/internal/application"
	"github.com/ericfisherdev/wunschliste/internal/config"
	"github.com/ericfisherdev/wunschliste/internal/domain/model"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
	"github.com/ericfisherdev/wunschliste/internal/logging"
)

// newSelector wires the Firestore and JSON file adapters into a StoreSelector.
func newSelector(cfg *config.Config) *application.StoreSelector {
	openRemote := func(ctx context.Context, creds model.FirebaseCredentials) (driven.WishStore, error) {
		store, err := firestoreadapter.Open(ctx, creds, firestoreadapter.Options{
			Collection:     cfg.Firestore.Collection,
			ConnectTimeout: cfg.Firestore.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	openLocal := func() (driven.WishStore, error) {
		store, err := jsonfile.Open(cfg.DataFile, jsonfile.Options{})
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	return application.NewStoreSelector(openRemote, openLocal, application.RetryPolicy{
		MaxAttempts: cfg.Firestore.ConnectAttempts,
	})
}

// selectStore runs the one-time backend selection and wraps the result in a
// StoreProvider.
func selectStore(ctx context.Context, cfg *config.Config) (*application.StoreProvider, error) {
	selector := newSelector(cfg)

	store, sel, err := selector.Select(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}

	slog.Debug("storage selection complete",
		"backend", sel.Backend,
		"fallback", sel.IsFallback(),
		"credential_source", cfg.CredentialSource,
	)

	return application.NewStoreProvider(store, sel, selector, cfg.Firebase), nil
}

// loadConfig loads configuration and initializes logging from it. The
// returned function closes the log file.
func loadConfig(path string) (*config.Config, func(), error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger, closeLog := initLogging(cfg)
	logger.Debug("config loaded",
		"listen_addr", cfg.ListenAddr,
		"data_file", cfg.DataFile,
		"collection", cfg.Firestore.Collection,
		"credential_source", cfg.CredentialSource,
	)

	return cfg, func() {
		if err := closeLog(); err != nil {
			slog.Error("error closing log file", "error", err)
		}
	}, nil
}

func initLogging(cfg *config.Config) (*slog.Logger, func() error) {
	return logging.Init(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
}
