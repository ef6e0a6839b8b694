package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/api"
	"github.com/bryan-buckman/pantry/internal/app"
	"github.com/bryan-buckman/pantry/internal/database"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/refresh"
)

// env bundles the components a command works with.
type env struct {
	api     *api.Client
	store   database.Store
	fetcher *refresh.Fetcher
	svc     *app.Service
}

// openEnv connects the backend client and the local store from cfg.
func openEnv() (*env, error) {
	client, err := api.New(cfg.Backend.URL,
		api.WithTimeout(cfg.GetBackendTimeout()),
		api.WithLogger(logger.Named("api")))
	if err != nil {
		return nil, err
	}

	store, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	logger.Debug("store opened", zap.String("type", store.DatabaseType()))

	filter, err := store.GetInventoryFilter()
	if err != nil {
		logger.Warn("read saved filter", zap.Error(err))
		filter = model.FilterAll
	}
	fetcher := refresh.NewFetcher(client, refresh.NewState(filter), logger.Named("refresh"))
	return &env{
		api:     client,
		store:   store,
		fetcher: fetcher,
		svc:     app.NewService(client, fetcher, store, logger.Named("app")),
	}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// confirm asks a y/N question on in. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
