package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prokemal2012/Filx/internal/comments"
	"github.com/prokemal2012/Filx/internal/config"
	"github.com/prokemal2012/Filx/internal/documents"
	"github.com/prokemal2012/Filx/internal/explore"
	"github.com/prokemal2012/Filx/internal/feed"
	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/notifications"
	"github.com/prokemal2012/Filx/internal/search"
	"github.com/prokemal2012/Filx/internal/social"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/storage/memory"
	indexsync "github.com/prokemal2012/Filx/internal/sync"
)

// app holds the opened stores and the services built on them
type app struct {
	cfg   *config.Config
	store storage.Store
	db    *storage.DB // nil with the memory driver
	index *search.Index

	worker    *indexsync.Worker
	feed      *feed.Service
	explore   *explore.Aggregator
	social    *social.Service
	documents *documents.Service
	comments  *comments.Service
	notices   *notifications.Service
}

// openApp opens the store and search index named by cfg and wires the services
func openApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.Storage.Driver == config.MemoryDriver {
		a.store = memory.New()
		idx, err := search.OpenMem()
		if err != nil {
			return nil, err
		}
		a.index = idx
	} else {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := storage.Open(cfg.Storage.DBPath())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		idx, err := search.Open(cfg.Storage.IndexPath())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		a.db, a.store, a.index = db, db, idx
	}

	a.worker = indexsync.NewWorker(a.store, a.index, cfg.Index.Concurrency)
	a.feed = feed.NewService(a.store, cfg.Ranking, nil)
	a.explore = explore.NewAggregator(a.store, cfg.Aggregation())
	a.social = social.NewService(a.store, nil)
	a.documents = documents.NewService(a.store, a.worker, a.index, nil)
	a.comments = comments.NewService(a.store, nil)
	a.notices = notifications.NewService(a.store, nil)

	logging.Debug().
		Str("driver", cfg.Storage.Driver).
		Str("data_dir", cfg.Storage.DataDir).
		Msg("Opened stores")
	return a, nil
}

// Close releases the index and database
func (a *app) Close() error {
	var errs []error
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
