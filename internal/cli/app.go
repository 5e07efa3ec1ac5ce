package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/cache"
	"github.com/ppiankov/fincausal/internal/model"
	"github.com/ppiankov/fincausal/internal/pipeline"
	"github.com/ppiankov/fincausal/internal/store"
	"github.com/ppiankov/fincausal/internal/util"
)

// newPipeline wires fetcher, robots checker and page cache into a
// pipeline for cfg
func newPipeline(cfg *model.Config, log *zap.Logger) (*pipeline.Pipeline, error) {
	fetcher, err := pipeline.NewFetcher(cfg.HTTP, log.Named("fetch"))
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	robots := util.NewRobotsChecker(fetcher.Client(), cfg.HTTP.User.Agent, log.Named("robots"))
	pages := cache.New(cfg.Cache, log.Named("cache"))

	return pipeline.New(cfg,
		pipeline.WithLogger(log),
		pipeline.WithLoader(pipeline.NewLoader(fetcher, robots, pages, log.Named("loader"))),
	), nil
}

// recorder saves reports into the result store when store.path is set.
// A nil recorder is valid and does nothing.
type recorder struct {
	db  *store.Store
	run *store.Run
}

func openRecorder(ctx context.Context, cfg *model.Config, command string) (*recorder, error) {
	if cfg.Store.Path == "" {
		return nil, nil
	}

	db, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	run, err := db.BeginRun(ctx, command)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("recording run", zap.String("run", run.ID), zap.String("db", cfg.Store.Path))
	return &recorder{db: db, run: run}, nil
}

func (r *recorder) save(ctx context.Context, report *model.Report) error {
	if r == nil {
		return nil
	}
	_, err := r.db.SaveReport(ctx, r.run.ID, report)
	return err
}

// close finishes the run and closes the store
func (r *recorder) close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	finishErr := r.db.FinishRun(ctx, r.run.ID)
	closeErr := r.db.Close()
	if finishErr != nil {
		return finishErr
	}
	return closeErr
}

func (r *recorder) runID() string {
	if r == nil {
		return ""
	}
	return r.run.ID
}
