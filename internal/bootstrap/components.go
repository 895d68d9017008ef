// Package bootstrap assembles the phishguard service from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/phishguard/internal/api"
	"github.com/jonesrussell/phishguard/internal/config"
	"github.com/jonesrussell/phishguard/internal/logger"
	"github.com/jonesrussell/phishguard/internal/modelclient"
	"github.com/jonesrussell/phishguard/internal/personal"
	"github.com/jonesrussell/phishguard/internal/snapshot"
	"github.com/jonesrussell/phishguard/internal/storage"
	"github.com/jonesrussell/phishguard/internal/telemetry"
	"github.com/jonesrussell/phishguard/internal/trustlist"
	"github.com/jonesrussell/phishguard/internal/verdict"
)

// Components holds everything the running service needs.
type Components struct {
	Config    *config.Config
	Log       logger.Logger
	Telemetry *telemetry.Provider
	DB        *sqlx.DB
	Trust     *trustlist.Trust
	Block     *trustlist.Block
	Personal  *personal.Cache
	Pipeline  *verdict.Pipeline
	Server    *api.Server
}

// LoadConfig loads configuration from CONFIG_PATH or the default path.
func LoadConfig() (*config.Config, error) {
	return config.Load(config.GetConfigPath("config.yml"))
}

// NewComponents wires the full service from configuration. ctx bounds
// the remote client initialization, not the service lifetime.
func NewComponents(ctx context.Context, cfg *config.Config, log logger.Logger) (*Components, error) {
	tp := telemetry.NewProvider()

	trust, block, err := setupLists(cfg, log, tp)
	if err != nil {
		return nil, err
	}

	personalCache, err := personal.Load(cfg.Personal.Path, cfg.Personal.Capacity)
	if err != nil {
		return nil, fmt.Errorf("setup personal cache: %w", err)
	}

	db, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	feedbackRepo := storage.NewFeedbackRepository(db)

	race, localModel, err := setupRace(ctx, cfg, log, tp)
	if err != nil {
		db.Close()
		return nil, err
	}

	pipeline := verdict.NewPipeline(trust, block, personalCache, race, log, tp)

	handler := api.NewHandler(pipeline, trust, block, personalCache, feedbackRepo, localModel, cfg.Service.Version, log)
	server := api.NewServer(handler, api.ServerConfig{
		Port:  cfg.Service.Port,
		Debug: cfg.Service.Debug,
	}, tp.Handler(), log)

	return &Components{
		Config:    cfg,
		Log:       log,
		Telemetry: tp,
		DB:        db,
		Trust:     trust,
		Block:     block,
		Personal:  personalCache,
		Pipeline:  pipeline,
		Server:    server,
	}, nil
}

// RefreshLists brings both bulk lists up to date concurrently. A refresh
// failure is fatal only when the provider is left with nothing to serve.
func (c *Components) RefreshLists(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := c.Trust.Refresh(ctx); err != nil {
			if !c.Trust.Ready() {
				return fmt.Errorf("trust list cold and unreachable: %w", err)
			}
			c.Log.Warn("trust list refresh failed, serving stale snapshot", logger.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		if err := c.Block.Refresh(ctx); err != nil {
			if !c.Block.Ready() {
				return fmt.Errorf("block list cold and unreachable: %w", err)
			}
			c.Log.Warn("block list refresh failed, serving stale snapshot", logger.Error(err))
		}
		return nil
	})

	return g.Wait()
}

// Close releases held resources.
func (c *Components) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
}

func setupLists(cfg *config.Config, log logger.Logger, tp *telemetry.Provider) (*trustlist.Trust, *trustlist.Block, error) {
	trustCache, err := snapshot.New(cfg.TrustList.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("setup trust cache: %w", err)
	}
	blockCache, err := snapshot.New(cfg.BlockList.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("setup block cache: %w", err)
	}

	trust := trustlist.NewTrust(trustlist.TrustConfig{
		FeedURL:    cfg.TrustList.FeedURL,
		TopN:       cfg.TrustList.TopN,
		MaxAgeDays: cfg.TrustList.MaxAgeDays,
	}, trustCache, log, tp)

	block := trustlist.NewBlock(trustlist.BlockConfig{
		FeedURL:    cfg.BlockList.FeedURL,
		MaxEntries: cfg.BlockList.MaxEntries,
		MaxAgeDays: cfg.BlockList.MaxAgeDays,
	}, blockCache, log, tp)

	return trust, block, nil
}

func setupRace(ctx context.Context, cfg *config.Config, log logger.Logger, tp *telemetry.Provider) (*verdict.Coordinator, *modelclient.OllamaClient, error) {
	local := modelclient.NewOllamaClient(
		cfg.Models.Ollama.Endpoint,
		cfg.Models.Ollama.Model,
		modelclient.WithOllamaTimeout(cfg.Models.Ollama.Timeout),
	)

	remote, err := modelclient.NewGeminiClient(
		ctx,
		cfg.Models.Gemini.APIKey,
		cfg.Models.Gemini.Model,
		modelclient.WithGeminiTimeout(cfg.Models.Gemini.Timeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("setup gemini client: %w", err)
	}

	return verdict.NewCoordinator(local, remote, log, tp), local, nil
}
