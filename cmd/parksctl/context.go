package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bounceheads/directory/internal/classify"
	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/database"
	"github.com/bounceheads/directory/internal/logger"
	"github.com/bounceheads/directory/internal/metro"
	"github.com/bounceheads/directory/internal/places"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/service"
	"github.com/bounceheads/directory/internal/storage"
)

type globalFlags struct {
	rulesFile string
	metroFile string
	logLevel  string
}

// commandContext lazily builds what a command needs so that commands which
// never touch the database or the Places API do not require their settings.
type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     *zap.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if v := strings.TrimSpace(c.flags.rulesFile); v != "" {
			cfg.Pipeline.RulesFile = v
		}
		if v := strings.TrimSpace(c.flags.metroFile); v != "" {
			cfg.Pipeline.MetroFile = v
		}
		if v := strings.TrimSpace(c.flags.logLevel); v != "" {
			cfg.LogLevel = v
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *zap.Logger {
	c.logOnce.Do(func() {
		level := "info"
		if cfg, err := c.ensureConfig(); err == nil {
			level = cfg.LogLevel
		} else if c.flags.logLevel != "" {
			level = c.flags.logLevel
		}
		log, err := logger.New(level)
		if err != nil {
			log = zap.NewNop()
		}
		c.log = log
	})
	return c.log
}

func (c *commandContext) close() {
	if c.log != nil {
		_ = c.log.Sync()
	}
}

func (c *commandContext) classification(cfg *config.Config) (classify.Rules, metro.Tables, error) {
	rules, err := classify.LoadRules(cfg.Pipeline.RulesFile)
	if err != nil {
		return classify.Rules{}, metro.Tables{}, err
	}
	tables, err := metro.LoadTables(cfg.Pipeline.MetroFile)
	if err != nil {
		return classify.Rules{}, metro.Tables{}, err
	}
	return rules, tables, nil
}

func (c *commandContext) placesClient(cfg *config.Config) (*places.Client, error) {
	if cfg.Pipeline.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_PLACES_API_KEY is not set")
	}
	return places.NewClient(nil, cfg.Pipeline.PlacesBaseURL, cfg.Pipeline.APIKey, c.logger().Named("places")), nil
}

// withStore opens the park store for the duration of fn.
func (c *commandContext) withStore(ctx context.Context, fn func(cfg *config.Config, repo repository.ParksRepository, parks *service.ParksService) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	rules, tables, err := c.classification(cfg)
	if err != nil {
		return err
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	repo := repository.NewPGXParksRepository(pool)
	return fn(cfg, repo, service.NewParksService(repo, cfg.Pipeline, rules, tables, c.logger()))
}

// mediaService wires the photo maintenance steps. The Places client and the
// bucket uploader are only built when a step needs them.
func (c *commandContext) mediaService(ctx context.Context, cfg *config.Config, repo repository.ParksRepository, needPlaces, needBucket bool) (*service.MediaService, error) {
	opts := service.MediaOptions{
		PublicDir:     cfg.PublicDir,
		MetadataDelay: cfg.Pipeline.RateLimitDelay,
		MediaDelay:    cfg.Pipeline.MediaDelay,
		MaxPhotos:     cfg.Pipeline.MaxPhotos,
		MaxWidth:      cfg.Pipeline.PhotoMaxWidth,
	}

	var source service.PhotoSource
	if needPlaces {
		client, err := c.placesClient(cfg)
		if err != nil {
			return nil, err
		}
		source = client
	}

	var uploader service.ObjectUploader
	if needBucket {
		u, err := storage.NewUploader(ctx, cfg.StorageBucket, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		uploader = u
	}

	return service.NewMediaService(repo, source, uploader, opts, c.logger().Named("media")), nil
}
