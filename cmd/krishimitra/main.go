package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Harshanhkp24/KrishiMitra/internal/advisory"
	"github.com/Harshanhkp24/KrishiMitra/internal/artifact"
	"github.com/Harshanhkp24/KrishiMitra/internal/config"
	"github.com/Harshanhkp24/KrishiMitra/internal/repository"
	"github.com/Harshanhkp24/KrishiMitra/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "krishimitra",
		Short:        "Crop recommendation service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $"+config.EnvConfigPath+" or "+config.DefaultPath+")")

	root.AddCommand(
		newServeCmd(&configPath),
		newPredictCmd(&configPath),
		newHistoryCmd(&configPath),
	)
	return root
}

// app is everything a command needs, wired from config.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	model     *artifact.Artifact
	history   repository.HistoryStore
	predictor *service.Predictor
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("Failed to close history store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// loadConfig falls back to built-in defaults only when no config path was
// asked for. An explicit flag or KRISHIMITRA_CONFIG must point at a file.
func loadConfig(flagPath string) (*config.Config, error) {
	path := config.ResolvePath(flagPath)
	cfg, err := config.LoadConfig(path)
	explicit := flagPath != "" || os.Getenv(config.EnvConfigPath) != ""
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return config.Default(), nil
	}
	return cfg, err
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

// newApp loads the model artifact and opens history. A model that fails to
// load is fatal: nothing is served without it.
func newApp(flagPath string) (*app, error) {
	cfg, err := loadConfig(flagPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	model, err := artifact.Load(cfg.Model.Path, cfg.Model.LabelsPath)
	if err != nil {
		logger.Error("Failed to load model artifact", zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}
	logger.Info("Model artifact loaded",
		zap.String("model", cfg.Model.Path),
		zap.String("labels", cfg.Model.LabelsPath),
		zap.String("version", model.Version()),
		zap.Strings("soil_types", model.SoilTypes()))

	history, err := repository.OpenHistory(cfg.History.Driver, cfg.History.Path, logger)
	if err != nil {
		logger.Error("Failed to open history store", zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}

	tips := advisory.NewTable(cfg.Advisory.Tips, cfg.Advisory.Default)
	predictor := service.NewPredictor(model, tips, history, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		model:     model,
		history:   history,
		predictor: predictor,
	}, nil
}
