package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/helixtrade/momentum"
	"github.com/helixtrade/momentum/exchange"
	"github.com/helixtrade/momentum/exchange/binance"
	"github.com/helixtrade/momentum/notification"
	"github.com/helixtrade/momentum/rotation"
	"github.com/helixtrade/momentum/storage"
)

// Command line flags
var (
	configFile string
)

// config is the YAML configuration of the momentum daemon
type config struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Worker struct {
		Interval          string `mapstructure:"interval"`
		StrategyBatchSize int    `mapstructure:"strategy_batch_size"`
		AssetBatchSize    int    `mapstructure:"asset_batch_size"`
	} `mapstructure:"worker"`

	Rotation struct {
		Enabled   bool `mapstructure:"enabled"`
		Threshold int  `mapstructure:"threshold"`
		BatchSize int  `mapstructure:"batch_size"`
	} `mapstructure:"rotation"`

	Binance struct {
		Enabled bool `mapstructure:"enabled"`
		Testnet bool `mapstructure:"testnet"`
	} `mapstructure:"binance"`

	Paper struct {
		Enabled bool               `mapstructure:"enabled"`
		FeeRate float64            `mapstructure:"fee_rate"`
		Prices  map[string]float64 `mapstructure:"prices"`
	} `mapstructure:"paper"`

	Telegram struct {
		Enabled bool    `mapstructure:"enabled"`
		Token   string  `mapstructure:"token"`
		Users   []int64 `mapstructure:"users"`
	} `mapstructure:"telegram"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "momentum",
		Short:   "Momentum trading automation daemon",
		Version: "1.0.0",
	}

	rootCmd.AddCommand(buildRunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading cycle worker",
		RunE:  run,
	}

	runCmd.Flags().StringVarP(&configFile, "config", "c", "momentum.yml", "Configuration file path")

	return runCmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	settings, err := buildSettings(cfg)
	if err != nil {
		return err
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "momentum.db"
	}
	db, err := storage.NewFromSQLite(dbPath, storage.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	options := make([]momentum.Option, 0)
	if cfg.Telegram.Enabled {
		telegram, err := notification.NewTelegram(cfg.Telegram.Token, cfg.Telegram.Users, momentum.DefaultLog)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram: %w", err)
		}
		options = append(options, momentum.WithTelegram(telegram))
	}

	engine, err := momentum.NewEngine(settings, db, db, db, registry, options...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = engine.Run(ctx)
	engine.Summary()

	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// loadConfig reads the YAML configuration from the given file
func loadConfig(file string) (*config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MOMENTUM")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", file, err)
	}

	cfg := &config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// buildSettings converts the file configuration into engine settings
func buildSettings(cfg *config) (momentum.Settings, error) {
	settings := momentum.Settings{
		StrategyBatchSize: cfg.Worker.StrategyBatchSize,
		AssetBatchSize:    cfg.Worker.AssetBatchSize,
		Rotation: rotation.Config{
			Enabled:   cfg.Rotation.Enabled,
			Threshold: cfg.Rotation.Threshold,
			BatchSize: cfg.Rotation.BatchSize,
		},
	}

	if cfg.Worker.Interval != "" {
		interval, err := str2duration.ParseDuration(cfg.Worker.Interval)
		if err != nil {
			return settings, fmt.Errorf("invalid worker interval %q: %w", cfg.Worker.Interval, err)
		}
		settings.Interval = interval
	}

	return settings, nil
}

// buildRegistry registers the configured exchange adapters
func buildRegistry(cfg *config) (*exchange.Registry, error) {
	registry := exchange.NewRegistry()

	if cfg.Binance.Enabled {
		options := make([]binance.Option, 0)
		if cfg.Binance.Testnet {
			options = append(options, binance.WithTestnet())
		}
		registry.Register("binance", binance.New(momentum.DefaultLog, options...))
	}

	if cfg.Paper.Enabled {
		options := make([]exchange.PaperOption, 0)
		if cfg.Paper.FeeRate > 0 {
			options = append(options, exchange.WithPaperFeeRate(cfg.Paper.FeeRate))
		}
		for pair, price := range cfg.Paper.Prices {
			options = append(options, exchange.WithPaperPrice(pair, price))
		}
		registry.Register("paper", exchange.NewPaper(options...))
	}

	if len(registry.Names()) == 0 {
		return nil, fmt.Errorf("no exchange adapters enabled in configuration")
	}

	return registry, nil
}
