/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the protoinfer commands. Provides configuration
loading, logging setup, and conversion of viper settings into the clustering, logging,
and server configurations.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kleascm/protoinfer/pkg/api"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/logging"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// PROTOINFER_CLUSTERING_EQUIVALENCE_THRESHOLD overrides clustering.equivalence_threshold
	viper.SetEnvPrefix("PROTOINFER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return nil
}

// LoggerConfig builds the logging configuration from viper settings
func LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.LogLevel(viper.GetString("log.level"))
	cfg.Format = logging.LogFormat(viper.GetString("log.format"))
	cfg.OutputDir = viper.GetString("log.output_dir")
	if viper.IsSet("log.max_size") {
		cfg.MaxSize = viper.GetInt("log.max_size")
	}
	if viper.IsSet("log.max_backups") {
		cfg.MaxBackups = viper.GetInt("log.max_backups")
	}
	cfg.Compress = viper.GetBool("log.compress")
	return cfg
}

// SetupLogging creates the logger for a command
func SetupLogging() (*logging.Logger, error) {
	logger, err := logging.NewLogger(LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// ClusterConfig builds the clustering configuration from viper settings
func ClusterConfig() core.ClusterConfig {
	cfg := core.DefaultClusterConfig()
	if viper.IsSet("clustering.equivalence_threshold") {
		cfg.EquivalenceThreshold = viper.GetFloat64("clustering.equivalence_threshold")
	}
	if viper.IsSet("clustering.max_iterations") {
		cfg.MaxIterations = viper.GetInt("clustering.max_iterations")
	}
	if viper.IsSet("clustering.threshold_schedule") {
		cfg.ThresholdSchedule = core.ThresholdSchedule(viper.GetString("clustering.threshold_schedule"))
	}
	if viper.IsSet("clustering.threshold_step") {
		cfg.ThresholdStep = viper.GetFloat64("clustering.threshold_step")
	}
	if viper.IsSet("clustering.default_rendering") {
		cfg.DefaultRendering = core.RenderingType(viper.GetString("clustering.default_rendering"))
	}
	cfg.OrphanReduction = viper.GetBool("clustering.orphan_reduction")
	cfg.Workers = viper.GetInt("clustering.workers")
	cfg.Slick = viper.GetBool("clustering.slick")
	return cfg
}

// ServerConfig builds the HTTP server configuration from viper settings
func ServerConfig() api.Config {
	cfg := api.DefaultConfig()
	if addr := viper.GetString("server.listen_addr"); addr != "" {
		cfg.ListenAddr = addr
	}
	if d := viper.GetDuration("server.read_timeout"); d > 0 {
		cfg.ReadTimeout = d
	}
	if d := viper.GetDuration("server.write_timeout"); d > 0 {
		cfg.WriteTimeout = d
	}
	if d := viper.GetDuration("server.shutdown_timeout"); d > 0 {
		cfg.ShutdownTimeout = d
	}
	if n := viper.GetInt64("server.max_body_bytes"); n > 0 {
		cfg.MaxBodyBytes = n
	}
	return cfg
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
