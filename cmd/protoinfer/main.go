/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for protoinfer. Wires the cluster, describe,
serve, and check commands to viper-backed configuration so every setting can come from
a flag, a config file, or a PROTOINFER_ environment variable.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/protoinfer/cmd/protoinfer/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "protoinfer",
		Short: "protoinfer - Protocol message format inference",
		Long: `protoinfer groups captured protocol messages by format and infers a field
grammar for every group. It aligns messages pairwise, clusters them by alignment score,
classifies the bytes of every field, and searches for length fields.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Configuration and logging flags
	rootCmd.PersistentFlags().String("config", "", "Configuration file path (yaml, toml, json)")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().String("log-dir", "", "Log output directory, empty for console only")
	rootCmd.PersistentFlags().Int("log-max-size", 100, "Maximum log file size in megabytes")
	rootCmd.PersistentFlags().Int("log-max-backups", 10, "Maximum number of rotated log files to keep")
	rootCmd.PersistentFlags().Bool("log-compress", false, "Compress rotated log files")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log.output_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log.max_size", rootCmd.PersistentFlags().Lookup("log-max-size"))
	viper.BindPFlag("log.max_backups", rootCmd.PersistentFlags().Lookup("log-max-backups"))
	viper.BindPFlag("log.compress", rootCmd.PersistentFlags().Lookup("log-compress"))

	// Clustering flags, shared by cluster and serve
	rootCmd.PersistentFlags().Float64("threshold", 60, "Equivalence threshold for merging clusters (0-100)")
	rootCmd.PersistentFlags().Int("max-iterations", 100, "Maximum merge iterations (0 = until convergence)")
	rootCmd.PersistentFlags().String("schedule", "constant", "Threshold schedule (constant, linear, legacy)")
	rootCmd.PersistentFlags().Float64("step", 1, "Threshold growth step for non-constant schedules")
	rootCmd.PersistentFlags().Bool("orphans", false, "Fold remaining singletons into the best cluster")
	rootCmd.PersistentFlags().String("rendering", "ascii", "Default field rendering (ascii, binary)")
	rootCmd.PersistentFlags().Int("workers", 0, "Pair scoring goroutines (0 = auto-detect)")
	rootCmd.PersistentFlags().Bool("slick", false, "Drop isolated literal bytes between gaps")

	viper.BindPFlag("clustering.equivalence_threshold", rootCmd.PersistentFlags().Lookup("threshold"))
	viper.BindPFlag("clustering.max_iterations", rootCmd.PersistentFlags().Lookup("max-iterations"))
	viper.BindPFlag("clustering.threshold_schedule", rootCmd.PersistentFlags().Lookup("schedule"))
	viper.BindPFlag("clustering.threshold_step", rootCmd.PersistentFlags().Lookup("step"))
	viper.BindPFlag("clustering.orphan_reduction", rootCmd.PersistentFlags().Lookup("orphans"))
	viper.BindPFlag("clustering.default_rendering", rootCmd.PersistentFlags().Lookup("rendering"))
	viper.BindPFlag("clustering.workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("clustering.slick", rootCmd.PersistentFlags().Lookup("slick"))

	// Add cluster command
	clusterCmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster captured messages and infer their grammars",
		Long: `Load messages from capture files, hex dumps, corpus directories, or earlier
snapshots, cluster them by format, and write the result as a snapshot. The snapshot
format follows the output file extension (.json, .yaml, .toml).`,
		RunE: commands.RunCluster,
	}

	clusterCmd.Flags().StringSlice("input", []string{}, "Input files or directories")
	clusterCmd.Flags().String("input-format", "auto", "Input format (auto, pcap, hex, dir, snapshot)")
	clusterCmd.Flags().String("protocol", "", "Keep only tcp or udp payloads from captures")
	clusterCmd.Flags().IntSlice("ports", []int{}, "Keep only capture payloads to or from these ports")
	clusterCmd.Flags().Int("limit", 0, "Maximum messages read per capture (0 = no limit)")
	clusterCmd.Flags().String("output", "", "Snapshot output path")
	clusterCmd.Flags().Bool("size-fields", true, "Search clusters for size fields")
	clusterCmd.Flags().Bool("trace-merges", false, "Log every accepted merge")
	clusterCmd.Flags().String("metrics-dir", "", "Directory for run reports as JSON")

	viper.BindPFlag("ingest.inputs", clusterCmd.Flags().Lookup("input"))
	viper.BindPFlag("ingest.format", clusterCmd.Flags().Lookup("input-format"))
	viper.BindPFlag("ingest.protocol", clusterCmd.Flags().Lookup("protocol"))
	viper.BindPFlag("ingest.ports", clusterCmd.Flags().Lookup("ports"))
	viper.BindPFlag("ingest.limit", clusterCmd.Flags().Lookup("limit"))
	viper.BindPFlag("output", clusterCmd.Flags().Lookup("output"))
	viper.BindPFlag("size_fields", clusterCmd.Flags().Lookup("size-fields"))
	viper.BindPFlag("trace_merges", clusterCmd.Flags().Lookup("trace-merges"))
	viper.BindPFlag("metrics_dir", clusterCmd.Flags().Lookup("metrics-dir"))

	rootCmd.AddCommand(clusterCmd)

	// Add describe command for stored snapshots
	describeCmd := &cobra.Command{
		Use:   "describe <snapshot>",
		Short: "Describe the clusters of a stored snapshot",
		Long: `Load a snapshot and print every cluster's grammar, the legal renderings of
each field, and size field candidates.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.DescribeSnapshot,
	}
	rootCmd.AddCommand(describeCmd)

	// Add serve command for the HTTP query surface
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inference API over HTTP",
		Long: `Start the HTTP query API. Clustering requests use the configured clustering
settings unless they carry their own.`,
		RunE: commands.RunServer,
	}

	serveCmd.Flags().String("listen", ":8080", "Listen address")
	serveCmd.Flags().Duration("shutdown-timeout", 0, "Graceful shutdown timeout (0 = default)")
	serveCmd.Flags().Int64("max-body", 0, "Maximum request body in bytes (0 = default)")

	viper.BindPFlag("server.listen_addr", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("server.shutdown_timeout", serveCmd.Flags().Lookup("shutdown-timeout"))
	viper.BindPFlag("server.max_body_bytes", serveCmd.Flags().Lookup("max-body"))

	rootCmd.AddCommand(serveCmd)

	// Add check command for configuration self-checks
	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate configuration, inputs, and log output",
		Long: `Perform self-checks on the clustering and logging configuration, input
accessibility, and log directory writability. Useful in CI before a long run.`,
		RunE: commands.PerformSelfCheck,
	})

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("protoinfer %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
