/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cluster.go
Description: Cluster command implementation. Loads messages from every configured input,
runs the clustering engine, prints the inferred grammars, and writes a snapshot.
*/

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleascm/protoinfer/pkg/clustering"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/inference"
	"github.com/kleascm/protoinfer/pkg/ingest"
	"github.com/kleascm/protoinfer/pkg/logging"
	"github.com/kleascm/protoinfer/pkg/storage"
	"github.com/kleascm/protoinfer/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunCluster clusters the configured inputs
func RunCluster(cmd *cobra.Command, args []string) error {
	fmt.Println("🧬 protoinfer - Message Clustering")
	fmt.Println("==================================")
	fmt.Println()

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	cfg := ClusterConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	inputs := viper.GetStringSlice("ingest.inputs")
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs given, use --input or ingest.inputs")
	}

	msgs, err := loadInputs(inputs, viper.GetString("ingest.format"), logger)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Println("📭 No messages found in the inputs.")
		return nil
	}
	fmt.Printf("✅ Loaded %d messages\n", len(msgs))
	fmt.Println()

	ctx, cancel := signalContext()
	defer cancel()

	opts := inference.AnalyzeOptions{
		SizeFields: viper.GetBool("size_fields"),
		Engine:     []clustering.Option{clustering.WithLogger(logger.Component("engine"))},
	}
	if viper.GetBool("trace_merges") {
		opts.Engine = append(opts.Engine, clustering.WithReporter(core.NewLoggerReporter(logger.Component("engine"))))
	}

	fmt.Printf("🧠 Clustering (threshold %.1f, schedule %s)...\n", cfg.EquivalenceThreshold, cfg.ThresholdSchedule)
	startTime := time.Now()

	report, err := inference.Analyze(ctx, msgs, cfg, opts)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}
	logger.LogRun(report.Stats, len(report.Clusters))

	fmt.Printf("✅ Clustering completed in %v\n", time.Since(startTime))
	fmt.Println()

	printReport(report)

	if output := viper.GetString("output"); output != "" {
		clusters := make([]*core.Cluster, len(report.Clusters))
		for i, cr := range report.Clusters {
			clusters[i] = cr.Cluster
		}
		if err := storage.Save(output, storage.NewSnapshot(msgs, clusters)); err != nil {
			fmt.Printf("⚠️  Failed to save snapshot: %v\n", err)
			return err
		}
		fmt.Printf("💾 Snapshot saved to: %s\n", output)
	}

	if metricsDir := viper.GetString("metrics_dir"); metricsDir != "" {
		path, err := utils.WriteMetricsResult(metricsDir, "cluster", cmd.Root().Version, startTime, report)
		if err != nil {
			fmt.Printf("⚠️  Failed to write metrics: %v\n", err)
		} else {
			fmt.Printf("📊 Metrics written to: %s\n", path)
		}
	}

	fmt.Println("\n✨ Clustering completed!")
	return nil
}

// loadInputs reads every input and checks that message ids are unique across them
func loadInputs(inputs []string, format string, logger *logging.Logger) ([]*core.Message, error) {
	pcapOpts := ingest.PcapOptions{
		Protocol: viper.GetString("ingest.protocol"),
		Ports:    viper.GetIntSlice("ingest.ports"),
		Limit:    viper.GetInt("ingest.limit"),
		Logger:   logger.Component("ingest"),
	}

	corpus := core.NewCorpus()
	for _, input := range inputs {
		kind, err := inputKind(input, format)
		if err != nil {
			return nil, err
		}

		fmt.Printf("📖 Loading %s (%s)\n", input, kind)
		msgs, err := readInput(input, kind, pcapOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", input, err)
		}
		before := corpus.Bytes()
		if err := corpus.AddAll(msgs); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", input, err)
		}
		logger.LogIngest(input, len(msgs), corpus.Bytes()-before)
	}
	return corpus.Messages(), nil
}

// inputKind resolves "auto" from the file extension or directory
func inputKind(path, format string) (string, error) {
	if format != "" && format != "auto" {
		switch format {
		case "pcap", "hex", "dir", "snapshot":
			return format, nil
		default:
			return "", fmt.Errorf("unsupported input format: %s", format)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat input: %w", err)
	}
	if info.IsDir() {
		return "dir", nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcap", ".pcapng", ".cap":
		return "pcap", nil
	case ".json", ".yaml", ".yml", ".toml":
		return "snapshot", nil
	default:
		return "hex", nil
	}
}

func readInput(path, kind string, pcapOpts ingest.PcapOptions) ([]*core.Message, error) {
	switch kind {
	case "pcap":
		return ingest.ReadPcapFile(path, pcapOpts)
	case "dir":
		return ingest.ReadDir(path)
	case "snapshot":
		snapshot, err := storage.Load(path)
		if err != nil {
			return nil, err
		}
		msgs, _, err := snapshot.Restore()
		return msgs, err
	default:
		return ingest.ReadHexFile(path)
	}
}

// printReport displays clusters, fields, and size fields
func printReport(report *inference.Report) {
	fmt.Println("📋 Inferred Grammars")
	fmt.Println("====================")
	fmt.Printf("Clusters: %d  Merges: %d  Pair evaluations: %d\n",
		len(report.Clusters), report.Stats.Merges, report.Stats.PairEvaluations)
	fmt.Println()

	for _, cr := range report.Clusters {
		c := cr.Cluster
		fmt.Printf("📦 %s (%d messages, score %.2f)\n", c.Name, c.Size(), c.Score)
		for _, f := range cr.Fields {
			fmt.Printf("    %-10s %-14s %-9s legal: %s\n", f.Name, f.Pattern, f.Type, joinTypes(f.Legal))
			if len(f.Samples) > 0 {
				fmt.Printf("               samples: %s\n", strings.Join(f.Samples, " | "))
			}
		}
		for _, sf := range cr.SizeFields {
			fmt.Printf("    📏 %s\n", sf)
		}
		if len(cr.Mismatches) > 0 {
			fmt.Printf("    ⚠️  %d members do not match the grammar\n", len(cr.Mismatches))
		}
		fmt.Println()
	}
}

func joinTypes(types []core.RenderingType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
