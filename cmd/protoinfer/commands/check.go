/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: check.go
Description: Self-check command implementation. Validates configuration and the
environment a clustering run or the server depends on.
*/

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// PerformSelfCheck runs every check and reports how many passed
func PerformSelfCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 protoinfer - Self-Check")
	fmt.Println("==========================")
	fmt.Println()

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	checks := []struct {
		name     string
		function func() error
	}{
		{"Clustering Configuration", checkClusterConfig},
		{"Logging Configuration", checkLoggingConfig},
		{"Log Directory", checkLogDirectory},
		{"Inputs", checkInputs},
	}

	passed := 0
	total := len(checks)

	for _, check := range checks {
		fmt.Printf("🔍 %s... ", check.name)
		if err := check.function(); err != nil {
			fmt.Printf("❌ FAILED: %v\n", err)
		} else {
			fmt.Println("✅ PASSED")
			passed++
		}
	}

	fmt.Println()
	fmt.Printf("📊 Results: %d/%d checks passed\n", passed, total)

	if passed == total {
		fmt.Println("✨ All checks passed!")
		return nil
	}
	fmt.Println("⚠️  Some checks failed. Please address the issues before clustering.")
	return fmt.Errorf("%d/%d checks failed", total-passed, total)
}

func checkClusterConfig() error {
	return ClusterConfig().Validate()
}

func checkLoggingConfig() error {
	return LoggerConfig().Validate()
}

// checkLogDirectory verifies that the log directory is writable
func checkLogDirectory() error {
	dir := viper.GetString("log.output_dir")
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".protoinfer-check-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// checkInputs verifies that every configured input exists and has a known kind
func checkInputs() error {
	format := viper.GetString("ingest.format")
	for _, input := range viper.GetStringSlice("ingest.inputs") {
		if _, err := inputKind(filepath.Clean(input), format); err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
	}
	return nil
}
