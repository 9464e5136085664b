/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_writer.go
Description: Utility for writing run results to a metrics directory. Files are named by
timestamp, result kind, and version under a per-kind subdirectory so successive runs
can be compared.
*/

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteMetricsResult writes result as JSON to <dir>/<kind>/<timestamp>_<kind>_v<version>.json
// and returns the file path
func WriteMetricsResult(dir, kind, version string, at time.Time, result interface{}) (string, error) {
	if kind == "" {
		return "", fmt.Errorf("metrics kind must not be empty")
	}

	metricsDir := filepath.Join(dir, kind)
	if err := os.MkdirAll(metricsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metrics directory: %w", err)
	}

	// 2024-06-11_01-30-00.000_cluster_v1.0.0.json
	timestamp := at.Format("2006-01-02_15-04-05.000")
	filePath := filepath.Join(metricsDir, fmt.Sprintf("%s_%s_v%s.json", timestamp, kind, version))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}

	return filePath, nil
}
