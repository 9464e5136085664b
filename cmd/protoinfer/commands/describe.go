/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: describe.go
Description: Describe command implementation. Reloads a stored snapshot and prints the
analysis of every cluster without clustering again.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/protoinfer/pkg/inference"
	"github.com/kleascm/protoinfer/pkg/storage"
	"github.com/spf13/cobra"
)

// DescribeSnapshot prints the clusters of a snapshot file
func DescribeSnapshot(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 protoinfer - Snapshot Description")
	fmt.Println("====================================")
	fmt.Println()

	snapshot, err := storage.Load(args[0])
	if err != nil {
		return err
	}
	msgs, clusters, err := snapshot.Restore()
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	fmt.Printf("📁 %s: %d messages in %d clusters\n", args[0], len(msgs), len(clusters))
	fmt.Println()

	report := &inference.Report{}
	for _, c := range clusters {
		report.Clusters = append(report.Clusters, inference.Describe(c, true))
	}
	printReport(report)
	return nil
}
