/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serve.go
Description: Serve command implementation. Runs the HTTP query API until interrupted.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/protoinfer/pkg/api"
	"github.com/spf13/cobra"
)

// RunServer starts the HTTP API and blocks until SIGINT or SIGTERM
func RunServer(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	server, err := api.NewServer(ServerConfig(), ClusterConfig(), logger, cmd.Root().Version)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	return server.Run(ctx)
}
