package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibecoding/mcp-server/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP context server",
	Long: `Starts the HTTP server exposing token issuance and authenticated
context retrieval. The vector index is bootstrapped lazily on the first
request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := buildServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		log.Printf("serve: %s, indexed chunks=%d", svcs.pipeline.Describe(), svcs.store.Count())

		srv := server.New(server.Config{
			Host:     svcs.cfg.Host,
			Port:     svcs.cfg.Port,
			AllowAll: svcs.cfg.AllowAllOrigins,
			Version:  Version,
		}, svcs.auth, svcs.retriever, svcs.aggregator)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-stop:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
