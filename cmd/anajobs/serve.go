package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/anajobs/anajobs/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the organization directory over HTTP and MCP",
	Long: `Run a read-only HTTP API on the configured port and, with --mcp, an MCP
server on stdio so agents can query the directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		defer s.Close(context.Background())

		withMCP, _ := cmd.Flags().GetBool("mcp")

		port := cfg.Serve.Port
		if p, _ := cmd.Flags().GetInt("port"); p != 0 {
			port = p
		}

		addr := fmt.Sprintf("127.0.0.1:%d", port)
		srv := &http.Server{
			Addr:    addr,
			Handler: api.NewHandler(s),
			BaseContext: func(_ net.Listener) context.Context {
				return ctx
			},
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			slog.Info("http api listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if withMCP {
			g.Go(func() error {
				slog.Info("mcp server on stdio")
				mcpSrv := api.NewMCPServer(s, version)
				if err := server.ServeStdio(mcpSrv); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("mcp server: %w", err)
				}
				return nil
			})
		}

		err = g.Wait()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "shut down cleanly")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringP("uri", "c", "", "MongoDB connection URI")
	serveCmd.Flags().StringP("database", "d", "", "database name")
	serveCmd.Flags().IntP("port", "p", 0, "listen port (overrides config)")
	serveCmd.Flags().Bool("mcp", false, "also serve MCP on stdio")

	rootCmd.AddCommand(serveCmd)
}
