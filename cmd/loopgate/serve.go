package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pkt.systems/loopgate/bridge"
	"pkt.systems/loopgate/mcpserver"
	"pkt.systems/loopgate/schema"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP protocol on stdin/stdout",
		Long: "Reads JSON-RPC requests line by line from stdin and writes responses to stdout. " +
			"Each interactive_feedback call spawns a browser UI session in a child process and blocks until the user submits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			b, err := bridge.New(logger)
			if err != nil {
				return err
			}
			feedback := func(ctx context.Context, projectDir, summary string) (schema.FeedbackResult, error) {
				return b.Collect(ctx, projectDir, summary)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := mcpserver.NewServer(os.Stdin, os.Stdout, feedback, logger)
			logger.Info("mcp server serving on stdio")
			return srv.Serve(ctx)
		},
	}
	return cmd
}
