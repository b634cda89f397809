package main

import (
	"context"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/loopgate"
	"pkt.systems/loopgate/httpapi"
	"pkt.systems/loopgate/internal/appconfig"
	"pkt.systems/pslog"
)

func newUICmd() *cobra.Command {
	var cfgPath string
	var projectDir string
	var prompt string
	var outputFile string
	var noBrowser bool
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Run one feedback UI session",
		Long: "Hosts the browser UI for a single feedback session and exits once feedback " +
			"has been submitted. The result is written to the output file as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}

			server, err := loopgate.New(loopgate.ServerConfig{
				ProjectDir:  projectDir,
				Prompt:      prompt,
				OutputFile:  outputFile,
				StateDir:    cfg.StateDir,
				MaxLogBytes: cfg.UI.MaxLogBytes,
				HTTP: httpapi.Config{
					PreferredPort: cfg.HTTP.PreferredPort,
					PortProbeSpan: cfg.HTTP.PortProbeSpan,
					CloseDelay:    time.Duration(cfg.HTTP.CloseDelayMS) * time.Millisecond,
				},
			}, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				server.Stop()
			}()

			if err := server.Start(ctx); err != nil {
				return err
			}
			if !noBrowser {
				openBrowser(ctx, server.URL(), logger)
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&projectDir, "project-directory", "", "project directory commands run in")
	cmd.Flags().StringVar(&prompt, "prompt", "", "summary shown to the user")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "path the feedback result is written to")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not open a browser automatically")
	_ = cmd.MarkFlagRequired("project-directory")
	_ = cmd.MarkFlagRequired("output-file")
	return cmd
}

// openBrowser launches the platform browser best-effort; the URL is logged
// either way so the user can open it by hand.
func openBrowser(ctx context.Context, url string, logger pslog.Logger) {
	logger.Info("feedback ui ready", "url", url)
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("browser launch failed", "err", err)
		return
	}
	go func() { _ = cmd.Wait() }()
}
