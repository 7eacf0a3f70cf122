package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/leadchat-ai/cmd/mainconfig"
	"github.com/wolfman30/leadchat-ai/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadchat-ai/internal/config"
	"github.com/wolfman30/leadchat-ai/internal/terminal"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run one conversation in the terminal",
	Long:  `Starts a session against the configured text-generation backend and lead sinks, reading visitor input from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		level, _ := cmd.Flags().GetString("log-level")
		if err := loadEnvFile(envFile); err != nil {
			return err
		}

		cfg := appconfig.Load()
		if slots, _ := cmd.Flags().GetStringSlice("slots"); len(slots) > 0 {
			cfg.MeetingSlots = slots
		}
		logger := logging.NewWithWriter(level, cmd.ErrOrStderr())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runChat(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringSlice("slots", nil, "Meeting slots to offer (overrides MEETING_SLOTS)")
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func runChat(ctx context.Context, cfg *appconfig.Config, in io.Reader, out io.Writer, logger *logging.Logger) error {
	loadAWS := bootstrap.OnceAWS(func(ctx context.Context) (aws.Config, error) {
		return mainconfig.LoadAWSConfig(ctx, cfg)
	})
	app, err := bootstrap.Build(ctx, cfg, loadAWS, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.LeadDeliveryTimeout+5*time.Second)
		defer cancel()
		app.Close(closeCtx)
	}()

	return terminal.NewRunner(app.Service, in, out).Run(ctx)
}
