package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd(env Environment) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "pushctl",
		Short:         "Operator tools for clinic push notifications",
		Long:          "pushctl broadcasts a notification to every registered device and sends one-off test pushes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(newBroadcastCmd(env, opts))
	cmd.AddCommand(newSendTestCmd(env, opts))
	cmd.AddCommand(newRegisterCmd(env, opts))
	cmd.AddCommand(newPreviewCmd(env, opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// NewRootCmdForTest returns the root command wired to env.
func NewRootCmdForTest(env Environment) *cobra.Command {
	return newRootCmd(env)
}

// Execute runs pushctl until completion or SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd := newRootCmd(DefaultEnvironment())
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("error: ")+err.Error())
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pushctl %s (%s)\n", version, commit)
		},
	}
}

// load reads config and builds a logger. Logs go to stderr unless
// log.output_path says otherwise, so stdout only carries the report.
func (o *rootOptions) load(env Environment) (*config.Config, *zap.Logger, error) {
	cfg, err := env.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if strings.TrimSpace(o.logLevel) != "" {
		level = o.logLevel
	}
	output := cfg.Log.OutputPath
	if output == "" {
		output = "stderr"
	}
	logger, err := env.NewLogger(logging.Config{
		Level:      level,
		Encoding:   cfg.Log.Encoding,
		OutputPath: output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
