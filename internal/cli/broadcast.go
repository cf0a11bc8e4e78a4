package cli

import (
	"fmt"

	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBroadcastCmd(env Environment, root *rootOptions) *cobra.Command {
	var (
		title string
		body  string
		url   string
		data  map[string]string
	)

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send one notification to every registered device",
		Long: "Load every stored token, send the notification to all of them and remove tokens the push service " +
			"reports as no longer registered. Individual send failures are reported but do not fail the command.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			ctx := cmd.Context()

			transport, err := env.NewFCM(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("load push credentials: %w", err)
			}
			store, err := env.OpenStore(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open token store: %w", err)
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logger.Warn("Failed to close token store", zap.Error(cerr))
				}
			}()

			payloadData := make(map[string]string, len(data)+1)
			for k, v := range data {
				payloadData[k] = v
			}
			target := firstNonEmpty(url, cfg.Broadcast.URL)
			if _, ok := payloadData["url"]; target != "" && (!ok || cmd.Flags().Changed("url")) {
				payloadData["url"] = target
			}
			payload := model.NotificationPayload{
				Title: firstNonEmpty(title, cfg.Broadcast.Title),
				Body:  firstNonEmpty(body, cfg.Broadcast.Body),
				Data:  payloadData,
			}

			svc := service.NewBroadcastService(store, transport, logger,
				service.WithMaxConcurrency(cfg.Broadcast.MaxConcurrency))
			result, err := svc.Broadcast(ctx, payload)
			if err != nil {
				return fmt.Errorf("broadcast failed: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "notification title (default broadcast.title)")
	cmd.Flags().StringVar(&body, "body", "", "notification body (default broadcast.body)")
	cmd.Flags().StringVar(&url, "url", "", "page opened on click (default broadcast.url)")
	cmd.Flags().StringToStringVar(&data, "data", nil, "extra data entries as key=value")
	return cmd
}
