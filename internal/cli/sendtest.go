package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/spf13/cobra"
)

func newSendTestCmd(env Environment, root *rootOptions) *cobra.Command {
	var (
		token        string
		subscription string
		title        string
		body         string
	)

	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a single test notification",
		Long: "Send one notification to a single FCM token, or to a Web Push subscription read from a JSON file. " +
			"Placeholder values left in the config are rejected.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			ctx := cmd.Context()

			payload := model.NotificationPayload{
				Title: firstNonEmpty(title, cfg.TestSend.Title),
				Body:  firstNonEmpty(body, cfg.TestSend.Body),
				Data:  map[string]string{"url": "/"},
			}
			if config.IsPlaceholder(payload.Title) {
				return fmt.Errorf("test_send.title is not set: pass --title or fill it in the config")
			}
			if config.IsPlaceholder(payload.Body) {
				return fmt.Errorf("test_send.body is not set: pass --body or fill it in the config")
			}

			var (
				transport push.Transport
				target    string
			)
			if file := firstNonEmpty(subscription, cfg.TestSend.SubscriptionFile); file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read subscription file: %w", err)
				}
				target = strings.TrimSpace(string(raw))
				if config.IsPlaceholder(target) {
					return fmt.Errorf("subscription file %s still holds a placeholder", file)
				}
				if transport, err = env.NewWebPush(cfg, logger); err != nil {
					return fmt.Errorf("init web push: %w", err)
				}
			} else {
				target = firstNonEmpty(token, cfg.TestSend.Token)
				if config.IsPlaceholder(target) {
					return fmt.Errorf("test_send.token still holds a placeholder: pass --token or set it in the config")
				}
				if transport, err = env.NewFCM(ctx, cfg, logger); err != nil {
					return fmt.Errorf("load push credentials: %w", err)
				}
			}

			id, err := transport.Send(ctx, payload.ForRecipient(target))
			if err != nil {
				if push.IsNotRegistered(err) {
					return fmt.Errorf("%s is no longer registered: %w", push.RedactToken(target), err)
				}
				return fmt.Errorf("send via %s: %w", transport.Name(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s via %s, message id: %s\n",
				passStyle.Render("sent"), transport.Name(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "FCM registration token (default test_send.token)")
	cmd.Flags().StringVar(&subscription, "subscription", "", "path to a Web Push subscription JSON file (default test_send.subscription_file)")
	cmd.Flags().StringVar(&title, "title", "", "notification title (default test_send.title)")
	cmd.Flags().StringVar(&body, "body", "", "notification body (default test_send.body)")
	return cmd
}
