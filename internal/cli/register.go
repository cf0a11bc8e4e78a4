package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/model"
	"github.com/smilecare-labs/clinic-push/internal/provision"
	"github.com/smilecare-labs/clinic-push/internal/push"
	"github.com/smilecare-labs/clinic-push/internal/webclient"
	"github.com/spf13/cobra"
)

// grantedPermission stands in for a browser whose user already opted in.
type grantedPermission struct{}

func (grantedPermission) State() model.PermissionState { return model.PermissionGranted }

func (grantedPermission) Request(context.Context) (model.PermissionState, error) {
	return model.PermissionGranted, nil
}

// fixedToken hands out a token obtained elsewhere, e.g. copied from a device.
type fixedToken string

func (t fixedToken) Token(context.Context, string, *provision.WorkerRegistration) (string, error) {
	return string(t), nil
}

// checkedWriter keeps the write error the provisioner only logs.
type checkedWriter struct {
	next provision.TokenWriter
	mu   sync.Mutex
	err  error
}

func (w *checkedWriter) UpsertToken(ctx context.Context, token string, meta model.TokenMetadata) error {
	err := w.next.UpsertToken(ctx, token, meta)
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
	return err
}

func (w *checkedWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func newRegisterCmd(env Environment, root *rootOptions) *cobra.Command {
	var (
		token    string
		gateway  string
		platform string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a device token with the gateway",
		Long: "Run the device-side registration path against a gateway: the token goes through the provisioner " +
			"and is posted to /api/tokens exactly as a page would.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			token = firstNonEmpty(token, cfg.TestSend.Token)
			if config.IsPlaceholder(token) {
				return fmt.Errorf("test_send.token still holds a placeholder: pass --token")
			}
			gw, err := webclient.NewGatewayClient(firstNonEmpty(gateway, cfg.Client.GatewayURL), cfg.Client.GatewayTimeout)
			if err != nil {
				return fmt.Errorf("gateway client: %w", err)
			}

			writer := &checkedWriter{next: gw}
			device := provision.Device{Platform: platform, UserAgent: "pushctl/" + version}
			p := provision.New(webclient.FromConfig(cfg).ProvisionConfig(device),
				grantedPermission{}, nil, fixedToken(token), writer, logger)

			p.RequestPermission(cmd.Context())
			if err := writer.Err(); err != nil {
				return fmt.Errorf("register token: %w", err)
			}
			if p.Token() == "" {
				return fmt.Errorf("register token: no token obtained")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s as %s\n",
				passStyle.Render("registered"), push.RedactToken(p.Token()), platform)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "device token to register (default test_send.token)")
	cmd.Flags().StringVar(&gateway, "gateway", "", "gateway base URL (default client.gateway_url)")
	cmd.Flags().StringVar(&platform, "platform", "cli", "platform recorded with the token")
	return cmd
}
