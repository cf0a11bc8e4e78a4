package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smilecare-labs/clinic-push/internal/background"
	"github.com/smilecare-labs/clinic-push/internal/webclient"
	"github.com/spf13/cobra"
)

func newPreviewCmd(env Environment, root *rootOptions) *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show how the worker renders a push payload",
		Long: "Parse a raw push payload the way the background worker does and print the notification it would show. " +
			"Omit --payload to see the defaults for an empty push.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			parsed := background.ParsePayload([]byte(payload), cmd.Flags().Changed("payload"))
			worker := webclient.NewWorker(webclient.FromConfig(cfg), nil, nil, logger)
			title, opts := worker.Build(parsed)

			kind := "structured"
			if _, ok := parsed.(background.PlainText); ok {
				kind = "plain text"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(title))
			fmt.Fprintln(out, opts.Body)
			fmt.Fprintln(out, dimStyle.Render("payload: "+kind))
			fmt.Fprintf(out, "icon: %s\nbadge: %s\n", opts.Icon, opts.Badge)
			if opts.Image != "" {
				fmt.Fprintf(out, "image: %s\n", opts.Image)
			}
			if opts.Tag != "" {
				fmt.Fprintf(out, "tag: %s\n", opts.Tag)
			}
			keys := make([]string, 0, len(opts.Data))
			for k := range opts.Data {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, k+"="+opts.Data[k])
			}
			fmt.Fprintf(out, "data: %s\n", strings.Join(pairs, " "))
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "raw push payload, usually JSON")
	return cmd
}
