package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"privgate/internal/gateway"
	"privgate/internal/integrity"
)

func newModelCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "model", Short: "Manage trusted local models"}

	list := &cobra.Command{Use: "list", Short: "List registry models and their local presence", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd.Context(), g, func(ctx context.Context, gw *gateway.Gateway) error {
				resp, err := gw.ListModels(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		}}
	install := &cobra.Command{Use: "install <model>", Short: "Fetch a trusted model and verify its digest", Example: "  privgate model install phi-3-mini-instruct-q4_k_m", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyModel(cmd, g, args[0])
		}}
	verify := &cobra.Command{Use: "verify [model]", Short: "Verify (and repair) a model; defaults to the active one", Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var model string
			if len(args) == 1 {
				model = args[0]
			}
			return verifyModel(cmd, g, model)
		}}
	use := &cobra.Command{Use: "use <model>", Short: "Select the active local model", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd.Context(), g, func(ctx context.Context, gw *gateway.Gateway) error {
				resp, err := gw.SetActiveModel(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		}}
	active := &cobra.Command{Use: "active", Short: "Show the active local model", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd.Context(), g, func(ctx context.Context, gw *gateway.Gateway) error {
				resp, err := gw.ActiveModel(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		}}

	cmd.AddCommand(list, install, verify, use, active)
	return cmd
}

func verifyModel(cmd *cobra.Command, g *globals, model string) error {
	return withGateway(cmd.Context(), g, func(ctx context.Context, gw *gateway.Gateway) error {
		resp, err := gw.VerifyModel(ctx, model)
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		if resp.Outcome == string(integrity.StatusFailed) {
			return fmt.Errorf("verification failed: %s", resp.Reason)
		}
		return nil
	})
}

func withGateway(ctx context.Context, g *globals, fn func(context.Context, *gateway.Gateway) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	gw, err := gateway.Build(g.cfg, g.version, g.log)
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()
	return fn(ctx, gw)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
