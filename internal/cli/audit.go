package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"privgate/internal/audit"
)

func newAuditCmd(g *globals) *cobra.Command {
	var path string
	cmd := &cobra.Command{Use: "audit", Short: "Inspect the audit ledger"}
	verify := &cobra.Command{Use: "verify", Short: "Recompute the ledger hash chain", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = g.cfg.AuditLedger
			}
			rep, err := audit.VerifyFile(path)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if !rep.Valid {
				return fmt.Errorf("audit ledger invalid at line %d: %s", rep.Line, rep.Reason)
			}
			return nil
		}}
	verify.Flags().StringVar(&path, "ledger", "", "Ledger file (defaults AUDIT_LEDGER)")
	cmd.AddCommand(verify)
	return cmd
}
