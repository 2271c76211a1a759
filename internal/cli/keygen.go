package cli

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"privgate/internal/common/fsutil"
	"privgate/internal/registry"
)

func newKeygenCmd(_ *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "keygen", Short: "Generate API and registry signing keys"}

	apiKey := &cobra.Command{Use: "api-key", Short: "Print a random API key for API_KEY", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), NewAPIKey())
			return nil
		}}

	var alg, out string
	signer := &cobra.Command{Use: "signer", Short: "Generate a registry signing keypair",
		Example: "  privgate keygen signer --alg dilithium3 --out ~/.privgate/registry.key", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			path, err := fsutil.ExpandHome(out)
			if err != nil {
				return err
			}
			if fsutil.PathExists(path) {
				return fmt.Errorf("refusing to overwrite %s", path)
			}
			s, err := registry.GenerateSigner(alg, rand.Reader)
			if err != nil {
				return err
			}
			if err := fsutil.WriteFileAtomic(path, []byte(s.PrivateKeyText()+"\n"), 0o600); err != nil {
				return err
			}
			pub := path + ".pub"
			if err := fsutil.WriteFileAtomic(pub, []byte(s.PublicKeyText()+"\n"), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\npublic key:  %s\n", path, pub)
			fmt.Fprintf(cmd.OutOrStdout(), "copy the public key to %s in the registry directory\n", registry.PublicKeyFile)
			return nil
		}}
	signer.Flags().StringVar(&alg, "alg", registry.AlgEd25519, "Signature scheme: ed25519|dilithium3")
	signer.Flags().StringVar(&out, "out", "", "Private key output path; the public key goes to <out>.pub")

	cmd.AddCommand(apiKey, signer)
	return cmd
}

// NewAPIKey returns 64 hex characters from two random UUIDs.
func NewAPIKey() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

