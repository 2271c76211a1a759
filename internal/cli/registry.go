package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"privgate/internal/common/fsutil"
	"privgate/internal/registry"
)

func newRegistryCmd(g *globals) *cobra.Command {
	var dir string
	cmd := &cobra.Command{Use: "registry", Short: "Inspect and sign the trust registry"}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Registry directory (defaults REGISTRY_DIR or the models dir)")
	registryDir := func() string {
		if dir != "" {
			return dir
		}
		return g.cfg.RegistryDir
	}

	verify := &cobra.Command{Use: "verify", Short: "Check the registry signature and print its content id", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Open(registryDir(), registry.Options{MaxAge: g.cfg.RegistryMaxAge.Std()})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"cid":       reg.CID,
				"algorithm": reg.Algorithm,
				"signed_at": reg.SignedAt.UTC().Format(time.RFC3339),
				"entries":   len(reg.Entries),
				"trusted":   len(reg.Trusted()),
			})
		}}

	var keyPath string
	var writePub bool
	sign := &cobra.Command{Use: "sign", Short: "Sign the registry with an ed25519 or dilithium3 key",
		Example: "  privgate registry sign --key ~/.privgate/registry.key --write-public-key", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyPath == "" {
				return fmt.Errorf("--key is required")
			}
			path, err := fsutil.ExpandHome(keyPath)
			if err != nil {
				return err
			}
			return signRegistry(registryDir(), path, writePub, cmd)
		}}
	sign.Flags().StringVar(&keyPath, "key", "", "Private key file written by 'privgate keygen signer'")
	sign.Flags().BoolVar(&writePub, "write-public-key", false, "Also write the matching public key into the registry directory")

	cmd.AddCommand(verify, sign)
	return cmd
}

// signRegistry writes the detached signature and the digest sidecar next to
// the registry file.
func signRegistry(dir, keyPath string, writePub bool, cmd *cobra.Command) error {
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("read signing key: %w", err)
	}
	signer, err := registry.ParseSigner(keyBytes)
	if err != nil {
		return err
	}
	regPath := filepath.Join(dir, registry.RegistryFile)
	data, err := os.ReadFile(regPath)
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}
	sig, err := signer.Sign(data)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, registry.SignatureFile), sig, 0o644); err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	sidecar := hex.EncodeToString(sum[:]) + "  " + registry.RegistryFile + "\n"
	if err := fsutil.WriteFileAtomic(regPath+registry.SidecarSuffix, []byte(sidecar), 0o644); err != nil {
		return err
	}
	if writePub {
		if err := fsutil.WriteFileAtomic(filepath.Join(dir, registry.PublicKeyFile), []byte(signer.PublicKeyText()+"\n"), 0o644); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "signed %s with %s\n", regPath, signer.Algorithm())
	return nil
}
