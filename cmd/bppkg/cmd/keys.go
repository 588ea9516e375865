package cmd

import (
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <key-id>",
	Short: "Generate a signing keypair",
	Long: `Keygen creates an Ed25519 keypair under the user keys directory.

The private key is written owner-only. Existing key files for the same id
are never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, _, err := newInstaller()
		if err != nil {
			return err
		}
		kp, err := inst.Keygen(args[0])
		if err != nil {
			return err
		}
		cmd.Printf("Generated keypair %s\n", kp.KeyID)
		cmd.Printf("  private: %s\n", kp.PrivatePath)
		cmd.Printf("  public:  %s\n", kp.PublicPath)
		return nil
	},
}

var trustCmd = &cobra.Command{
	Use:   "trust <key-id> <pubkey-path>",
	Short: "Trust a registry signer's public key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, _, err := newInstaller()
		if err != nil {
			return err
		}
		if err := inst.Trust(args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("Trusted key %s\n", args[0])
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Report the checksum of a local package file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, _, err := newInstaller()
		if err != nil {
			return err
		}
		report, err := inst.Verify(args[0])
		if err != nil {
			return err
		}
		cmd.Printf("%s\n", report.Path)
		cmd.Printf("  size:   %d bytes\n", report.Size)
		cmd.Printf("  sha256: %s\n", report.Checksum)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd, trustCmd, verifyCmd)
}
