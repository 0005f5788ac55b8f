package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"southwinds.dev/cloak"
)

var (
	encryptRaw  bool
	encryptFile string
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt [value]",
	Short: "Encrypt a single value",
	Long: `Encrypt a single value with the configured cipher and print it in the
ENC(...) form ready to paste into a configuration file. The value can be
passed as an argument, read from a file, or piped on stdin.

Examples:
  # Encrypt an inline value
  cloak encrypt "s3cret" --password changeit

  # Encrypt from stdin (keeps the value out of shell history)
  echo -n "s3cret" | cloak encrypt

  # Java-compatible output for an existing PBEWithMD5AndDES deployment
  cloak encrypt "s3cret" --algorithm des`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncrypt,
}

func init() {
	rootCmd.AddCommand(encryptCmd)

	encryptCmd.Flags().BoolVar(&encryptRaw, "raw", false, "print the bare Base64 blob without the ENC(...) frame")
	encryptCmd.Flags().StringVarP(&encryptFile, "file", "f", "", "read the value from file (use '-' for stdin)")
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	// Plaintext arguments must never reach the audit trail
	started := auditCmdStart(cmd, nil)

	value, err := readValueInput(args, encryptFile)
	if err != nil {
		return auditCmdComplete(cmd, "encrypt", err, started)
	}

	var out string
	if encryptRaw {
		out, err = encryptor.Encrypt(value)
	} else {
		out, err = cloak.EncryptProperty(encryptor, value)
	}
	if err != nil {
		return auditCmdComplete(cmd, "encrypt", fmt.Errorf("failed to encrypt value: %w", err), started)
	}

	fmt.Println(out)
	return auditCmdComplete(cmd, "encrypt", nil, started)
}
