package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"southwinds.dev/cloak"
)

var (
	decryptRaw  bool
	decryptFile string
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt [value]",
	Short: "Decrypt a single value",
	Long: `Decrypt a single ENC(...) framed value and print the plaintext. The
value can be passed as an argument, read from a file, or piped on stdin.
Use --raw when the input is a bare Base64 blob without the frame.

Examples:
  # Decrypt a framed value
  cloak decrypt "ENC(GkNQ...)" --password changeit

  # Decrypt a bare blob produced with encrypt --raw
  cloak decrypt "GkNQ..." --raw`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecrypt,
}

func init() {
	rootCmd.AddCommand(decryptCmd)

	decryptCmd.Flags().BoolVar(&decryptRaw, "raw", false, "treat the input as a bare Base64 blob without the ENC(...) frame")
	decryptCmd.Flags().StringVarP(&decryptFile, "file", "f", "", "read the value from file (use '-' for stdin)")
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	started := auditCmdStart(cmd, args)

	value, err := readValueInput(args, decryptFile)
	if err != nil {
		return auditCmdComplete(cmd, "decrypt", err, started)
	}

	var plain string
	if decryptRaw {
		plain, err = encryptor.Decrypt(value)
	} else {
		plain, err = cloak.DecryptProperty(encryptor, value)
	}
	if err != nil {
		return auditCmdComplete(cmd, "decrypt", fmt.Errorf("failed to decrypt value: %w", err), started)
	}

	fmt.Print(plain)
	if !strings.HasSuffix(plain, "\n") {
		fmt.Println()
	}
	return auditCmdComplete(cmd, "decrypt", nil, started)
}
