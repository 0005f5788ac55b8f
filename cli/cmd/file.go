package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"southwinds.dev/cloak"
	"southwinds.dev/cloak/persist"
	"southwinds.dev/cloak/properties"
)

var (
	filePattern string
	fileOut     string
	fileVerbose bool
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Encrypt and decrypt configuration documents in the document store",
	Long: `Operate on whole configuration documents held in the configured store
(local directory or S3 bucket). Documents are selected by name or by a
glob pattern and written back in place with an optimistic version check,
so a document modified by someone else mid-run is never overwritten.`,
}

var fileEncryptCmd = &cobra.Command{
	Use:   "encrypt [name...]",
	Short: "Replace DEC(...) staging markers with encrypted values",
	Long: `Encrypt every DEC(...) staging marker in the selected documents and
write them back. Staging markers hold the plaintext while a document is
being edited:

  db.password=DEC(s3cret)

becomes, after cloak file encrypt:

  db.password=ENC(GkNQ...)

Any marker that fails to encrypt aborts that document unchanged; a half
encrypted secrets file is never written.

Examples:
  cloak file encrypt app.properties
  cloak file encrypt --pattern '**/*.yaml'`,
	RunE: runFileEncrypt,
}

var fileDecryptCmd = &cobra.Command{
	Use:   "decrypt [name...]",
	Short: "Decrypt every ENC(...) value in the selected documents",
	Long: `Decrypt every ENC(...) value in the selected documents. YAML, TOML and
JSON documents are walked by structure (YAML keeps its comments);
anything else is treated as flat text. Values that fail to decrypt stay
framed so the document remains usable and the failure visible.

Examples:
  cloak file decrypt app.properties
  cloak file decrypt config/app.yaml --out /tmp/app.yaml
  cloak file decrypt --pattern '*.properties'`,
	RunE: runFileDecrypt,
}

func init() {
	rootCmd.AddCommand(fileCmd)

	fileCmd.AddCommand(fileEncryptCmd)
	fileCmd.AddCommand(fileDecryptCmd)

	fileCmd.PersistentFlags().StringVar(&filePattern, "pattern", "", "select documents by glob pattern, e.g. '**/*.yaml'")
	fileCmd.PersistentFlags().StringVarP(&fileOut, "out", "o", "", "write the result to a local file instead of saving back (single document only)")
	fileCmd.PersistentFlags().BoolVarP(&fileVerbose, "verbose", "v", false, "print per-document progress instead of a spinner")
}

func runFileEncrypt(cmd *cobra.Command, args []string) error {
	started := auditCmdStart(cmd, args)

	err := processDocuments(args, "Encrypting", "Encrypted", func(name string, data []byte) ([]byte, error) {
		out, err := cloak.EncryptAll(encryptor, string(data))
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	})

	return auditCmdComplete(cmd, "file.encrypt", err, started)
}

func runFileDecrypt(cmd *cobra.Command, args []string) error {
	started := auditCmdStart(cmd, args)

	err := processDocuments(args, "Decrypting", "Decrypted", func(name string, data []byte) ([]byte, error) {
		return properties.DecryptAuto(encryptor, name, data)
	})

	return auditCmdComplete(cmd, "file.decrypt", err, started)
}

// processDocuments runs transform over every selected document and saves
// the changed ones back under their loaded version.
func processDocuments(args []string, verb, past string, transform func(name string, data []byte) ([]byte, error)) error {
	store, err := createStore()
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	defer store.Close()

	names, err := resolveDocumentNames(store, args)
	if err != nil {
		return err
	}

	if fileOut != "" && len(names) != 1 {
		return fmt.Errorf("--out requires exactly one document, got %d", len(names))
	}

	s, cleanup := startSpinner(fmt.Sprintf("%s %d document(s)...", verb, len(names)), fileVerbose)
	defer cleanup()

	var changed, unchanged int
	var failures []string

	for _, name := range names {
		if fileVerbose {
			fmt.Printf("%s %s\n", verb, name)
		}

		vd, err := store.Load(name)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		result, err := transform(name, vd.Data)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		if fileOut != "" {
			if err = os.WriteFile(fileOut, result, 0600); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			changed++
			continue
		}

		// Nothing to rewrite, leave the stored version alone
		if bytes.Equal(result, vd.Data) {
			unchanged++
			continue
		}

		if _, err = store.Save(name, result, vd.Version); err != nil {
			if persist.IsConcurrencyError(err) {
				failures = append(failures, fmt.Sprintf("%s: document changed while processing, re-run to retry", name))
			} else {
				failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}
		changed++
	}

	s.FinalMSG = buildFileSummary(past, changed, unchanged, failures)

	if len(failures) > 0 {
		return fmt.Errorf("failed to process %d of %d document(s)", len(failures), len(names))
	}
	return nil
}

func resolveDocumentNames(store persist.Store, args []string) ([]string, error) {
	if filePattern != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("give document names or --pattern, not both")
		}
		names, err := store.List(filePattern)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no documents match pattern %q", filePattern)
		}
		return names, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("provide document names or a --pattern")
	}
	return args, nil
}

func buildFileSummary(past string, changed, unchanged int, failures []string) string {
	var b strings.Builder

	if len(failures) == 0 {
		b.WriteString(color.GreenString("✓") + fmt.Sprintf(" %s %d document(s)", past, changed))
		if unchanged > 0 {
			b.WriteString(fmt.Sprintf(", %d unchanged", unchanged))
		}
		return b.String()
	}

	b.WriteString(color.RedString("✗") + fmt.Sprintf(" %s %d document(s), %d failed:", past, changed, len(failures)))
	for _, f := range failures {
		b.WriteString("\n  " + f)
	}
	return b.String()
}
