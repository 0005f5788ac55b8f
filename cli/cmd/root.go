package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"southwinds.dev/cloak"
	"southwinds.dev/cloak/audit"
	"southwinds.dev/cloak/internal/mem"
	"southwinds.dev/cloak/persist"
)

var (
	cfgFile       string
	password      string
	encryptor     cloak.Encryptor
	auditLogger   audit.Logger
	cliContext    *CLIContext
	memProtection mem.ProtectionLevel
)

type CLIContext struct {
	UserID    string
	SessionID string
	Source    string // hostname/IP
	StartTime time.Time
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cloak",
	Short: "Encrypt and decrypt configuration secrets with password-derived keys",
	Long: `Cloak encrypts individual values and whole configuration documents with
keys derived from a password, writing them in the ENC(...) form used by
Jasypt-style property encryption. The default cipher is AES-256-GCM; the
des and aes ciphers produce output byte-compatible with the Java library
for exchange with existing deployments.`,
	PersistentPreRunE: initializeCLI,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if auditLogger != nil {
			return auditLogger.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags - consistent with config file structure
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cloak.yaml)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "encryption password (or use CLOAK_PASSWORD env var)")
	rootCmd.PersistentFlags().StringP("algorithm", "a", "", "cipher variant (gcm, aes, des)")
	rootCmd.PersistentFlags().Int("iterations", 0, "key derivation iterations (0 uses the cipher default)")
	rootCmd.PersistentFlags().Int("salt-size", 0, "salt size in bytes (0 uses the cipher default)")
	rootCmd.PersistentFlags().Int("key-size", 0, "derived key size in bytes, gcm only (16, 24, 32)")
	rootCmd.PersistentFlags().Bool("lock-memory", false, "lock process memory before handling key material")

	// Bind flags to viper
	bindFlagOrPanic("cloak.password", "password")
	bindFlagOrPanic("cloak.algorithm", "algorithm")
	bindFlagOrPanic("cloak.iterations", "iterations")
	bindFlagOrPanic("cloak.salt_size", "salt-size")
	bindFlagOrPanic("cloak.key_size", "key-size")
	bindFlagOrPanic("cloak.lock_memory", "lock-memory")

	// Store flags (for the file subcommands)
	rootCmd.PersistentFlags().String("store-type", "", "document store backend (file, s3)")
	rootCmd.PersistentFlags().StringP("store-path", "p", "", "base path of the file document store")

	bindFlagOrPanic("cloak.store_type", "store-type")
	bindFlagOrPanic("cloak.store_path", "store-path")

	// Audit flags
	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-type", "", "audit logger type (file, syslog)")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	// Bind audit flags
	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.type", "audit-type")
	bindFlagOrPanic("audit.options.file_path", "audit-file")

	// S3 flags (for direct CLI usage)
	rootCmd.PersistentFlags().String("s3-endpoint", "", "S3 endpoint URL")
	rootCmd.PersistentFlags().String("s3-region", "", "S3 region")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 bucket name")
	rootCmd.PersistentFlags().String("s3-prefix", "", "S3 key prefix")
	rootCmd.PersistentFlags().String("s3-access-key", "", "S3 access key ID")
	rootCmd.PersistentFlags().String("s3-secret-key", "", "S3 secret access key")
	rootCmd.PersistentFlags().Bool("s3-use-ssl", true, "Use SSL for S3 connections")

	// Bind S3 flags
	bindFlagOrPanic("cloak.s3.endpoint", "s3-endpoint")
	bindFlagOrPanic("cloak.s3.region", "s3-region")
	bindFlagOrPanic("cloak.s3.bucket", "s3-bucket")
	bindFlagOrPanic("cloak.s3.prefix", "s3-prefix")
	bindFlagOrPanic("cloak.s3.access_key_id", "s3-access-key")
	bindFlagOrPanic("cloak.s3.secret_access_key", "s3-secret-key")
	bindFlagOrPanic("cloak.s3.use_ssl", "s3-use-ssl")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	// Set defaults first
	setDefaults()

	// Configure config file paths
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search in multiple locations for consistency
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/cloak")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".cloak")
	}

	// Environment variable support
	viper.SetEnvPrefix("CLOAK")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file found but error reading it
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	} else {
		if os.Getenv("DEBUG") == "true" {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

func setDefaults() {
	// Cipher defaults
	viper.SetDefault("cloak.algorithm", "gcm")

	// Store defaults - the file store roots at the working directory so
	// document names resolve the way users expect
	viper.SetDefault("cloak.store_type", "file")
	viper.SetDefault("cloak.store_path", ".")

	// S3 defaults
	viper.SetDefault("cloak.s3.region", "us-east-1")
	viper.SetDefault("cloak.s3.prefix", "cloak/")
	viper.SetDefault("cloak.s3.use_ssl", true)

	// Audit defaults
	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.type", "file")
	viper.SetDefault("audit.application", "cloak")
	viper.SetDefault("audit.options.max_size", 100)
	viper.SetDefault("audit.options.max_backups", 5)
	viper.SetDefault("audit.log_level", "info")
	viper.SetDefault("audit.options.file_path", "cloak-audit.log")
}

func initializeCLI(cmd *cobra.Command, args []string) error {
	// Skip initialization for help, completion and config-file management
	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" ||
		cmd.Name() == "version" || isConfigCommand(cmd) {
		return nil
	}

	// Initialize CLI context
	cliContext = &CLIContext{
		UserID:    getCurrentUser(),
		SessionID: generateSessionID(),
		Source:    getHostname(),
		StartTime: time.Now(),
	}

	// Create audit logger with config-based settings
	var err error
	auditLogger, err = createAuditLogger()
	if err != nil {
		return fmt.Errorf("failed to create audit logger: %w", err)
	}

	// Commands that never touch key material stop here
	if !needsEncryptor(cmd) {
		return nil
	}

	// Lock memory before any password or derived key exists in the process
	if viper.GetBool("cloak.lock_memory") {
		memProtection, err = mem.Lock()
		if err != nil {
			return fmt.Errorf("failed to lock memory: %w", err)
		}
	}

	// Get password from multiple sources
	password = viper.GetString("cloak.password")
	if password == "" {
		password = os.Getenv("CLOAK_PASSWORD")
	}
	if password == "" {
		password, err = readPassword("Password: ")
		if err != nil {
			return fmt.Errorf("encryption password is required. Use --password, the CLOAK_PASSWORD environment variable, or run interactively: %w", err)
		}
	}
	if password == "" {
		return fmt.Errorf("encryption password is required. Use --password flag or CLOAK_PASSWORD environment variable")
	}

	encryptor, err = newEncryptor(viper.GetString("cloak.algorithm"), password)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}

	return nil
}

// needsEncryptor reports whether the command decrypts or encrypts and
// therefore requires the password. The file subcommands are also named
// encrypt and decrypt.
func needsEncryptor(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "encrypt", "decrypt":
		return true
	}
	return false
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" || c.Name() == "debug-config" {
			return true
		}
	}
	return false
}

// newEncryptor builds the cipher variant selected by name, forwarding the
// tuning flags that were explicitly set.
func newEncryptor(algorithm, password string) (cloak.Encryptor, error) {
	var opts []cloak.Option
	if n := viper.GetInt("cloak.iterations"); n > 0 {
		opts = append(opts, cloak.WithIterations(n))
	}
	if n := viper.GetInt("cloak.salt_size"); n > 0 {
		opts = append(opts, cloak.WithSaltSize(n))
	}
	if n := viper.GetInt("cloak.key_size"); n > 0 {
		opts = append(opts, cloak.WithKeySize(n))
	}

	switch strings.ToLower(algorithm) {
	case "gcm", "":
		return cloak.NewGCMEncryptor(password, opts...)
	case "aes":
		return cloak.NewAESEncryptor(password, opts...)
	case "des":
		return cloak.NewDESEncryptor(password, opts...)
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s. Supported algorithms: gcm, aes, des", algorithm)
	}
}

func createAuditLogger() (audit.Logger, error) {
	// Use configuration values instead of hardcoded ones
	return audit.NewLogger(&audit.Config{
		Enabled:     viper.GetBool("audit.enabled"),
		Application: viper.GetString("audit.application"),
		Type:        audit.ConfigType(viper.GetString("audit.type")),
		Options: map[string]interface{}{
			"file_path":   viper.GetString("audit.options.file_path"),
			"max_size":    viper.GetInt("audit.options.max_size"),
			"max_backups": viper.GetInt("audit.options.max_backups"),
			"network":     viper.GetString("audit.options.network"),
			"address":     viper.GetString("audit.options.address"),
			"tag":         viper.GetString("audit.options.tag"),
		},
		LogLevel: viper.GetString("audit.log_level"),
	})
}

// createStore builds the document store the file subcommands operate on.
func createStore() (persist.Store, error) {
	storeType := viper.GetString("cloak.store_type")
	switch strings.ToLower(storeType) {
	case "file", "file_system":
		return persist.NewFileSystemStore(viper.GetString("cloak.store_path"))

	case "s3":
		s3Config := persist.S3Config{
			Endpoint:        viper.GetString("cloak.s3.endpoint"),
			AccessKeyID:     viper.GetString("cloak.s3.access_key_id"),
			SecretAccessKey: viper.GetString("cloak.s3.secret_access_key"),
			Bucket:          viper.GetString("cloak.s3.bucket"),
			KeyPrefix:       viper.GetString("cloak.s3.prefix"),
			UseSSL:          viper.GetBool("cloak.s3.use_ssl"),
			Region:          viper.GetString("cloak.s3.region"),
		}

		if err := validateS3Config(s3Config); err != nil {
			return nil, fmt.Errorf("invalid S3 configuration: %w", err)
		}

		return persist.NewS3Store(s3Config)

	default:
		return nil, fmt.Errorf("unsupported store type: %s. Supported types: file, s3", storeType)
	}
}

func validateS3Config(config persist.S3Config) error {
	var missing []string

	if config.Bucket == "" {
		missing = append(missing, "cloak.s3.bucket")
	}
	if config.Region == "" {
		missing = append(missing, "cloak.s3.region")
	}

	hasAccessKey := config.AccessKeyID != ""
	hasSecretKey := config.SecretAccessKey != ""

	if hasAccessKey && !hasSecretKey {
		missing = append(missing, "cloak.s3.secret_access_key")
	}
	if !hasAccessKey && hasSecretKey {
		missing = append(missing, "cloak.s3.access_key_id")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// getStoreConfigSummary returns a summary of the current store configuration (for logging/debugging)
func getStoreConfigSummary(storeType string) string {
	switch strings.ToLower(storeType) {
	case "file", "file_system":
		return fmt.Sprintf("File store: path=%s", viper.GetString("cloak.store_path"))
	case "s3":
		return fmt.Sprintf("S3 store: bucket=%s, region=%s, prefix=%s",
			viper.GetString("cloak.s3.bucket"),
			viper.GetString("cloak.s3.region"),
			viper.GetString("cloak.s3.prefix"))
	default:
		return fmt.Sprintf("Unknown store type: %s", storeType)
	}
}

// Helper function to check if a flag name is sensitive (for logging purposes)
func isSensitiveFlag(name string) bool {
	sensitive := []string{"passphrase", "password", "secret", "key", "token"}
	lower := strings.ToLower(name)
	for _, s := range sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// getCurrentUser retrieves the username of the currently logged-in user.
// It returns "unknown_user" if the user cannot be determined.
func getCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		// This can happen in restricted environments or certain OSes (e.g., scratch Docker images without /etc/passwd)
		envUser := os.Getenv("USER")
		if envUser != "" {
			return envUser
		}
		return "unknown_user"
	}
	return currentUser.Username
}

// generateSessionID creates a new unique session identifier.
// Uses UUID v4.
func generateSessionID() string {
	id := uuid.New()
	return id.String()
}

// getHostname retrieves the hostname of the machine.
// It returns "unknown_host" if the hostname cannot be determined.
func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		log.Printf("Warning: could not get hostname: %v. Falling back to 'unknown_host'.", err)
		return "unknown_host"
	}
	return hostname
}

// Debug command to show current configuration
var debugConfigCmd = &cobra.Command{
	Use:    "debug-config",
	Short:  "Show current configuration values",
	Long:   "Display the current configuration values read from files, environment variables, and defaults",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Configuration Debug Information\n")
		fmt.Printf("==============================\n\n")

		if viper.ConfigFileUsed() != "" {
			fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
		} else {
			fmt.Printf("Config file: none found\n")
		}

		fmt.Printf("\nEnvironment Variables (CLOAK_* prefix):\n")
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "CLOAK_") {
				parts := strings.SplitN(env, "=", 2)
				if len(parts) == 2 {
					if isSensitiveFlag(parts[0]) {
						fmt.Printf("  %s=***REDACTED***\n", parts[0])
					} else {
						fmt.Printf("  %s=%s\n", parts[0], parts[1])
					}
				}
			}
		}

		fmt.Printf("\nCurrent Configuration:\n")
		fmt.Printf("  Algorithm: %s\n", viper.GetString("cloak.algorithm"))
		fmt.Printf("  Iterations: %d (0 = cipher default)\n", viper.GetInt("cloak.iterations"))
		fmt.Printf("  Store Type: %s\n", viper.GetString("cloak.store_type"))
		fmt.Printf("  Store Path: %s\n", viper.GetString("cloak.store_path"))
		fmt.Printf("  Lock Memory: %v\n", viper.GetBool("cloak.lock_memory"))
		fmt.Printf("  Password: %s\n", func() string {
			if viper.GetString("cloak.password") != "" {
				return "***SET***"
			}
			return "***NOT SET***"
		}())

		fmt.Printf("\nAudit Configuration:\n")
		fmt.Printf("  Enabled: %v\n", viper.GetBool("audit.enabled"))
		fmt.Printf("  Type: %s\n", viper.GetString("audit.type"))
		fmt.Printf("  Application: %s\n", viper.GetString("audit.application"))
		fmt.Printf("  File Path: %s\n", viper.GetString("audit.options.file_path"))

		storeType := viper.GetString("cloak.store_type")
		if strings.ToLower(storeType) == "s3" {
			fmt.Printf("\nS3 Configuration:\n")
			fmt.Printf("  Endpoint: %s\n", viper.GetString("cloak.s3.endpoint"))
			fmt.Printf("  Region: %s\n", viper.GetString("cloak.s3.region"))
			fmt.Printf("  Bucket: %s\n", viper.GetString("cloak.s3.bucket"))
			fmt.Printf("  Prefix: %s\n", viper.GetString("cloak.s3.prefix"))
			fmt.Printf("  Use SSL: %v\n", viper.GetBool("cloak.s3.use_ssl"))
			fmt.Printf("  Access Key: %s\n", func() string {
				if viper.GetString("cloak.s3.access_key_id") != "" {
					return "***SET***"
				}
				return "***NOT SET***"
			}())
			fmt.Printf("  Secret Key: %s\n", func() string {
				if viper.GetString("cloak.s3.secret_access_key") != "" {
					return "***SET***"
				}
				return "***NOT SET***"
			}())
		}

		fmt.Printf("\nStore Configuration Summary:\n")
		fmt.Printf("  %s\n", getStoreConfigSummary(storeType))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugConfigCmd)
}

func auditCmdStart(cmd *cobra.Command, args []string) time.Time {
	now := time.Now()
	err := auditLogger.Log("command_start", true, map[string]interface{}{
		"command":    cmd.CommandPath(),
		"args":       sanitizeArgs(args),
		"flags":      sanitizeFlags(cmd),
		"user_id":    cliContext.UserID,
		"session_id": cliContext.SessionID,
		"source":     cliContext.Source,
	})
	if err != nil {
		log.Printf("ERROR: %v\n", err)
	}
	return now
}

// auditCmdComplete records the command outcome under its domain action
// (encrypt, decrypt, file.decrypt, ...) so the trail can be filtered by
// what was done rather than by which binary path ran.
func auditCmdComplete(cmd *cobra.Command, action string, err error, startedTime time.Time) error {
	if auditLogger != nil {
		auditLogger.Log(action, err == nil, map[string]interface{}{
			"command":     cmd.CommandPath(),
			"duration_ms": time.Since(startedTime).Milliseconds(),
			"success":     err == nil,
			"error":       formatError(err),
			"user_id":     cliContext.UserID,
			"session_id":  cliContext.SessionID,
		})
	}
	return err
}

func formatError(err error) string {
	if err == nil {
		return ""
	}

	var messages []string

	// Unwrap the error chain and collect all messages
	for err != nil {
		messages = append(messages, err.Error())
		err = errors.Unwrap(err)
	}

	// If we have multiple errors in the chain, show the hierarchy
	if len(messages) > 1 {
		// Remove duplicates that might occur from unwrapping
		uniqueMessages := make([]string, 0, len(messages))
		seen := make(map[string]bool)

		for _, msg := range messages {
			if !seen[msg] {
				uniqueMessages = append(uniqueMessages, msg)
				seen[msg] = true
			}
		}

		if len(uniqueMessages) > 1 {
			return fmt.Sprintf("Error: %s (caused by: %s)",
				uniqueMessages[0],
				strings.Join(uniqueMessages[1:], " -> "))
		}
	}

	// Single error or all messages were the same
	message := messages[0]

	// Basic formatting
	if len(message) > 0 {
		first := string(message[0])
		if first != strings.ToUpper(first) {
			message = strings.ToUpper(first) + message[1:]
		}
	}

	return fmt.Sprintf("Error: %s", message)
}

func sanitizeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Changed {
			if isSensitiveFlag(flag.Name) {
				flags[flag.Name] = "[REDACTED]"
			} else {
				flags[flag.Name] = flag.Value.String()
			}
		}
	})
	return flags
}

func sanitizeArgs(args []string) []string {
	// Remove or mask sensitive arguments
	sanitized := make([]string, len(args))
	for i, arg := range args {
		if containsSensitiveData(arg) {
			sanitized[i] = "[REDACTED]"
		} else {
			sanitized[i] = arg
		}
	}
	return sanitized
}

// containsSensitiveData flags arguments that carry encrypted blobs or
// staged plaintext. Plaintext arguments to encrypt never reach the audit
// trail at all; that command passes nil args to auditCmdStart.
func containsSensitiveData(arg string) bool {
	return strings.Contains(arg, "ENC(") || strings.Contains(arg, "DEC(")
}
