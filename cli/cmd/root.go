package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"southwinds.dev/maskpass"
	"southwinds.dev/maskpass/audit"
	"southwinds.dev/maskpass/internal/tty"
)

var (
	cfgFile     string
	manager     *maskpass.Manager
	terminal    maskpass.PassphraseReader
	auditLogger audit.Logger
	cliContext  *CLIContext
)

type CLIContext struct {
	UserID    string
	SessionID string
	Source    string // hostname
	StartTime time.Time
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "maskpass",
	Short: "Obfuscate database and TLS passphrases for the environment",
	Long: `Obfuscates passphrases so they can be handed to database processes through
environment variables (ydb_passwd, ydb_tls_passwd_<label> and their gtm_ forms).

The obfuscation is an XOR with a mask derived from the key file named by
ydb_obfuscation_key or, when that is not usable, from $USER and the inode of
$ydb_dist/mumps. It keeps passphrases out of casual view; it is not encryption.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeManager,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if manager != nil {
			if err := manager.Close(); err != nil {
				log.Printf("Warning: %v", err)
			}
		}
		if auditLogger != nil {
			return auditLogger.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// locked buffers are purged and an open prompt's terminal restored on termination
	memguard.CatchSignal(func(os.Signal) { tty.RestoreTerminal() }, tty.InterruptSignals()...)
	defer memguard.Purge()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		memguard.SafeExit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.maskpass.yaml)")
	rootCmd.PersistentFlags().String("hash", "", "digest provider for mask derivation (sha512, sha3-512, blake2b-512)")
	rootCmd.PersistentFlags().String("executable", "", "file in $ydb_dist whose inode seeds the fallback mask")
	rootCmd.PersistentFlags().Bool("memory-lock", false, "lock all process memory before handling passphrases")

	bindFlagOrPanic("maskpass.hash", "hash")
	bindFlagOrPanic("maskpass.executable", "executable")
	bindFlagOrPanic("maskpass.memory_lock", "memory-lock")

	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-type", "", "audit logger type (file, syslog, console)")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.type", "audit-type")
	bindFlagOrPanic("audit.options.file_path", "audit-file")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/maskpass")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".maskpass")
	}

	viper.SetEnvPrefix("MASKPASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else if os.Getenv("DEBUG") == "true" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("maskpass.hash", "sha512")
	viper.SetDefault("maskpass.executable", "mumps")
	viper.SetDefault("maskpass.memory_lock", false)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.type", "file")
	viper.SetDefault("audit.log_level", "info")
	viper.SetDefault("audit.options.file_path", defaultAuditPath())
	viper.SetDefault("audit.options.pretty", false)
}

func defaultAuditPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "maskpass-audit.log"
	}
	return filepath.Join(home, ".maskpass", "audit.log")
}

// skipsManager lists commands that run without a passphrase manager.
func skipsManager(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", "__complete", "config", "debug-config", "audit":
			return true
		}
	}
	return false
}

func initializeManager(cmd *cobra.Command, args []string) error {
	if skipsManager(cmd) {
		return nil
	}

	cliContext = &CLIContext{
		UserID:    getCurrentUser(),
		SessionID: generateSessionID(),
		Source:    getHostname(),
		StartTime: time.Now(),
	}

	var err error
	auditLogger, err = createAuditLogger()
	if err != nil {
		return fmt.Errorf("failed to create audit logger: %w", err)
	}

	// prompts go to stderr so stdout carries only values meant for capture
	terminal = tty.New(os.Stdin, os.Stderr)
	manager, err = maskpass.NewManager(maskpass.Options{
		Executable:       viper.GetString("maskpass.executable"),
		Hash:             viper.GetString("maskpass.hash"),
		Terminal:         terminal,
		Audit:            auditLogger,
		EnableMemoryLock: viper.GetBool("maskpass.memory_lock"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialise passphrase manager: %w", err)
	}
	return nil
}

func createAuditLogger() (audit.Logger, error) {
	return audit.NewLogger(&audit.Config{
		Enabled: viper.GetBool("audit.enabled"),
		Type:    audit.ConfigType(viper.GetString("audit.type")),
		Options: map[string]interface{}{
			"file_path": viper.GetString("audit.options.file_path"),
			"pretty":    viper.GetBool("audit.options.pretty"),
		},
		LogLevel: viper.GetString("audit.log_level"),
		Source:   "maskpass@" + getHostname(),
	})
}

func isSensitiveFlag(name string) bool {
	sensitive := []string{"passphrase", "password", "passwd", "secret", "token"}
	lower := strings.ToLower(name)
	for _, s := range sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// getCurrentUser returns the login name, "unknown_user" when it cannot be determined.
func getCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		log.Printf("Warning: could not get current user: %v. Falling back to $USER.", err)
		if envUser := os.Getenv("USER"); envUser != "" {
			return envUser
		}
		return "unknown_user"
	}
	return currentUser.Username
}

func generateSessionID() string {
	return uuid.NewString()
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		log.Printf("Warning: could not get hostname: %v. Falling back to 'unknown_host'.", err)
		return "unknown_host"
	}
	return hostname
}

var debugConfigCmd = &cobra.Command{
	Use:   "debug-config",
	Short: "Show current configuration values",
	Long:  "Display the configuration values read from files, environment variables, and defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration Debug Information\n")
		fmt.Fprintf(out, "==============================\n\n")

		if viper.ConfigFileUsed() != "" {
			fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
		} else {
			fmt.Fprintf(out, "Config file: none found\n")
		}

		fmt.Fprintf(out, "\nEnvironment Variables (MASKPASS_* prefix):\n")
		for _, kv := range os.Environ() {
			if !strings.HasPrefix(kv, "MASKPASS_") {
				continue
			}
			name, value, _ := strings.Cut(kv, "=")
			if isSensitiveFlag(name) {
				value = "***REDACTED***"
			}
			fmt.Fprintf(out, "  %s=%s\n", name, value)
		}

		fmt.Fprintf(out, "\nCurrent Configuration:\n")
		fmt.Fprintf(out, "  Hash: %s\n", viper.GetString("maskpass.hash"))
		fmt.Fprintf(out, "  Executable: %s\n", viper.GetString("maskpass.executable"))
		fmt.Fprintf(out, "  Memory Lock: %v\n", viper.GetBool("maskpass.memory_lock"))

		fmt.Fprintf(out, "\nAudit Configuration:\n")
		fmt.Fprintf(out, "  Enabled: %v\n", viper.GetBool("audit.enabled"))
		fmt.Fprintf(out, "  Type: %s\n", viper.GetString("audit.type"))
		fmt.Fprintf(out, "  File Path: %s\n", viper.GetString("audit.options.file_path"))
		fmt.Fprintf(out, "  Log Level: %s\n", viper.GetString("audit.log_level"))
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
		"args":       args,
		"flags":      sanitizeFlags(cmd),
		"user_id":    cliContext.UserID,
		"session_id": cliContext.SessionID,
	})
	if err != nil {
		log.Printf("ERROR: %v\n", err)
	}
	return now
}

func auditCmdComplete(cmd *cobra.Command, err error, startedTime time.Time) error {
	if auditLogger != nil {
		metadata := map[string]interface{}{
			"command":     cmd.CommandPath(),
			"duration_ms": time.Since(startedTime).Milliseconds(),
			"user_id":     cliContext.UserID,
			"session_id":  cliContext.SessionID,
		}
		if err != nil {
			metadata["error"] = err.Error()
		}
		if logErr := auditLogger.Log("command_complete", err == nil, metadata); logErr != nil {
			log.Printf("ERROR: %v\n", logErr)
		}
	}
	return err
}

// formatError prefixes err with the failure kind when the library reports one.
func formatError(err error) string {
	if err == nil {
		return ""
	}
	if kind := maskpass.KindOf(err); kind != 0 {
		return fmt.Sprintf("Error (%s): %v", kind, err)
	}
	return fmt.Sprintf("Error: %v", err)
}

func sanitizeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			return
		}
		if isSensitiveFlag(flag.Name) {
			flags[flag.Name] = "[REDACTED]"
		} else {
			flags[flag.Name] = flag.Value.String()
		}
	})
	return flags
}
