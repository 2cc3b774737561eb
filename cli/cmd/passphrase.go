package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"southwinds.dev/maskpass"
)

var (
	slotName      string
	slotSuffix    string
	promptText    string
	confirmMask   bool
	noInteractive bool
	createVar     bool
)

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Prompt for a passphrase and print its obfuscated form",
	Long: `Reads a passphrase from the terminal with echo off and prints the upper case
hexadecimal value to assign to ydb_passwd or ydb_tls_passwd_<label>.

Examples:
  # Obfuscate a database passphrase
  export ydb_passwd=$(maskpass mask)

  # Ask twice and fail on a mismatch
  maskpass mask --confirm`,
	Args: cobra.NoArgs,
	RunE: runMask,
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Resolve a passphrase variable and print a shell export for it",
	Long: `Loads the passphrase held in the slot's environment variable, prompting when the
variable is set to an empty string, and prints an export statement with the
obfuscated value.

Examples:
  # Prompt when ydb_passwd is empty and export the result
  eval $(ydb_passwd= maskpass env)

  # TLS passphrase for the "client" configuration
  eval $(maskpass env --slot tls --suffix client --create)`,
	Args: cobra.NoArgs,
	RunE: runEnv,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a typed passphrase against the slot's environment variable",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(maskCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(verifyCmd)

	maskCmd.Flags().StringVar(&promptText, "prompt", "Enter Passphrase: ", "prompt shown before reading")
	maskCmd.Flags().BoolVar(&confirmMask, "confirm", false, "read the passphrase twice and require both to match")

	for _, c := range []*cobra.Command{envCmd, verifyCmd} {
		c.Flags().StringVar(&slotName, "slot", "database", "passphrase slot (database, tls)")
		c.Flags().StringVar(&slotSuffix, "suffix", "", "TLS configuration label appended to the variable name")
		c.Flags().StringVar(&promptText, "prompt", "Enter Passphrase: ", "prompt shown before reading")
	}
	envCmd.Flags().BoolVar(&noInteractive, "no-prompt", false, "fail instead of prompting when the variable is empty")
	envCmd.Flags().BoolVar(&createVar, "create", false, "prompt when neither variable form is defined")
}

func parseSlot(name string) (maskpass.Slot, error) {
	switch strings.ToLower(name) {
	case "database", "db":
		return maskpass.SlotDatabase, nil
	case "tls":
		return maskpass.SlotTLS, nil
	default:
		return 0, fmt.Errorf("unknown slot %q (valid: database, tls)", name)
	}
}

func readPassphrase(prompt string) (*maskpass.Secret, error) {
	secret, err := terminal.Read(prompt, maskpass.MaxPassphraseLen)
	if err != nil {
		secret.Destroy()
		return nil, err
	}
	return secret, nil
}

func runMask(cmd *cobra.Command, args []string) error {
	started := auditCmdStart(cmd, args)
	return auditCmdComplete(cmd, maskPassphrase(cmd), started)
}

func maskPassphrase(cmd *cobra.Command) error {
	secret, err := readPassphrase(promptText)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	defer secret.Destroy()

	if confirmMask {
		again, err := readPassphrase("Re-enter Passphrase: ")
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		defer again.Destroy()
		if !secret.Equal(again.Bytes()) {
			return fmt.Errorf("passphrases do not match")
		}
	}

	hexValue, err := manager.MaskPassphrase(secret.Bytes())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hexValue)
	return nil
}

func runEnv(cmd *cobra.Command, args []string) error {
	started := auditCmdStart(cmd, args)
	return auditCmdComplete(cmd, exportPassphrase(cmd), started)
}

func exportPassphrase(cmd *cobra.Command) error {
	slot, err := parseSlot(slotName)
	if err != nil {
		return err
	}
	if createVar {
		current, legacy := slot.VariableNames(slotSuffix)
		_, hasCurrent := os.LookupEnv(current)
		_, hasLegacy := os.LookupEnv(legacy)
		if !hasCurrent && !hasLegacy {
			if err = os.Setenv(current, ""); err != nil {
				return err
			}
		}
	}

	mode := maskpass.ModeInteractive
	if noInteractive {
		mode = 0
	}
	entry, err := manager.Update(slot, slotSuffix, nil, promptText, mode)
	if err != nil {
		return err
	}
	defer manager.Release(entry)

	fmt.Fprintf(cmd.OutOrStdout(), "export %s=%s\n", entry.EnvName(), entry.EnvValue())
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	started := auditCmdStart(cmd, args)
	return auditCmdComplete(cmd, verifyPassphrase(cmd), started)
}

func verifyPassphrase(cmd *cobra.Command) error {
	slot, err := parseSlot(slotName)
	if err != nil {
		return err
	}
	entry, err := manager.Update(slot, slotSuffix, nil, "", 0)
	if err != nil {
		return err
	}
	defer manager.Release(entry)

	typed, err := readPassphrase(promptText)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	defer typed.Destroy()

	if !typed.Equal(entry.Passphrase()) {
		return fmt.Errorf("passphrase does not match %s", entry.EnvName())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Passphrase matches %s\n", entry.EnvName())
	return nil
}
