package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"southwinds.dev/maskpass"
	"southwinds.dev/maskpass/internal/env"
	"southwinds.dev/maskpass/internal/mem"
)

var statusSuffixes []string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show obfuscation and passphrase variable status",
	Long: `Display which source the obfuscation mask is derived from, the memory protection
level and the state of the passphrase variables. Values are never printed.`,
	RunE: showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringSliceVar(&statusSuffixes, "tls", nil, "TLS configuration labels to report on")
}

func showStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Maskpass Status")
	fmt.Fprintln(out, "===============")

	fmt.Fprintf(out, "Memory Protection: %s\n", manager.Protection())
	fmt.Fprintf(out, "Hash: %s\n", manager.HashName())

	if key, ok := env.Lookup(env.OS{}, env.ObfuscationKey, ""); ok && key.Value != "" {
		fmt.Fprintf(out, "Key File: %s (from %s)\n", key.Value, key.Name)
	} else {
		fmt.Fprintf(out, "Key File: not set, using %s and %s/%s\n",
			env.Describe(env.User, ""), env.Describe(env.Dist, ""), viper.GetString("maskpass.executable"))
	}

	if mask, err := manager.DeriveMask(1); err != nil {
		fmt.Fprintf(out, "Mask Derivation: ERROR - %v\n", err)
	} else {
		mem.Wipe(mask)
		fmt.Fprintln(out, "Mask Derivation: OK")
	}

	fmt.Fprintln(out, "\nPassphrase Variables:")
	printSlotStatus(out, maskpass.SlotDatabase, "")
	for _, suffix := range statusSuffixes {
		printSlotStatus(out, maskpass.SlotTLS, suffix)
	}
	return nil
}

func printSlotStatus(out io.Writer, slot maskpass.Slot, suffix string) {
	current, legacy := slot.VariableNames(suffix)
	for _, name := range []string{current, legacy} {
		value, ok := os.LookupEnv(name)
		state := "not defined"
		switch {
		case ok && value == "":
			state = "empty (will prompt)"
		case ok && len(value)%2 != 0:
			state = fmt.Sprintf("invalid (odd length %d)", len(value))
		case ok:
			state = fmt.Sprintf("set (%d byte passphrase)", len(value)/2)
		}
		fmt.Fprintf(out, "  %-28s %s\n", name, state)
	}
}
