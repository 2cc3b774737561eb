package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"southwinds.dev/maskpass"
	"southwinds.dev/maskpass/internal/crypto"
)

func getConfigFilePath(global bool) string {
	if global {
		return "/etc/maskpass/.maskpass.yaml"
	}
	if cfgFile != "" {
		return cfgFile
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".maskpass.yaml")
}

func ensureConfigDir(configFile string) error {
	return os.MkdirAll(filepath.Dir(configFile), 0700)
}

func getConfigKeyDescriptions() map[string]string {
	return map[string]string{
		"maskpass.hash":           "Digest provider for mask derivation (" + strings.Join(crypto.Providers(), ", ") + ")",
		"maskpass.executable":     "File in $ydb_dist whose inode seeds the fallback mask",
		"maskpass.memory_lock":    "Lock all process memory before handling passphrases",
		"audit.enabled":           "Enable audit logging",
		"audit.type":              "Audit logger type (file, syslog, console)",
		"audit.log_level":         "Audit log level (debug, info, warn, error)",
		"audit.options.file_path": "Audit log file path",
		"audit.options.pretty":    "Human readable console audit output",
	}
}

func isValidConfigKey(key string) bool {
	_, ok := getConfigKeyDescriptions()[key]
	return ok
}

// convertStringValue turns a command line value into a bool, int, float or string.
func convertStringValue(value string) interface{} {
	if value == "true" || value == "false" {
		return value == "true"
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func validateConfigValue(key string, value interface{}) error {
	str, isString := value.(string)
	switch key {
	case "maskpass.hash":
		if !isString {
			return fmt.Errorf("maskpass.hash must be a provider name")
		}
		if _, err := crypto.NewHasher(str); err != nil {
			return err
		}
	case "maskpass.executable":
		if err := (maskpass.Options{Executable: str}).Validate(); err != nil {
			return err
		}
	case "audit.type":
		if !contains(validAuditTypes, str) {
			return fmt.Errorf("invalid audit type: %v (valid: %s)", value, strings.Join(validAuditTypes, ", "))
		}
	case "maskpass.memory_lock", "audit.enabled", "audit.options.pretty":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be true or false", key)
		}
	}
	return nil
}

var validAuditTypes = []string{"file", "syslog", "console"}

func getConfigTemplate(template string) (map[string]interface{}, error) {
	switch template {
	case "minimal":
		return map[string]interface{}{
			"maskpass": map[string]interface{}{
				"hash": "sha512",
			},
		}, nil
	case "default":
		return map[string]interface{}{
			"maskpass": map[string]interface{}{
				"hash":       "sha512",
				"executable": "mumps",
			},
			"audit": map[string]interface{}{
				"enabled": false,
				"type":    "file",
				"options": map[string]interface{}{
					"file_path": defaultAuditPath(),
				},
			},
		}, nil
	case "full":
		return map[string]interface{}{
			"maskpass": map[string]interface{}{
				"hash":        "sha512",
				"executable":  "mumps",
				"memory_lock": false,
			},
			"audit": map[string]interface{}{
				"enabled":   true,
				"type":      "file",
				"log_level": "info",
				"options": map[string]interface{}{
					"file_path": defaultAuditPath(),
					"pretty":    false,
				},
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown template: %s (valid: default, minimal, full)", template)
	}
}

func validateConfiguration() []string {
	var problems []string

	if err := (maskpass.Options{
		Hash:       viper.GetString("maskpass.hash"),
		Executable: viper.GetString("maskpass.executable"),
	}).Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if viper.GetBool("audit.enabled") {
		auditType := viper.GetString("audit.type")
		if !contains(validAuditTypes, auditType) {
			problems = append(problems, fmt.Sprintf("invalid audit type: %s (must be one of: %s)",
				auditType, strings.Join(validAuditTypes, ", ")))
		}
		if auditType == "file" && viper.GetString("audit.options.file_path") == "" {
			problems = append(problems, "audit file path is required when using file audit")
		}
	}
	return problems
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func printConfigTable(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	fmt.Fprintln(w, "---\t-----\t------")

	var keys []string
	flattenKeys(viper.AllSettings(), "", &keys)
	sort.Strings(keys)

	for _, key := range keys {
		value := viper.Get(key)
		source := "default"
		if viper.ConfigFileUsed() != "" && viper.InConfig(key) {
			source = filepath.Base(viper.ConfigFileUsed())
		}
		if os.Getenv("MASKPASS_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))) != "" {
			source = "environment"
		}
		if isSensitiveConfigKey(key) {
			value = "[REDACTED]"
		}
		fmt.Fprintf(w, "%s\t%v\t%s\n", key, value, source)
	}
	return w.Flush()
}

func printConfigJSON(out io.Writer) error {
	config := viper.AllSettings()
	maskSensitiveValues(config)
	return printJSON(out, config)
}

func printConfigYAML(out io.Writer) error {
	config := viper.AllSettings()
	maskSensitiveValues(config)
	return printYAML(out, config)
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printYAML(out io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func printConfigKeysTable(out io.Writer, keys map[string]string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "KEY\tDESCRIPTION")
	fmt.Fprintln(w, "---\t-----------")

	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)
	for _, key := range sorted {
		fmt.Fprintf(w, "%s\t%s\n", key, keys[key])
	}
	return w.Flush()
}

// flattenKeys recursively flattens nested maps into dot-notation keys
func flattenKeys(m map[string]interface{}, prefix string, keys *[]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenKeys(nested, key, keys)
		} else {
			*keys = append(*keys, key)
		}
	}
}

func isSensitiveConfigKey(key string) bool {
	sensitive := []string{"passphrase", "password", "passwd", "secret", "token"}
	lower := strings.ToLower(key)
	for _, s := range sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func maskSensitiveValues(config map[string]interface{}) {
	for key, value := range config {
		if isSensitiveConfigKey(key) {
			config[key] = "[REDACTED]"
		} else if nested, ok := value.(map[string]interface{}); ok {
			maskSensitiveValues(nested)
		}
	}
}
