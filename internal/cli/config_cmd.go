package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alanmeadows/chatwidget/internal/config"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage chatwidget configuration",
	Long:  `Show and modify chatwidget configuration values.`,
}

var configJSONFlag bool

func init() {
	configShowCmd.Flags().BoolVar(&configJSONFlag, "json", false, "Output raw JSON without formatting")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := redactConfig(appConfig)

		var data []byte
		var err error
		if configJSONFlag {
			data, err = json.Marshal(redacted)
		} else {
			data, err = json.MarshalIndent(redacted, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// redactConfig returns a copy of the config with identifying fields masked.
func redactConfig(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Endpoint.UserID != "" {
		c.Endpoint.UserID = "***"
	}
	return &c
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a configuration value using a dotted key path.

The value is written to the file given with --config, or to the user
config file (~/.config/chatwidget/chatwidget.jsonc) otherwise. The file
is created if it does not exist.

Note: JSONC comments are not preserved on write.

Examples:
  chatwidget config set endpoint.url https://support.example.com/api/chat
  chatwidget config set storage.backend sqlite
  chatwidget config set stub.port 8080`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value := parseValue(args[1])

		path := configPath
		if path == "" {
			path = config.UserConfigPath()
		}
		if path == "" {
			return fmt.Errorf("cannot determine the user config directory; pass --config")
		}

		if err := setConfigValue(path, key, value); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v in %s\n", key, value, path)
		return nil
	},
}

// parseValue types a command-line value: bool, then integer, then float,
// then string.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func setConfigValue(path, key string, value any) error {
	var existing []byte
	if data, err := os.ReadFile(path); err == nil {
		// sjson requires plain JSON.
		existing = jsonc.ToJSON(data)
	} else {
		existing = []byte("{}")
	}

	updated, err := sjson.SetBytes(existing, key, value)
	if err != nil {
		return fmt.Errorf("setting key %q: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, updated, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
