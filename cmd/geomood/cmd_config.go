package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/geomood/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage geomood configuration",
		Long: `View and modify geomood configuration settings.

Configuration is stored in ~/.geomood/config.yaml. GEOMOOD_* environment
variables override the file (e.g. GEOMOOD_LLM_PROVIDER, GEOMOOD_DATES_LOCALE).

Examples:
  geomood config list                          # Show all settings
  geomood config get dates.locale              # Get a specific setting
  geomood config set dates.locale en-US        # Set a setting
  geomood config set llm.api_key '${OPENAI_API_KEY}'
  geomood config path                          # Print the config file location`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigPathCmd(),
	)

	return cmd
}

// redacted returns a copy of cfg safe to print.
func redacted(cfg *config.GeomoodConfig) *config.GeomoodConfig {
	c := *cfg
	c.LLM.APIKey = cfg.LLM.RedactedAPIKey()
	return &c
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(redacted(cfg))
			}

			data, err := yaml.Marshal(redacted(cfg))
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			path, _ := config.Path()
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, data)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			tree, err := configTree(redacted(cfg))
			if err != nil {
				return err
			}
			value, found := lookupKey(tree, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, raw := args[0], args[1]

			path, err := config.Path()
			if err != nil {
				return err
			}

			// Start from the file alone so environment overrides are not
			// written back.
			cfg := config.Default()
			if loaded, err := config.LoadFromFile(path); err == nil {
				cfg = loaded
			}

			updated, err := setConfigValue(cfg, key, raw)
			if err != nil {
				return err
			}
			if err := updated.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := updated.Save(path); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":    key,
					"value":  raw,
					"status": "saved",
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, raw)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// configTree converts cfg to nested maps keyed by YAML field names.
func configTree(cfg *config.GeomoodConfig) (map[string]interface{}, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	tree := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return tree, nil
}

// lookupKey resolves a dotted key such as "backup.retention.max_count".
func lookupKey(tree map[string]interface{}, key string) (interface{}, bool) {
	var cur interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// knownKeys lists the settable leaf keys of a default config.
func knownKeys() map[string]bool {
	keys := make(map[string]bool)
	tree, err := configTree(config.Default())
	if err != nil {
		return keys
	}
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			if sub, ok := v.(map[string]interface{}); ok {
				walk(prefix+k+".", sub)
				continue
			}
			keys[prefix+k] = true
		}
	}
	walk("", tree)

	// Fields omitted from the default because they are empty.
	for _, k := range []string{"dates.layout", "llm.api_key", "llm.base_url", "llm.model",
		"backup.retention.max_age", "backup.retention.max_total_size"} {
		keys[k] = true
	}
	return keys
}

// setConfigValue returns a copy of cfg with the dotted key set to raw,
// parsed as a YAML scalar.
func setConfigValue(cfg *config.GeomoodConfig, key, raw string) (*config.GeomoodConfig, error) {
	if !knownKeys()[key] {
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}

	var value interface{}
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}

	tree, err := configTree(cfg)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(key, ".")
	m := tree
	for _, part := range parts[:len(parts)-1] {
		sub, ok := m[part].(map[string]interface{})
		if !ok {
			sub = make(map[string]interface{})
			m[part] = sub
		}
		m = sub
	}
	m[parts[len(parts)-1]] = value

	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	updated := config.Default()
	if err := yaml.Unmarshal(data, updated); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return updated, nil
}
