package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"porthole/internal/config"
)

// settableKeys are the keys `config set` accepts.
var settableKeys = map[string]string{
	config.KeyUpdateEnabled:     "check for updates on start (bool)",
	config.KeyUpdateOwner:       "release repository owner",
	config.KeyUpdateRepo:        "release repository name",
	config.KeyUpdateAPIURL:      "release API base URL",
	config.KeyUpdateProductID:   "User-Agent sent to the release API",
	config.KeyUpdateTimeout:     "release query timeout (e.g. 10s)",
	config.KeyUpdatePortableEnv: "variable that marks a portable Windows build",
	config.KeyLogLevel:          "log level",
	config.KeyLogFile:           `log file path, or "console"`,
	config.KeyLogMaxSizeMB:      "rotate the log file at this size",
	config.KeyLogMaxBackups:     "rotated log files to keep",
	config.KeyLogMaxAgeDays:     "days to keep rotated log files",
	config.KeyJournalPath:       "event journal database path",
	config.KeyMarkdownStyle:     "release notes style (auto, dark, light, plain)",
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write persistent settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the effective value of a setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := lookupKey(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), config.GetString(key))
				return err
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist a setting to the nearest config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := lookupKey(args[0])
				if err != nil {
					return err
				}
				if err := config.Save(key, parseValue(args[1])); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, config.GetString(key))
				return err
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List the settings that can be changed",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				keys := make([]string, 0, len(settableKeys))
				for k := range settableKeys {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", k, settableKeys[k])
				}
			},
		},
	)
	return cmd
}

func lookupKey(raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := settableKeys[key]; !ok {
		return "", fmt.Errorf("unknown setting %q (see `porthole config keys`)", raw)
	}
	return key, nil
}

// parseValue decodes a command-line value as a YAML scalar so that
// "false" and "3" are stored typed.
func parseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	switch v.(type) {
	case bool, int, float64, string:
		return v
	default:
		return raw
	}
}
