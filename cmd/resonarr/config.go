package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/vmunix/resonarr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one config value as written in the file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Rewrite one config value in place",
	Long: `Sets a dotted key (e.g. downloads.workers) in the config file.
Other keys and ${VAR} references are preserved; comments are not.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List config keys as written in the file",
	RunE:  runConfigList,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path in use",
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate the configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting anything.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigValidate,
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Long: `Writes the default configuration to the given path (default ./config.toml).
Set catalog.client_id and catalog.refresh_token afterwards, either inline or
as ${VAR} references.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// readConfigDoc decodes the config file without environment
// substitution, the same raw view config.Set rewrites.
func readConfigDoc() (map[string]any, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, path, nil
}

// lookupKey walks a dotted key through the decoded document.
func lookupKey(doc map[string]any, key string) (any, bool) {
	node := any(doc)
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = m[part]; !ok {
			return nil, false
		}
	}
	return node, true
}

type configEntry struct {
	key   string
	value string
}

// flattenDoc renders every leaf as a dotted key, sorted.
func flattenDoc(doc map[string]any) []configEntry {
	var out []configEntry
	flattenInto("", doc, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func flattenInto(prefix string, node map[string]any, out *[]configEntry) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(key, child, out)
			continue
		}
		*out = append(*out, configEntry{key: key, value: formatTOMLValue(v)})
	}
}

// formatTOMLValue renders a decoded TOML value for display.
func formatTOMLValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, formatTOMLValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

// maskSecret hides literal credentials in listings; ${VAR} references
// stay visible since they carry no secret themselves.
func maskSecret(key, value string) string {
	if value == "" || strings.HasPrefix(value, "${") {
		return value
	}
	if strings.HasSuffix(key, "client_id") || strings.HasSuffix(key, "refresh_token") {
		return "(redacted)"
	}
	return value
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	doc, _, err := readConfigDoc()
	if err != nil {
		return err
	}
	v, ok := lookupKey(doc, args[0])
	if !ok {
		return fmt.Errorf("key %q not found", args[0])
	}
	if _, isSection := v.(map[string]any); isSection {
		return fmt.Errorf("%q is a section; list its keys with 'resonarr config list'", args[0])
	}
	fmt.Println(formatTOMLValue(v))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	key, value := args[0], args[1]
	if err := config.Set(path, key, value); err != nil {
		return err
	}
	fmt.Printf("Set %s = %s\n", key, maskSecret(key, value))
	return nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
	doc, path, err := readConfigDoc()
	if err != nil {
		return err
	}
	entries := flattenDoc(doc)

	if jsonOutput {
		out := make(map[string]string, len(entries))
		for _, e := range entries {
			out[e.key] = maskSecret(e.key, e.value)
		}
		printJSON(out)
		return nil
	}

	fmt.Printf("%s:\n\n", path)
	for _, e := range entries {
		fmt.Printf("  %-32s %s\n", e.key, maskSecret(e.key, e.value))
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "config.toml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Set catalog.client_id and catalog.refresh_token before first use.")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	var path string
	var err error
	if len(args) > 0 {
		path = args[0]
	} else if path, err = resolveConfigPath(); err != nil {
		return err
	}

	fmt.Printf("Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(configErr)
			return errors.New("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(cfg)
	fmt.Println("\nConfiguration valid!")
	return nil
}

func printConfigErrors(e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Println("Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Printf("  - %s\n", m)
		}
		fmt.Println()
	}

	if len(e.Errors) > 0 {
		fmt.Println("Validation errors:")
		for _, err := range e.Errors {
			fmt.Printf("  - %s\n", err)
		}
		fmt.Println()
	}
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Server:     %s:%d (log: %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel)
	fmt.Printf("  Database:   %s\n", cfg.Database.Path)
	fmt.Printf("  Downloads:  %s (%d workers, quality %s)\n",
		cfg.Downloads.Root, cfg.Downloads.Workers, strings.Join(cfg.Downloads.QualityOrder, " > "))
	if len(cfg.Downloads.RecordTypes) > 0 {
		fmt.Printf("  Types:      %s\n", strings.Join(cfg.Downloads.RecordTypes, ", "))
	}

	catalogState := "not configured"
	if cfg.Catalog.ClientID != "" && cfg.Catalog.RefreshToken != "" {
		catalogState = fmt.Sprintf("configured (%.1f req/s)", cfg.Catalog.RequestsPerSecond)
	}
	fmt.Printf("  Catalog:    %s\n", catalogState)
	fmt.Printf("  Monitor:    every %dh (auto-download: %v)\n",
		cfg.Monitor.IntervalHours, cfg.Monitor.AutoDownload)
	if cfg.Notifications.WebhookURL != "" {
		fmt.Println("  Webhook:    configured")
	}
}
