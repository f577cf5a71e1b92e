package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/klytics/sheetlens/internal/export"
	"github.com/klytics/sheetlens/internal/grid"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

// Wizard runs the interactive setup wizard.
// If reader is nil, reads from os.Stdin.
func Wizard(reader io.Reader) error {
	if reader == nil {
		reader = os.Stdin
	}
	scanner := bufio.NewScanner(reader)
	ask := func(prompt string) string {
		fmt.Print(prompt)
		scanner.Scan()
		return strings.TrimSpace(scanner.Text())
	}

	fmt.Println("sheetlens setup")
	fmt.Println()
	fmt.Println(strings.Repeat("-", 48))
	fmt.Println()

	// Step 1: formats
	fmt.Println("Step 1/3: Output formats")
	fmt.Printf("  Available: %s\n", joinFormats(export.AllFormats))
	fmt.Printf("  Default:   %s\n", joinFormats(export.DefaultFormats))
	if answer := ask("  Formats (comma separated, empty keeps default): "); answer != "" {
		formats := splitList([]string{answer})
		if _, err := export.ParseFormats(formats); err != nil {
			fmt.Printf("  %v, keeping default\n", err)
		} else {
			viper.Set("formats", formats)
		}
	}
	fmt.Println()

	// Step 2: output directory
	fmt.Println("Step 2/3: Output directory")
	if answer := ask(fmt.Sprintf("  Directory (default: %s): ", viper.GetString("output_dir"))); answer != "" {
		viper.Set("output_dir", answer)
	}
	fmt.Println()

	// Step 3: stable output
	fmt.Println("Step 3/3: Timestamps")
	answer := strings.ToLower(ask("  Include the generation time in text outputs? [Y/n]: "))
	viper.Set("timestamp", !(answer == "n" || answer == "no"))
	fmt.Println()

	if err := SaveConfig(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}

	fmt.Println(strings.Repeat("-", 48))
	fmt.Println("sheetlens is ready!")
	fmt.Println()
	fmt.Println("Quick start:")
	fmt.Println("  sheetlens export report.xlsx")
	fmt.Println("  sheetlens show report.xlsx --format markdown")
	fmt.Println("  sheetlens watch start ./sheets")
	fmt.Println()
	fmt.Printf("Config file: %s\n", ConfigPath())
	fmt.Println("Type 'sheetlens config show' to see all settings.")

	return nil
}

// WizardNonInteractive writes the defaults without asking anything.
func WizardNonInteractive() error {
	for key, value := range defaults() {
		viper.Set(key, value)
	}
	return SaveConfig()
}

func joinFormats(formats []export.Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Validate checks config values and returns a list of issues.
func Validate() []ConfigIssue {
	var issues []ConfigIssue
	add := func(key, severity, msg, fix string) {
		issues = append(issues, ConfigIssue{Key: key, Severity: severity, Message: msg, Fix: fix})
	}

	formats := splitList(viper.GetStringSlice("formats"))
	if len(formats) == 0 {
		add("formats", "warning", "no output formats enabled, export will write nothing",
			"sheetlens config set formats text,markdown,json")
	}
	for _, name := range formats {
		if _, err := export.ParseFormat(name); err != nil {
			add("formats", "error", fmt.Sprintf("unknown output format %q", name),
				"valid formats: "+joinFormats(export.AllFormats))
		}
	}
	if len(formats) > 0 && len(issues) == 0 {
		add("formats", "info", fmt.Sprintf("%d output formats enabled", len(formats)), "")
	}

	seen := make(map[string]string)
	for _, kind := range []string{"formula", "comment", "hyperlink"} {
		key := "tags." + kind
		prefix := viper.GetString(key)
		switch {
		case prefix == "":
			add(key, "error", kind+" tag prefix is empty", "sheetlens config set "+key+" "+kind[:1])
		case strings.ContainsAny(prefix, "[] \t\n"):
			add(key, "error", fmt.Sprintf("%s tag prefix %q contains brackets or spaces", kind, prefix), "")
		case seen[prefix] != "":
			add(key, "error", fmt.Sprintf("%s tag prefix %q is also used for %s", kind, prefix, seen[prefix]),
				"choose a distinct prefix for every kind")
		default:
			seen[prefix] = kind
		}
	}

	for _, p := range viper.GetStringSlice("placeholders") {
		if _, err := regexp.Compile(p); err != nil {
			add("placeholders", "error", fmt.Sprintf("invalid placeholder pattern %q: %v", p, err), "")
		}
	}

	if _, err := grid.WidthRule(viper.GetString("width")); err != nil {
		add("width", "error", err.Error(), "sheetlens config set width cjk")
	}

	if viper.GetString("output_dir") == "" {
		add("output_dir", "warning", "output_dir is empty, files are written to the current directory", "")
	}
	if viper.GetInt("batch.concurrency") < 1 {
		add("batch.concurrency", "warning", "batch.concurrency below 1, using 1", "sheetlens config set batch.concurrency 4")
	}

	if _, err := logrus.ParseLevel(viper.GetString("log.level")); err != nil {
		add("log.level", "error", err.Error(), "sheetlens config set log.level info")
	}
	if f := viper.GetString("log.format"); f != "text" && f != "json" {
		add("log.format", "error", fmt.Sprintf("unknown log format %q", f), "sheetlens config set log.format text")
	}

	return issues
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return "SHEETLENS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ToEnv returns all config values as a map of env var name -> value.
func ToEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range viper.AllKeys() {
		if v := Get(key); v != "" {
			env[EnvName(key)] = v
		}
	}
	return env
}

// Set sets a config value and saves to disk. Values for boolean, numeric
// and list keys are converted to the key's type.
func Set(key, value string) error {
	switch viper.Get(key).(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false: %w", key, err)
		}
		viper.Set(key, b)
	case int, int64:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s expects a number: %w", key, err)
		}
		viper.Set(key, n)
	case []string, []any:
		if key == "placeholders" {
			viper.Set(key, []string{value})
		} else {
			viper.Set(key, splitList([]string{value}))
		}
	default:
		viper.Set(key, value)
	}
	return SaveConfig()
}

// Get retrieves a config value. Lists are joined with commas.
func Get(key string) string {
	switch viper.Get(key).(type) {
	case nil:
		return ""
	case []string, []any:
		return strings.Join(viper.GetStringSlice(key), ",")
	}
	return viper.GetString(key)
}

// ResetConfig deletes the config file and restores the defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	for key, value := range defaults() {
		viper.Set(key, value)
	}
	return nil
}

// SaveConfig writes the current config to the config file.
func SaveConfig() error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	if configFile != "" {
		return configFile
	}
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig returns a formatted string of the current configuration.
func ShowConfig() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Config: %s\n\n", ConfigPath()))

	sb.WriteString("Output\n")
	sb.WriteString(fmt.Sprintf("  formats:      %s\n", Get("formats")))
	sb.WriteString(fmt.Sprintf("  output_dir:   %s\n", viper.GetString("output_dir")))
	sb.WriteString(fmt.Sprintf("  json.pretty:  %t\n", viper.GetBool("json.pretty")))
	sb.WriteString(fmt.Sprintf("  timestamp:    %t\n", viper.GetBool("timestamp")))
	sb.WriteString("\n")

	sb.WriteString("Rendering\n")
	sb.WriteString(fmt.Sprintf("  tags:         [%s1] [%s1] [%s1]\n",
		viper.GetString("tags.formula"), viper.GetString("tags.comment"), viper.GetString("tags.hyperlink")))
	sb.WriteString(fmt.Sprintf("  width:        %s\n", viper.GetString("width")))
	for _, p := range viper.GetStringSlice("placeholders") {
		sb.WriteString(fmt.Sprintf("  placeholder:  %s\n", p))
	}
	sb.WriteString("\n")

	sb.WriteString("Labels\n")
	labels := viper.GetStringMapString("labels")
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-24s %s\n", k+":", labels[k]))
	}
	sb.WriteString("\n")

	sb.WriteString("Runtime\n")
	sb.WriteString(fmt.Sprintf("  batch:        %d workers\n", viper.GetInt("batch.concurrency")))
	sb.WriteString(fmt.Sprintf("  history:      %t (%s)\n", viper.GetBool("history.enabled"), viper.GetString("history.path")))
	sb.WriteString(fmt.Sprintf("  log:          %s, %s\n", viper.GetString("log.level"), viper.GetString("log.format")))
	sb.WriteString("\n")

	return sb.String()
}
