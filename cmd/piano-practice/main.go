// Package main provides the CLI entrypoint for piano-practice.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chrizzleybear/piano-midi-practice/internal/config"
	"github.com/chrizzleybear/piano-midi-practice/internal/engine"
	"github.com/chrizzleybear/piano-midi-practice/internal/logging"
	"github.com/chrizzleybear/piano-midi-practice/internal/midiin"
	"github.com/chrizzleybear/piano-midi-practice/internal/model"
	"github.com/chrizzleybear/piano-midi-practice/internal/prompt"
	"github.com/chrizzleybear/piano-midi-practice/internal/stats"
	"github.com/chrizzleybear/piano-midi-practice/internal/theory"
	"github.com/chrizzleybear/piano-midi-practice/internal/tui"
)

const (
	defaultPractice = model.PracticeScaleDegree
	defaultPressure = model.PressureMedium
)

var defaultModes = []string{"Ionian", "Aeolian"}

var (
	practiceType     string
	practicePressure string
	practiceModes    []string
	practiceDevice   string
	practiceDebug    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "piano-practice",
		Short:         "MIDI keyboard ear and muscle-memory trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceType, "practice", defaultPractice, "practice type (scale-degree or mode)")
	rootCmd.Flags().StringVar(&practicePressure, "pressure", defaultPressure, "time pressure (none, low, medium, hard)")
	rootCmd.Flags().StringSliceVar(&practiceModes, "modes", defaultModes, "modes enabled for mode practice")
	rootCmd.Flags().StringVar(&practiceDevice, "device", "", "MIDI device name substring (default: first available)")
	rootCmd.Flags().BoolVar(&practiceDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDevicesCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "practice", &practiceType, fileCfg.Practice.Type)
	applyStringConfig(cmd, "pressure", &practicePressure, fileCfg.Practice.Pressure)
	applyStringSliceConfig(cmd, "modes", &practiceModes, fileCfg.Practice.Modes)
	applyStringConfig(cmd, "device", &practiceDevice, fileCfg.Practice.Device)

	cfg := model.Config{
		Practice: practiceType,
		Pressure: practicePressure,
		Modes:    practiceModes,
		Device:   practiceDevice,
		Debug:    practiceDebug,
	}

	enabled, deadline, err := validateConfig(cfg)
	if err != nil {
		return err
	}

	logger, err := logging.New(config.DefaultLogPath(), cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	watcher, err := midiin.NewWatcher(cfg.Device, logger)
	if err != nil {
		return fmt.Errorf("failed to init midi: %w", err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	gen := prompt.New(cfg.Practice, enabled)
	agg := stats.New()
	session := engine.NewSession(gen, agg, deadline)

	logger.Info("session starting",
		zap.String("practice", cfg.Practice),
		zap.String("pressure", cfg.Pressure),
		zap.Strings("modes", cfg.Modes),
	)

	uiModel := tui.NewModel(cfg, session, agg, watcher.Events(), watcher.Connections(), logger)
	program := tea.NewProgram(uiModel, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	// The in-flight round is abandoned, not counted; the summary still
	// reflects every round that reached a terminal state.
	if err := stats.RenderSummary(os.Stdout, agg.Snapshot()); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List MIDI input devices",
		Args:  cobra.NoArgs,
		RunE:  runDevicesCmd,
	}
}

func runDevicesCmd(cmd *cobra.Command, _ []string) error {
	names, err := midiin.ListInputs()
	if err != nil {
		return fmt.Errorf("failed to list MIDI inputs: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no MIDI input devices found")
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# piano-practice configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# type = %q          # Practice type (scale-degree or mode)
# pressure = %q      # Time pressure (none, low, medium, hard)
# modes = ["Ionian", "Aeolian"]  # Modes enabled for mode practice
# device = ""        # MIDI device name substring
`,
		defaultPractice,
		defaultPressure,
	)
}

// validateConfig rejects configuration errors before any round begins.
func validateConfig(cfg model.Config) ([]theory.Mode, time.Duration, error) {
	if cfg.Practice != model.PracticeScaleDegree && cfg.Practice != model.PracticeMode {
		return nil, 0, fmt.Errorf("--practice must be %q or %q", model.PracticeScaleDegree, model.PracticeMode)
	}
	deadline, ok := model.PressureDeadline(cfg.Pressure)
	if !ok {
		return nil, 0, fmt.Errorf("--pressure must be one of none, low, medium, hard")
	}
	if len(cfg.Modes) == 0 {
		return nil, 0, fmt.Errorf("--modes must not be empty")
	}
	enabled := make([]theory.Mode, 0, len(cfg.Modes))
	for _, name := range cfg.Modes {
		mode, err := theory.ModeByName(name)
		if err != nil {
			names := make([]string, 0, 7)
			for _, m := range theory.Modes() {
				names = append(names, m.Name)
			}
			return nil, 0, fmt.Errorf("unknown mode %q (available: %s)", name, strings.Join(names, ", "))
		}
		enabled = append(enabled, mode)
	}
	return enabled, deadline, nil
}
