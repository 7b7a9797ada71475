package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/jask/realcheck/internal/config"
	"github.com/jask/realcheck/internal/tui"
)

// runKeys prints the effective keybindings, overrides applied, in the format
// keybindings.toml accepts.
func runKeys(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("realcheck keys", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to the TOML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "usage: realcheck keys [-config PATH]")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "realcheck: %v\n", err)
		return 1
	}
	keys := tui.NewKeyRegistry()
	overrides, err := config.LoadKeybindings(cfg.KeybindingsPath())
	if err == nil {
		err = keys.ApplyKeybindingConfig(overrides)
	}
	if err != nil {
		fmt.Fprintf(stderr, "realcheck: keybindings: %v\n", err)
		return 1
	}
	if err := config.WriteKeybindings(stdout, keys.ExportKeybindingConfig()); err != nil {
		fmt.Fprintf(stderr, "realcheck: %v\n", err)
		return 1
	}
	return 0
}
