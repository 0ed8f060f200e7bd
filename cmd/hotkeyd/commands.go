package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"hotkeyd/internal/config"
	"hotkeyd/internal/keybind"
	"hotkeyd/internal/primarykey"
	"hotkeyd/internal/store"
)

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func cmdBind(args []string) error {
	fs := flag.NewFlagSet("bind", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: hotkeyd bind <spec>")
	}
	b, err := keybind.ParseBinding(fs.Arg(0))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open binding store: %w", err)
	}
	defer db.Close()

	if err := db.SaveBinding(b, "cli"); err != nil {
		return err
	}
	fmt.Printf("Binding saved: %s (%s)\n", b, b.Kind())
	if cfg.Hotkey.Binding != "" {
		fmt.Printf("Note: the config file sets binding %q, which takes precedence.\n", cfg.Hotkey.Binding)
	}
	return nil
}

func cmdUnbind(args []string) error {
	fs := flag.NewFlagSet("unbind", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open binding store: %w", err)
	}
	defer db.Close()

	if err := db.ClearBinding(); err != nil {
		return err
	}
	fmt.Println("Saved binding cleared.")
	return nil
}

func cmdShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	limit := fs.Int("history", 5, "Number of history entries to show")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open binding store: %w", err)
	}
	defer db.Close()

	b, origin, err := resolveBinding("", cfg, db)
	if err != nil {
		return err
	}
	timing := cfg.Hotkey.Timing()

	path := *configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		path = config.ConfigPath() + " (not present, defaults)"
	}

	fmt.Println("=== hotkeyd ===")
	fmt.Printf("Config:         %s\n", path)
	fmt.Printf("Store:          %s\n", cfg.Store.Path)
	fmt.Printf("Binding:        %s (%s, from %s)\n", b, b.Kind(), origin)
	fmt.Printf("Hold threshold: %v\n", timing.HoldThreshold)
	fmt.Printf("Double-tap:     %v\n", timing.DoubleTapWindow)
	fmt.Printf("Accessibility:  %s\n", trustLabel(primarykey.Trusted()))

	history, err := db.History(*limit)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		fmt.Println()
		fmt.Println("Recent binding changes:")
		for _, h := range history {
			fmt.Printf("  %s  %-24s %s\n", h.ChangedAt.Format("2006-01-02 15:04:05"), h.Binding, h.Reason)
		}
	}
	return nil
}

func trustLabel(ok bool) string {
	if ok {
		return "granted"
	}
	return "not granted"
}

func cmdKeys() {
	names := keybind.KeyNames()
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, strings.ToLower(name))
	}
	sort.Strings(keys)

	fmt.Println("Modifiers: cmd (command, super, win), option (opt, alt), shift, ctrl (control)")
	fmt.Println()
	fmt.Println("Keys:")
	for i := 0; i < len(keys); i += 8 {
		end := min(i+8, len(keys))
		fmt.Printf("  %s\n", strings.Join(keys[i:end], "  "))
	}
	fmt.Println()
	fmt.Println("Any other key can be given as a hex virtual key code, e.g. 0x7a.")
}
