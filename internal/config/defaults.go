package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/hotkeyd/
//   - Linux:   $XDG_DATA_HOME/hotkeyd/ or ~/.local/share/hotkeyd/
//   - Windows: %APPDATA%\hotkeyd\
//
// Falls back to ~/.hotkeyd elsewhere.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSSupportDir()
	case "linux":
		return xdgDir("XDG_DATA_HOME", ".local", "share")
	case "windows":
		return windowsAppDataDir()
	default:
		return fallbackDir()
	}
}

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/hotkeyd/
//   - Linux:   $XDG_CONFIG_HOME/hotkeyd/ or ~/.config/hotkeyd/
//   - Windows: %APPDATA%\hotkeyd\
func PlatformConfigDir() string {
	if dir := os.Getenv("HOTKEYD_CONFIG_DIR"); dir != "" {
		return dir
	}
	switch runtime.GOOS {
	case "darwin":
		return macOSSupportDir()
	case "linux":
		return xdgDir("XDG_CONFIG_HOME", ".config")
	case "windows":
		return windowsAppDataDir()
	default:
		return fallbackDir()
	}
}

func homeDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return home
}

func macOSSupportDir() string {
	return filepath.Join(homeDir(), "Library", "Application Support", "hotkeyd")
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "hotkeyd")
	}
	return filepath.Join(append(append([]string{homeDir()}, fallback...), "hotkeyd")...)
}

func windowsAppDataDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "hotkeyd")
	}
	return filepath.Join(homeDir(), "AppData", "Roaming", "hotkeyd")
}

func fallbackDir() string {
	return filepath.Join(homeDir(), ".hotkeyd")
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile searches the current directory and then the config
// directory. It returns the first config file found, or "".
func FindConfigFile() string {
	for _, dir := range []string{".", PlatformConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
