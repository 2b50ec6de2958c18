package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	// AltEnvVar names an alternate .env file when none sits next to the executable.
	AltEnvVar = "SEFIP_ROBOT"

	DefaultConfigFile     = "sefip-robot.toml"
	DefaultImagesDir      = "imagens"
	DefaultLogDir         = "logs"
	DefaultTargetBaseDir  = `C:\Robo_SEFIP`
	DefaultTargetFileName = "SEFIP.RE"
	DefaultPollInterval   = 700 * time.Millisecond
	DefaultActionPause    = 1500 * time.Millisecond
	DefaultStartHotkey    = "Ctrl+Alt+S"
)

var ErrImagesDirMissing = errors.New("pasta de imagens não encontrada")

// LoadOptions carries command-line overrides. Empty fields are ignored.
type LoadOptions struct {
	// ConfigPath is an explicit TOML file; it must exist when set.
	ConfigPath        string
	ImagesDirOverride string
	// AppDir replaces the executable directory as the base for relative
	// paths and the default file locations.
	AppDir string
}

type Config struct {
	ImagesDir         string
	TargetBaseDir     string
	TargetFileName    string
	LogDir            string
	PollInterval      time.Duration
	ActionPause       time.Duration
	StartHotkey       string
	SaveDebugCaptures bool
	// HistoryDB is the SQLite history file; empty disables history.
	HistoryDB string

	// ConfigFile is the TOML file that was applied, if any.
	ConfigFile string
	// EnvFile is the .env file that was applied, if any.
	EnvFile string
}

// FileConfig is the TOML layout. Durations are strings ("700ms").
type FileConfig struct {
	ImagesDir         string `toml:"images_dir"`
	TargetBaseDir     string `toml:"target_base_dir"`
	TargetFileName    string `toml:"target_file_name"`
	LogDir            string `toml:"log_dir"`
	PollInterval      string `toml:"poll_interval"`
	ActionPause       string `toml:"action_pause"`
	StartHotkey       string `toml:"start_hotkey"`
	SaveDebugCaptures *bool  `toml:"save_debug_captures"`
	HistoryDB         string `toml:"history_db"`
}

// LoadWithOptions resolves configuration in increasing priority:
// defaults, the TOML file, the .env file and process environment, and
// finally opts.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	appDir := opts.AppDir
	if appDir == "" {
		appDir = executableDir()
	}

	cfg := &Config{
		ImagesDir:      DefaultImagesDir,
		TargetBaseDir:  DefaultTargetBaseDir,
		TargetFileName: DefaultTargetFileName,
		LogDir:         DefaultLogDir,
		PollInterval:   DefaultPollInterval,
		ActionPause:    DefaultActionPause,
		StartHotkey:    DefaultStartHotkey,
	}

	tomlPath, required := opts.ConfigPath, true
	if tomlPath == "" {
		tomlPath, required = filepath.Join(appDir, DefaultConfigFile), false
	}
	if fileExists(tomlPath) || required {
		fc, err := LoadFileConfig(tomlPath)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler %s: %w", tomlPath, err)
		}
		if err := applyFileConfig(cfg, fc); err != nil {
			return nil, fmt.Errorf("erro em %s: %w", tomlPath, err)
		}
		cfg.ConfigFile = tomlPath
	}

	// .env next to the executable, else the file named by SEFIP_ROBOT.
	// godotenv never overrides variables already set in the process.
	if envPath := resolveEnvPath(appDir); envPath != "" {
		_ = godotenv.Load(envPath)
		cfg.EnvFile = envPath
	}
	applyEnv(cfg)

	if v := strings.TrimSpace(opts.ImagesDirOverride); v != "" {
		cfg.ImagesDir = v
	}

	cfg.ImagesDir = resolvePath(appDir, cfg.ImagesDir)
	cfg.LogDir = resolvePath(appDir, cfg.LogDir)
	if cfg.HistoryDB != "" {
		cfg.HistoryDB = resolvePath(appDir, cfg.HistoryDB)
	}
	return cfg, nil
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

func applyFileConfig(cfg *Config, fc FileConfig) error {
	setString(fc.ImagesDir, &cfg.ImagesDir)
	setString(fc.TargetBaseDir, &cfg.TargetBaseDir)
	setString(fc.TargetFileName, &cfg.TargetFileName)
	setString(fc.LogDir, &cfg.LogDir)
	setString(fc.StartHotkey, &cfg.StartHotkey)
	setString(fc.HistoryDB, &cfg.HistoryDB)
	if fc.SaveDebugCaptures != nil {
		cfg.SaveDebugCaptures = *fc.SaveDebugCaptures
	}
	if err := setDuration("poll_interval", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	return setDuration("action_pause", fc.ActionPause, &cfg.ActionPause)
}

func applyEnv(cfg *Config) {
	setString(os.Getenv("IMAGES_DIR"), &cfg.ImagesDir)
	setString(os.Getenv("TARGET_BASE_DIR"), &cfg.TargetBaseDir)
	setString(os.Getenv("TARGET_FILE_NAME"), &cfg.TargetFileName)
	setString(os.Getenv("LOG_DIR"), &cfg.LogDir)
	setString(os.Getenv("START_HOTKEY"), &cfg.StartHotkey)
	setString(os.Getenv("HISTORY_DB"), &cfg.HistoryDB)
	setMillis(os.Getenv("POLL_INTERVAL_MS"), &cfg.PollInterval)
	setMillis(os.Getenv("ACTION_PAUSE_MS"), &cfg.ActionPause)
	if v := strings.TrimSpace(os.Getenv("SAVE_DEBUG_CAPTURES")); v != "" {
		cfg.SaveDebugCaptures = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate checks what must exist before a run can start.
func (c *Config) Validate() error {
	st, err := os.Stat(c.ImagesDir)
	if err != nil || !st.IsDir() {
		return fmt.Errorf("%w: %s", ErrImagesDirMissing, c.ImagesDir)
	}
	return nil
}

// DebugDir is where missed-anchor captures go when enabled.
func (c *Config) DebugDir() string {
	if !c.SaveDebugCaptures {
		return ""
	}
	return filepath.Join(c.LogDir, "capturas")
}

func setString(v string, dst *string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(key, v string, dst *time.Duration) error {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: deve ser positivo", key)
	}
	*dst = d
	return nil
}

// setMillis keeps the current value when v is not a positive integer.
func setMillis(v string, dst *time.Duration) {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
		*dst = time.Duration(n) * time.Millisecond
	}
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || isWindowsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// isWindowsAbs recognises drive paths such as C:\x on any host.
func isWindowsAbs(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(execPath)
}

func resolveEnvPath(appDir string) string {
	exeEnv := filepath.Join(appDir, ".env")
	if fileExists(exeEnv) {
		return exeEnv
	}
	if alt := os.Getenv(AltEnvVar); alt != "" && fileExists(alt) {
		return alt
	}
	return ""
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
