// Package config resolves multitimer settings. Later sources win:
// built-in defaults, the YAML file, MULTITIMER_* environment variables,
// then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Flag names registered by BindFlags.
const (
	FlagDB       = "db"
	FlagLogLevel = "log-level"
)

// DefaultSoundCommand plays the freedesktop alarm sound once.
const DefaultSoundCommand = "paplay /usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga"

type Config struct {
	DBPath               string        `yaml:"db_path"`
	LogLevel             string        `yaml:"log_level"`
	LogFile              string        `yaml:"log_file"`
	TickInterval         time.Duration `yaml:"tick_interval"`
	WakeSyncInterval     time.Duration `yaml:"wake_sync_interval"`
	AlertTimeout         time.Duration `yaml:"alert_timeout"`
	SoundCommand         string        `yaml:"sound_command"`
	DesktopNotifications bool          `yaml:"desktop_notifications"`
	FlashTerminal        bool          `yaml:"flash_terminal"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:               filepath.Join(homeDir(), ".multitimer", "multitimer.db"),
		LogLevel:             "info",
		TickInterval:         200 * time.Millisecond,
		WakeSyncInterval:     time.Second,
		AlertTimeout:         5 * time.Minute,
		SoundCommand:         DefaultSoundCommand,
		DesktopNotifications: true,
		FlashTerminal:        true,
	}
}

// Path returns the config file location: MULTITIMER_CONFIG if set,
// otherwise ~/.multitimer/config.yaml.
func Path() string {
	if p := os.Getenv("MULTITIMER_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(homeDir(), ".multitimer", "config.yaml")
}

// BindFlags registers the persistent flags that override the config.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(FlagDB, "", "timer database path (default ~/.multitimer/multitimer.db)")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn or error")
}

// Load resolves the configuration. A missing config file is not an error;
// a malformed one is. flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	path := Path()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	applyEnv(&cfg)
	if flags != nil {
		applyFlags(&cfg, flags)
	}

	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.LogFile = expandHome(cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db_path must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.WakeSyncInterval <= 0 {
		return fmt.Errorf("wake_sync_interval must be positive, got %s", c.WakeSyncInterval)
	}
	if c.AlertTimeout <= 0 {
		return fmt.Errorf("alert_timeout must be positive, got %s", c.AlertTimeout)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return l, nil
}

// applyEnv reads MULTITIMER_* overrides. Unparseable values are ignored.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MULTITIMER_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MULTITIMER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MULTITIMER_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("MULTITIMER_TICK_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TickInterval = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("MULTITIMER_ALERT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.AlertTimeout = d
		}
	}
	if v, ok := os.LookupEnv("MULTITIMER_SOUND_CMD"); ok {
		cfg.SoundCommand = v
	}
	if v := os.Getenv("MULTITIMER_DESKTOP_NOTIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DesktopNotifications = b
		}
	}
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) {
	if flags.Changed(FlagDB) {
		if v, err := flags.GetString(FlagDB); err == nil && v != "" {
			cfg.DBPath = v
		}
	}
	if flags.Changed(FlagLogLevel) {
		if v, err := flags.GetString(FlagLogLevel); err == nil && v != "" {
			cfg.LogLevel = v
		}
	}
}

// expandEnv replaces ${NAME} placeholders with environment values.
// Bare $NAME is left alone so sound commands can keep shell syntax.
func expandEnv(content string) string {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		content = strings.ReplaceAll(content, "${"+pair[0]+"}", pair[1])
	}
	return content
}

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
