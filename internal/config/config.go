// Package config layers porthole settings from defaults, config files,
// environment variables and command-line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyUpdateEnabled     = "update.enabled"
	KeyUpdateOwner       = "update.owner"
	KeyUpdateRepo        = "update.repo"
	KeyUpdateAPIURL      = "update.api-url"
	KeyUpdateProductID   = "update.product-id"
	KeyUpdateTimeout     = "update.timeout"
	KeyUpdatePortableEnv = "update.portable-env"

	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
	KeyLogMaxSizeMB  = "log.max-size-mb"
	KeyLogMaxBackups = "log.max-backups"
	KeyLogMaxAgeDays = "log.max-age-days"

	KeyJournalPath = "journal.path"

	KeyMarkdownStyle = "ui.markdown-style"
)

const (
	// DefaultOwner and DefaultRepo name the repository releases are read from.
	DefaultOwner = "porthole-app"
	DefaultRepo  = "porthole"
	// DefaultTimeout bounds a single release query.
	DefaultTimeout = 10 * time.Second

	configDirName  = ".porthole"
	configFileName = "config.yaml"
	envPrefix      = "PH"
)

// files names where settings are read from. Empty fields are discovered.
type files struct {
	workDir string
	project string
	user    string
}

// Option changes where Initialize looks for config files.
type Option func(*files)

// WithWorkingDir sets the directory the project config search starts from.
func WithWorkingDir(dir string) Option {
	return func(f *files) { f.workDir = dir }
}

// WithProjectConfig skips discovery and reads the project config from path.
func WithProjectConfig(path string) Option {
	return func(f *files) { f.project = path }
}

// WithUserConfig replaces ~/.porthole/config.yaml.
func WithUserConfig(path string) Option {
	return func(f *files) { f.user = path }
}

// state is the process-wide configuration. Initialize fills it once.
var state struct {
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
	err  error
	// Save writes to project when set, else to user.
	files files
}

// Initialize loads configuration. Later layers win:
// defaults, user config, project config, PH_* environment, overrides.
func Initialize(opts ...Option) error {
	state.once.Do(func() {
		var f files
		for _, opt := range opts {
			opt(&f)
		}
		state.err = load(f)
	})
	return state.err
}

// ApplyOverrides sets values from command-line flags for this process only.
func ApplyOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	return withWrite(func(v *viper.Viper) error {
		for k, val := range overrides {
			v.Set(k, val)
		}
		return nil
	})
}

// GetString returns a string setting, or "" when config cannot load.
func GetString(key string) string { return lookup(key, (*viper.Viper).GetString) }

// GetBool returns a bool setting, or false when config cannot load.
func GetBool(key string) bool { return lookup(key, (*viper.Viper).GetBool) }

// GetInt returns an int setting, or 0 when config cannot load.
func GetInt(key string) int { return lookup(key, (*viper.Viper).GetInt) }

// GetDuration returns a duration setting, or 0 when config cannot load.
func GetDuration(key string) time.Duration { return lookup(key, (*viper.Viper).GetDuration) }

func lookup[T any](key string, get func(*viper.Viper, string) T) T {
	var zero T
	if err := Initialize(); err != nil {
		return zero
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	if state.v == nil {
		return zero
	}
	return get(state.v, key)
}

func withWrite(fn func(*viper.Viper) error) error {
	if err := Initialize(); err != nil {
		return err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.v == nil {
		return fmt.Errorf("configuration not initialized")
	}
	return fn(state.v)
}

func load(f files) error {
	resolved, err := resolveFiles(f)
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeFile(v, resolved.user); err != nil {
		return fmt.Errorf("load user config: %w", err)
	}
	if err := mergeFile(v, resolved.project); err != nil {
		return fmt.Errorf("load project config: %w", err)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	state.v = v
	state.files = resolved
	return nil
}

func resolveFiles(f files) (files, error) {
	f.workDir = strings.TrimSpace(f.workDir)
	f.project = strings.TrimSpace(f.project)
	f.user = strings.TrimSpace(f.user)

	if f.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return f, fmt.Errorf("determine working directory: %w", err)
		}
		f.workDir = wd
	}
	if f.user == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return f, fmt.Errorf("determine user home: %w", err)
		}
		f.user = filepath.Join(home, configDirName, configFileName)
	}
	if f.project == "" {
		found, err := findProjectConfig(f.workDir)
		if err != nil {
			return f, err
		}
		f.project = found
	}
	return f, nil
}

// mergeFile layers the YAML file at path over v. Missing and empty files
// are skipped.
func mergeFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	//nolint:gosec // G304: reads the user and project config files
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	case len(bytes.TrimSpace(data)) == 0:
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// findProjectConfig walks from dir up to the filesystem root and returns
// the first .porthole/config.yaml, or "".
func findProjectConfig(dir string) (string, error) {
	for {
		candidate := filepath.Join(dir, configDirName, configFileName)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && info.IsDir():
			return "", fmt.Errorf("config path %s is a directory", candidate)
		case err == nil:
			return candidate, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyUpdateEnabled, true)
	v.SetDefault(KeyUpdateOwner, DefaultOwner)
	v.SetDefault(KeyUpdateRepo, DefaultRepo)
	v.SetDefault(KeyUpdateAPIURL, "https://api.github.com")
	v.SetDefault(KeyUpdateProductID, "porthole-updater")
	v.SetDefault(KeyUpdateTimeout, DefaultTimeout)
	v.SetDefault(KeyUpdatePortableEnv, "PORTABLE_EXECUTABLE_DIR")

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogMaxSizeMB, 0)
	v.SetDefault(KeyLogMaxBackups, 0)
	v.SetDefault(KeyLogMaxAgeDays, 0)

	v.SetDefault(KeyJournalPath, "")
	v.SetDefault(KeyMarkdownStyle, "auto")
}

// OwnerRepo returns the configured "owner/repo".
func OwnerRepo() string {
	return strings.TrimSpace(GetString(KeyUpdateOwner)) + "/" + strings.TrimSpace(GetString(KeyUpdateRepo))
}

func reset() {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.v = nil
	state.err = nil
	state.files = files{}
	state.once = sync.Once{}
}

// ResetForTesting drops the loaded configuration and loads a fresh one
// rooted in a temp dir. Call the returned func when the test ends.
func ResetForTesting(t interface{ TempDir() string }) func() {
	reset()
	_ = Initialize(WithWorkingDir(t.TempDir()))
	return reset
}

// Save writes one key to the project config when one was found, otherwise
// to the user config, and applies it to the running configuration. Only the
// user config directory is created on demand.
func Save(key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("config key is empty")
	}
	return withWrite(func(v *viper.Viper) error {
		target := state.files.project
		if target == "" {
			target = state.files.user
		}

		// Defaults and env values stay out of the file.
		file := viper.New()
		file.SetConfigType("yaml")
		if err := mergeFile(file, target); err != nil {
			return fmt.Errorf("load %s: %w", target, err)
		}
		file.Set(key, value)

		if target == state.files.user {
			//nolint:gosec // G301: user config directory
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
		}
		if err := file.WriteConfigAs(target); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		v.Set(key, value)
		return nil
	})
}
