package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestInitializeLoadsDefaults(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")

	if err := Initialize(WithWorkingDir(tmp), WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if !GetBool(KeyUpdateEnabled) {
		t.Fatalf("expected default %s to be true", KeyUpdateEnabled)
	}
	if got := OwnerRepo(); got != DefaultOwner+"/"+DefaultRepo {
		t.Fatalf("expected default repository, got %q", got)
	}
	if got := GetDuration(KeyUpdateTimeout); got != DefaultTimeout {
		t.Fatalf("expected default %s to be %v, got %v", KeyUpdateTimeout, DefaultTimeout, got)
	}
	if got := GetString(KeyUpdatePortableEnv); got != "PORTABLE_EXECUTABLE_DIR" {
		t.Fatalf("expected default %s, got %q", KeyUpdatePortableEnv, got)
	}
	if got := GetString(KeyLogLevel); got != "info" {
		t.Fatalf("expected default %s to be info, got %q", KeyLogLevel, got)
	}
	if got := GetInt(KeyLogMaxBackups); got != 0 {
		t.Fatalf("expected default %s to be 0, got %d", KeyLogMaxBackups, got)
	}
	if got := GetString(KeyMarkdownStyle); got != "auto" {
		t.Fatalf("expected default %s to be auto, got %q", KeyMarkdownStyle, got)
	}
}

func TestProjectConfigOverridesUser(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	projectDir := filepath.Join(tmp, "repo")
	mustMkdir(t, filepath.Join(projectDir, configDirName))
	projectCfg := filepath.Join(projectDir, configDirName, configFileName)
	writeFile(t, projectCfg, `
update:
  owner: project-org
log:
  level: debug
`)

	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, `
update:
  owner: user-org
  repo: user-repo
  enabled: false
log:
  level: warn
`)

	if err := Initialize(
		WithWorkingDir(filepath.Join(projectDir, "nested")),
		WithUserConfig(userCfg),
	); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if got := OwnerRepo(); got != "project-org/user-repo" {
		t.Fatalf("expected project owner merged over user repo, got %q", got)
	}
	if got := GetString(KeyLogLevel); got != "debug" {
		t.Fatalf("expected project config to win for %s, got %q", KeyLogLevel, got)
	}
	if GetBool(KeyUpdateEnabled) {
		t.Fatalf("expected user config to disable updates")
	}
}

func TestEnvironmentAndOverridesPrecedence(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	projectDir := filepath.Join(tmp, "repo")
	projectCfg := filepath.Join(projectDir, configDirName, configFileName)
	writeFile(t, projectCfg, `
update:
  enabled: true
  timeout: 3s
journal:
  path: /project/events.db
`)

	t.Setenv("PH_UPDATE_ENABLED", "false")
	t.Setenv("PH_JOURNAL_PATH", "/env/events.db")
	t.Setenv("PH_UPDATE_PORTABLE_ENV", "MY_PORTABLE_DIR")

	if err := Initialize(
		WithWorkingDir(projectDir),
		WithProjectConfig(projectCfg),
		WithUserConfig(filepath.Join(tmp, "missing.yaml")),
	); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if GetBool(KeyUpdateEnabled) {
		t.Fatalf("expected environment variable to override %s", KeyUpdateEnabled)
	}
	if got := GetString(KeyJournalPath); got != "/env/events.db" {
		t.Fatalf("expected env override for %s, got %q", KeyJournalPath, got)
	}
	if got := GetString(KeyUpdatePortableEnv); got != "MY_PORTABLE_DIR" {
		t.Fatalf("expected env override for %s, got %q", KeyUpdatePortableEnv, got)
	}
	if got := GetDuration(KeyUpdateTimeout); got != 3*time.Second {
		t.Fatalf("expected project timeout, got %v", got)
	}

	overrides := map[string]any{
		KeyUpdateEnabled: true,
		KeyLogFile:       "console",
	}
	if err := ApplyOverrides(overrides); err != nil {
		t.Fatalf("ApplyOverrides returned error: %v", err)
	}

	if !GetBool(KeyUpdateEnabled) {
		t.Fatalf("expected CLI override to set %s=true", KeyUpdateEnabled)
	}
	if got := GetString(KeyLogFile); got != "console" {
		t.Fatalf("expected override for %s, got %q", KeyLogFile, got)
	}
}

func TestInitializeRejectsBadYAML(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, "update: [unterminated")

	if err := Initialize(WithWorkingDir(tmp), WithUserConfig(userCfg)); err == nil {
		t.Fatal("expected parse error for malformed user config")
	}
}

func TestSaveWritesUserConfig(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "home", configDirName, configFileName)
	writeFile(t, userCfg, "log:\n  level: warn\n")

	if err := Initialize(WithWorkingDir(tmp), WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if err := Save(KeyMarkdownStyle, "dark"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if got := GetString(KeyMarkdownStyle); got != "dark" {
		t.Fatalf("expected running config to pick up saved value, got %q", got)
	}

	v := viper.New()
	v.SetConfigFile(userCfg)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	if got := v.GetString(KeyMarkdownStyle); got != "dark" {
		t.Fatalf("expected saved %s=dark, got %q", KeyMarkdownStyle, got)
	}
	if got := v.GetString(KeyLogLevel); got != "warn" {
		t.Fatalf("expected existing keys preserved, got %s=%q", KeyLogLevel, got)
	}

	if err := Save(" ", "x"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestSaveCreatesUserConfigDirectory(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "home", configDirName, configFileName)
	if err := Initialize(WithWorkingDir(tmp), WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if err := Save(KeyUpdateOwner, "acme"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(userCfg); err != nil {
		t.Fatalf("expected user config to be created: %v", err)
	}
}

func TestSavePrefersProjectConfig(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	projectDir := filepath.Join(tmp, "project")
	projectCfg := filepath.Join(projectDir, configDirName, configFileName)
	writeFile(t, projectCfg, "update:\n  repo: widget\n")
	userCfg := filepath.Join(tmp, "home", configDirName, configFileName)

	if err := Initialize(WithWorkingDir(filepath.Join(projectDir, "sub")), WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if err := Save(KeyUpdateOwner, "acme"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(projectCfg)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read project config: %v", err)
	}
	if got := v.GetString(KeyUpdateOwner); got != "acme" {
		t.Fatalf("expected project config to hold %s=acme, got %q", KeyUpdateOwner, got)
	}
	if got := v.GetString(KeyUpdateRepo); got != "widget" {
		t.Fatalf("expected existing project keys preserved, got %q", got)
	}
	if _, err := os.Stat(userCfg); !os.IsNotExist(err) {
		t.Fatalf("user config must stay untouched, stat err = %v", err)
	}
	if got := OwnerRepo(); got != "acme/widget" {
		t.Fatalf("OwnerRepo() = %q, want acme/widget", got)
	}
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	mustMkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}
