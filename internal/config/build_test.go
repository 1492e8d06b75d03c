package config

import "testing"

// withBuild overrides the linker variables for one test.
func withBuild(t *testing.T, v, c, bt string) {
	t.Helper()
	oldV, oldC, oldBT := version, commit, buildTime
	version, commit, buildTime = v, c, bt
	t.Cleanup(func() { version, commit, buildTime = oldV, oldC, oldBT })
}

func TestNewBuildInfoDefaults(t *testing.T) {
	info := NewBuildInfo()
	if info.Version != "dev" || info.Commit != "none" || info.BuildTime != "unknown" {
		t.Errorf("unexpected defaults %+v", info)
	}
	if got := info.String(); got != "dev (none, unknown)" {
		t.Errorf("String() = %q", got)
	}
}

func TestLoadConfigCarriesInjectedBuild(t *testing.T) {
	withBuild(t, "1.4.0", "a1b2c3d", "2026-10-16T09:30:00Z")
	t.Setenv("APP_ENV", "staging")

	cfg, err := LoadConfig(&testSecretProvider{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Build.Version != "1.4.0" || cfg.Build.Commit != "a1b2c3d" {
		t.Errorf("Config.Build = %+v", cfg.Build)
	}
	if got := cfg.Build.String(); got != "1.4.0 (a1b2c3d, 2026-10-16T09:30:00Z)" {
		t.Errorf("String() = %q", got)
	}
}
