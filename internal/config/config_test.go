package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/autokuma/autokuma/internal/errs"
)

func TestLoadAppliesDefaults(t *testing.T) {
	os.Setenv("KUMA__URL", "http://localhost:3001")
	os.Setenv("KUMA__USERNAME", "admin")
	os.Setenv("KUMA__PASSWORD", "secret")
	defer os.Unsetenv("KUMA__URL")
	defer os.Unsetenv("KUMA__USERNAME")
	defer os.Unsetenv("KUMA__PASSWORD")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Kuma.URL != "http://localhost:3001" {
		t.Errorf("kuma.url = %q", cfg.Kuma.URL)
	}
	if cfg.OnDelete != "delete" {
		t.Errorf("on_delete default = %q, want delete", cfg.OnDelete)
	}
	if cfg.DeleteGracePeriod != 5*time.Minute {
		t.Errorf("delete_grace_period default = %v, want 5m", cfg.DeleteGracePeriod)
	}
	if cfg.Docker.LabelPrefix != "kuma" {
		t.Errorf("docker.label_prefix default = %q, want kuma", cfg.Docker.LabelPrefix)
	}
}

func TestLoadMissingURLIsConfigError(t *testing.T) {
	os.Unsetenv("KUMA__URL")
	os.Unsetenv("KUMA__USERNAME")
	os.Unsetenv("KUMA__PASSWORD")

	_, err := Load("")
	var cfgErr *errs.ConfigError
	if err == nil {
		t.Fatal("expected an error for missing kuma.url")
	}
	if !asConfigError(err, &cfgErr) {
		t.Fatalf("expected a ConfigError, got %T: %v", err, err)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autokuma.yaml")
	body := "kuma:\n  url: http://kuma.example\n  auth_token: tok\non_delete: keep\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Kuma.URL != "http://kuma.example" {
		t.Errorf("kuma.url = %q", cfg.Kuma.URL)
	}
	if cfg.OnDelete != "keep" {
		t.Errorf("on_delete = %q, want keep", cfg.OnDelete)
	}
}

func TestLoadInvalidOnDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autokuma.yaml")
	body := "kuma:\n  url: http://kuma.example\n  auth_token: tok\non_delete: destroy\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for invalid on_delete")
	}
}

func asConfigError(err error, target **errs.ConfigError) bool {
	ce, ok := err.(*errs.ConfigError)
	if !ok {
		return false
	}
	*target = ce
	return true
}
