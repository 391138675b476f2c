// Package config loads AutoKuma's layered configuration (§6.2): a
// JSON/YAML/TOML file plus environment overrides, using
// github.com/spf13/viper the same way the teacher's cmd/root.go does.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/autokuma/autokuma/internal/errs"
)

// TLS holds the verify/cert policy shared by kuma.tls.* and docker.tls.*.
type TLS struct {
	Verify bool
	Cert   string
	Key    string
	CA     string
}

// Kuma holds the kuma.* keys: remote connection, credentials, timeouts.
type Kuma struct {
	URL            string
	Username       string
	Password       string
	MFAToken       string
	MFASecret      string
	AuthToken      string
	Headers        map[string]string
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
	TLS            TLS
}

// Files holds the files.* keys for the file source.
type Files struct {
	FollowSymlinks bool
}

// Docker holds the docker.* keys for the Docker/Swarm source.
type Docker struct {
	Hosts       []string
	LabelPrefix string
	Source      string // Containers, Services, Both
	TLS         TLS
}

// Config is the full, validated configuration surface of §6.2.
type Config struct {
	Kuma              Kuma
	TagName           string
	TagColor          string
	DefaultSettings   map[string]string
	Snippets          map[string]string
	StaticMonitors    string
	Files             Files
	Docker            Docker
	OnDelete          string
	DeleteGracePeriod time.Duration
	InsecureEnvAccess bool
	LogDir            string
	Migrate           bool
	DataDir           string
}

// Load reads configuration from an optional file at path (JSON/YAML/TOML
// inferred from extension) layered under environment variables using
// `__` as the key separator (§6.2), then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errs.ConfigError{Key: path, Cause: err}
		}
	}

	cfg := &Config{
		Kuma: Kuma{
			URL:            v.GetString("kuma.url"),
			Username:       v.GetString("kuma.username"),
			Password:       v.GetString("kuma.password"),
			MFAToken:       v.GetString("kuma.mfa_token"),
			MFASecret:      v.GetString("kuma.mfa_secret"),
			AuthToken:      v.GetString("kuma.auth_token"),
			Headers:        v.GetStringMapString("kuma.headers"),
			ConnectTimeout: v.GetDuration("kuma.connect_timeout"),
			CallTimeout:    v.GetDuration("kuma.call_timeout"),
			TLS: TLS{
				Verify: v.GetBool("kuma.tls.verify"),
				Cert:   v.GetString("kuma.tls.cert"),
				Key:    v.GetString("kuma.tls.key"),
				CA:     v.GetString("kuma.tls.ca"),
			},
		},
		TagName:         v.GetString("tag_name"),
		TagColor:        v.GetString("tag_color"),
		DefaultSettings: v.GetStringMapString("default_settings"),
		Snippets:        v.GetStringMapString("snippets"),
		StaticMonitors:  v.GetString("static_monitors"),
		Files: Files{
			FollowSymlinks: v.GetBool("files.follow_symlinks"),
		},
		Docker: Docker{
			Hosts:       v.GetStringSlice("docker.hosts"),
			LabelPrefix: v.GetString("docker.label_prefix"),
			Source:      v.GetString("docker.source"),
			TLS: TLS{
				Verify: v.GetBool("docker.tls.verify"),
				Cert:   v.GetString("docker.tls.cert"),
				Key:    v.GetString("docker.tls.key"),
				CA:     v.GetString("docker.tls.ca"),
			},
		},
		OnDelete:          v.GetString("on_delete"),
		DeleteGracePeriod: v.GetDuration("delete_grace_period"),
		InsecureEnvAccess: v.GetBool("insecure_env_access"),
		LogDir:            v.GetString("log_dir"),
		Migrate:           v.GetBool("migrate"),
		DataDir:           v.GetString("data_dir"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kuma.connect_timeout", 30*time.Second)
	v.SetDefault("kuma.call_timeout", 30*time.Second)
	v.SetDefault("kuma.tls.verify", true)
	v.SetDefault("docker.label_prefix", "kuma")
	v.SetDefault("docker.source", "Both")
	v.SetDefault("tag_name", "autokuma")
	v.SetDefault("tag_color", "#7e3feb")
	v.SetDefault("on_delete", "delete")
	v.SetDefault("delete_grace_period", 5*time.Minute)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log_dir", "")
	v.SetDefault("insecure_env_access", false)
	v.SetDefault("migrate", false)
}

// validate enforces the configuration invariants a fatal ConfigError
// must catch at startup (§7 "ConfigError — invalid or missing
// configuration; fatal at startup").
func (c *Config) validate() error {
	if c.Kuma.URL == "" {
		return &errs.ConfigError{Key: "kuma.url", Cause: fmt.Errorf("required")}
	}
	if c.OnDelete != "delete" && c.OnDelete != "keep" {
		return &errs.ConfigError{Key: "on_delete", Cause: fmt.Errorf("must be %q or %q, got %q", "delete", "keep", c.OnDelete)}
	}
	if c.Docker.Source != "" && c.Docker.Source != "Containers" && c.Docker.Source != "Services" && c.Docker.Source != "Both" {
		return &errs.ConfigError{Key: "docker.source", Cause: fmt.Errorf("must be Containers, Services or Both, got %q", c.Docker.Source)}
	}
	hasCreds := c.Kuma.Username != "" && c.Kuma.Password != ""
	if !hasCreds && c.Kuma.AuthToken == "" {
		return &errs.ConfigError{Key: "kuma.username/password", Cause: fmt.Errorf("credentials or kuma.auth_token required")}
	}
	return nil
}
