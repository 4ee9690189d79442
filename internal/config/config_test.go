package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/suggester/internal/config"
)

const authBlock = "auth:\n  jwt_secret: test-secret\n"

// writeConfig writes body plus a JWT secret.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	return writeRawConfig(t, body+authBlock)
}

func writeRawConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "service:\n  debug: true\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Port != 8094 {
		t.Errorf("service.port = %d, want 8094", cfg.Service.Port)
	}
	if !cfg.Service.Debug {
		t.Error("service.debug should be read from the file")
	}
	if cfg.Elasticsearch.PagesIndex != "wiki_pages" {
		t.Errorf("elasticsearch.pages_index = %q", cfg.Elasticsearch.PagesIndex)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("cache.ttl = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Events.Stream != "page-events" {
		t.Errorf("events.stream = %q", cfg.Events.Stream)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tasks.TopicMode != "passthrough" {
		t.Errorf("tasks.topic_mode = %q", cfg.Tasks.TopicMode)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SUGGESTER_PORT", "9100")
	t.Setenv("SUGGESTER_DISABLED_TASK_TYPES", "copyedit, references")

	path := writeConfig(t, "service:\n  port: 8000\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Port != 9100 {
		t.Errorf("service.port = %d, want 9100", cfg.Service.Port)
	}
	want := []string{"copyedit", "references"}
	if len(cfg.Tasks.DisabledTaskTypes) != len(want) {
		t.Fatalf("disabled task types = %v, want %v", cfg.Tasks.DisabledTaskTypes, want)
	}
	for i := range want {
		if cfg.Tasks.DisabledTaskTypes[i] != want[i] {
			t.Errorf("disabled[%d] = %q, want %q", i, cfg.Tasks.DisabledTaskTypes[i], want[i])
		}
	}
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing jwt secret", body: "service:\n  port: 8000\n", field: "auth.jwt_secret"},
		{name: "bad port", body: "service:\n  port: 70000\n", field: "service.port"},
		{name: "bad level", body: "logging:\n  level: loud\n", field: "logging.level"},
		{name: "bad topic mode", body: "tasks:\n  topic_mode: mixed\n", field: "tasks.topic_mode"},
		{name: "classifier without topics", body: "tasks:\n  topic_mode: classifier\n", field: "tasks.classifier_topics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if tt.field != "auth.jwt_secret" {
				body += authBlock
			}
			_, err := config.Load(writeRawConfig(t, body))
			if err == nil {
				t.Fatal("Load() expected error")
			}

			var validationErr *config.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("error %v is not a ValidationError", err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("field = %q, want %q", validationErr.Field, tt.field)
			}
		})
	}
}

func TestLoad_ServiceHTTPSettings(t *testing.T) {
	t.Setenv("SUGGESTER_CORS_ORIGINS", "https://a.example, https://b.example")

	path := writeConfig(t, "service:\n  read_timeout: 5s\n  idle_timeout: 1m\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ReadTimeout != 5*time.Second {
		t.Errorf("service.read_timeout = %v, want 5s", cfg.Service.ReadTimeout)
	}
	if cfg.Service.IdleTimeout != time.Minute {
		t.Errorf("service.idle_timeout = %v, want 1m", cfg.Service.IdleTimeout)
	}
	if cfg.Service.WriteTimeout != 0 {
		t.Errorf("service.write_timeout = %v, want unset", cfg.Service.WriteTimeout)
	}
	if len(cfg.Service.CORSOrigins) != 2 || cfg.Service.CORSOrigins[1] != "https://b.example" {
		t.Errorf("service.cors_origins = %v", cfg.Service.CORSOrigins)
	}
}

func TestDatabaseConfig_MigrateURL(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "s", SSLMode: "disable"}

	if got := d.MigrateURL(); got != "postgres://u:p@db:5432/s?sslmode=disable" {
		t.Errorf("MigrateURL() = %q", got)
	}
}
