package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("QC_USER_ID", "12345")
	t.Setenv("QC_API_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "12345", cfg.QC.UserID)
	assert.Equal(t, "https://www.quantconnect.com/api/v2", cfg.QC.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.QC.Timeout)
	assert.Equal(t, 3, cfg.QC.MaxAttempts)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.RunTimeout)
	assert.Equal(t, filepath.Join("data", "dashboard.json"), cfg.Pipeline.OutputPath)
	assert.False(t, cfg.Redis.Enabled)
	assert.Zero(t, cfg.QC.ProjectID)
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("QC_PROJECT_ID", "987654")
	t.Setenv("QC_WORKERS", "8")
	t.Setenv("RUN_TIMEOUT", "90s")
	t.Setenv("OUTPUT_PATH", "/srv/site/data.json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, int64(987654), cfg.QC.ProjectID)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.RunTimeout)
	assert.Equal(t, "/srv/site/data.json", cfg.Pipeline.OutputPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalidProjectID(t *testing.T) {
	t.Setenv("QC_PROJECT_ID", "abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:      "development",
			QC:       QCConfig{MaxAttempts: 3, RateLimit: 5},
			Pipeline: PipelineConfig{OutputPath: "out.json", Workers: 4, RunTimeout: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad env", func(c *Config) { c.Env = "qa" }, true},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, true},
		{"too many workers", func(c *Config) { c.Pipeline.Workers = 16 }, true},
		{"zero attempts", func(c *Config) { c.QC.MaxAttempts = 0 }, true},
		{"zero rate", func(c *Config) { c.QC.RateLimit = 0 }, true},
		{"no output path", func(c *Config) { c.Pipeline.OutputPath = "" }, true},
		{"no timeout", func(c *Config) { c.Pipeline.RunTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireCredentials())

	cfg.QC.UserID = "1"
	assert.Error(t, cfg.RequireCredentials())

	cfg.QC.APIToken = "t"
	assert.NoError(t, cfg.RequireCredentials())
}

func TestGetEnvAsDurationFallback(t *testing.T) {
	t.Setenv("QC_TIMEOUT", "not-a-duration")
	assert.Equal(t, 30*time.Second, getEnvAsDuration("QC_TIMEOUT", "30s"))
}

func TestLoadTrackingFile(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	t.Run("valid", func(t *testing.T) {
		path := write("ok.yaml", "projects:\n  - id: 11\n    name: Momentum\n  - id: 22\n")
		tf, err := LoadTrackingFile(path)
		require.NoError(t, err)
		require.Len(t, tf.Projects, 2)
		assert.Equal(t, TrackedProject{ID: 11, Name: "Momentum"}, tf.Projects[0])
		assert.Equal(t, int64(22), tf.Projects[1].ID)
	})

	t.Run("unknown field", func(t *testing.T) {
		path := write("typo.yaml", "projects:\n  - id: 11\n    nmae: Momentum\n")
		_, err := LoadTrackingFile(path)
		assert.Error(t, err)
	})

	t.Run("duplicate id", func(t *testing.T) {
		path := write("dup.yaml", "projects:\n  - id: 11\n  - id: 11\n")
		_, err := LoadTrackingFile(path)
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		path := write("empty.yaml", "projects: []\n")
		_, err := LoadTrackingFile(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTrackingFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestTrackedProjects(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.yaml")
	require.NoError(t, os.WriteFile(path, []byte("projects:\n  - id: 11\n    name: A\n"), 0o644))

	t.Run("none configured", func(t *testing.T) {
		cfg := &Config{}
		tracked, err := cfg.TrackedProjects()
		require.NoError(t, err)
		assert.Empty(t, tracked)
	})

	t.Run("env only", func(t *testing.T) {
		cfg := &Config{QC: QCConfig{ProjectID: 33}}
		tracked, err := cfg.TrackedProjects()
		require.NoError(t, err)
		assert.Equal(t, []TrackedProject{{ID: 33}}, tracked)
	})

	t.Run("file plus env", func(t *testing.T) {
		cfg := &Config{QC: QCConfig{ProjectID: 33, ProjectsFile: path}}
		tracked, err := cfg.TrackedProjects()
		require.NoError(t, err)
		assert.Equal(t, []TrackedProject{{ID: 11, Name: "A"}, {ID: 33}}, tracked)
	})

	t.Run("env already in file", func(t *testing.T) {
		cfg := &Config{QC: QCConfig{ProjectID: 11, ProjectsFile: path}}
		tracked, err := cfg.TrackedProjects()
		require.NoError(t, err)
		assert.Len(t, tracked, 1)
	})
}
