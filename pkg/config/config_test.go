package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10*time.Second, cfg.Browser.ShortTimeout)
	assert.Equal(t, 120*time.Second, cfg.Browser.LongTimeout)
	assert.Equal(t, time.Second, cfg.Browser.SettleWait)
	assert.Equal(t, filepath.Join("cookies", "xhs_cookies.json"), cfg.Credentials.Path)
	assert.Equal(t, ModeTest, cfg.Schedule.Mode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Schedule.Mode = "weekly" }, "unknown run mode"},
		{"bad clock", func(c *Config) { c.Schedule.Time = "25:00" }, "invalid schedule time"},
		{"no images", func(c *Config) { c.Schedule.ImageCount = 0 }, "between 1 and 6"},
		{"too many images", func(c *Config) { c.Schedule.ImageCount = 7 }, "between 1 and 6"},
		{"zero long timeout", func(c *Config) { c.Browser.LongTimeout = 0 }, "long timeout must be positive"},
		{"short over long", func(c *Config) { c.Browser.ShortTimeout = 5 * time.Minute }, "must not exceed"},
		{"negative settle", func(c *Config) { c.Browser.SettleWait = -time.Second }, "settle wait"},
		{"missing marker", func(c *Config) { c.Platform.Selectors.IdentityMarker = " " }, "identity_marker"},
		{"bad backend", func(c *Config) { c.Credentials.Backend = "vault" }, "credentials backend"},
		{"missing path", func(c *Config) { c.Credentials.Path = "" }, "credentials path"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"text provider", func(c *Config) { c.Generation.TextProvider = "openai" }, "unknown text provider"},
		{"image provider", func(c *Config) { c.Generation.ImageProvider = "dalle" }, "unknown image provider"},
		{"concurrency", func(c *Config) { c.Generation.Concurrency = 0 }, "concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateOptionalSelectors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Platform.Selectors.UploadEntry = ""
	cfg.Platform.Selectors.QRCode = ""
	cfg.Platform.Selectors.Thumbnail = ""
	assert.NoError(t, cfg.Validate())
}

func TestKeyringNeedsNoPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials.Backend = "keyring"
	cfg.Credentials.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"09:00", 9, 0, true},
		{" 23:59 ", 23, 59, true},
		{"7:05", 7, 5, true},
		{"24:00", 0, 0, false},
		{"9am", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MODE", "DEV")
	t.Setenv("SCHEDULE_TIME", "18:30")
	t.Setenv("GOOGLE_API_KEY", "legacy-key")
	t.Setenv("AUTORED_GOOGLE_API_KEY", "prefixed-key")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acc")
	t.Setenv("AUTORED_HEADLESS", "false")
	t.Setenv("AUTORED_IMAGE_COUNT", "4")
	t.Setenv("AUTORED_COOKIES_PATH", "/tmp/c.json")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, ModeDev, cfg.Schedule.Mode)
	assert.Equal(t, "18:30", cfg.Schedule.Time)
	assert.Equal(t, "prefixed-key", cfg.Generation.GoogleAPIKey)
	assert.Equal(t, "acc", cfg.Generation.CloudflareAccount)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 4, cfg.Schedule.ImageCount)
	assert.Equal(t, "/tmp/c.json", cfg.Credentials.Path)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autored.yaml")
	data := `
browser:
  headless: false
  long_timeout: 3m
platform:
  selectors:
    thumbnail: ".img-preview"
schedule:
  mode: daily
  time: "07:45"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 3*time.Minute, cfg.Browser.LongTimeout)
	assert.Equal(t, 10*time.Second, cfg.Browser.ShortTimeout, "unset keys keep defaults")
	assert.Equal(t, ".img-preview", cfg.Platform.Selectors.Thumbnail)
	assert.Equal(t, "text=Create Post", cfg.Platform.Selectors.Compose)
	assert.Equal(t, ModeDaily, cfg.Schedule.Mode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Schedule.Time = "21:15"
	cfg.Generation.GoogleAPIKey = "k"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, cfg, loaded)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"mode":      "Daily",
		"images":    3,
		"headless":  false,
		"cookies":   "",
		"log-level": "debug",
	})

	assert.Equal(t, ModeDaily, cfg.Schedule.Mode)
	assert.Equal(t, 3, cfg.Schedule.ImageCount)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, filepath.Join("cookies", "xhs_cookies.json"), cfg.Credentials.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schedule:\n  mode: daily\n  image_count: 2\n"), 0644))
	t.Setenv("AUTORED_IMAGE_COUNT", "5")
	t.Setenv("HOME", dir)

	cfg, err := Load(path, map[string]interface{}{"mode": "dev"})
	require.NoError(t, err)
	assert.Equal(t, ModeDev, cfg.Schedule.Mode)
	assert.Equal(t, 5, cfg.Schedule.ImageCount)

	_, err = Load(path, map[string]interface{}{"mode": "hourly"})
	assert.Error(t, err)
}
