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
	"gopkg.in/yaml.v3"
)

// Run modes selected by MODE / --mode
const (
	ModeTest  = "test"
	ModeDev   = "dev"
	ModeDaily = "daily"
)

// Config holds all configuration options for autored
type Config struct {
	// Browser session and wait bounds
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Creator studio URLs and selectors
	Platform PlatformConfig `yaml:"platform" json:"platform"`

	// Session cookie persistence
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// Run mode and daily schedule
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`

	// Text and image generation
	Generation GenerationConfig `yaml:"generation" json:"generation"`

	// Video download pipeline
	Download DownloadConfig `yaml:"download" json:"download"`

	// Publish journal
	History HistoryConfig `yaml:"history" json:"history"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds the session driver options and every bounded wait
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	ExecPath          string        `yaml:"exec_path" json:"exec_path"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth       int           `yaml:"window_width" json:"window_width"`
	WindowHeight      int           `yaml:"window_height" json:"window_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	ShortTimeout      time.Duration `yaml:"short_timeout" json:"short_timeout"`
	LongTimeout       time.Duration `yaml:"long_timeout" json:"long_timeout"`
	QRTimeout         time.Duration `yaml:"qr_timeout" json:"qr_timeout"`
	StepTimeout       time.Duration `yaml:"step_timeout" json:"step_timeout"`
	ConfirmTimeout    time.Duration `yaml:"confirm_timeout" json:"confirm_timeout"`
	SettleWait        time.Duration `yaml:"settle_wait" json:"settle_wait"`
	SettleTimeout     time.Duration `yaml:"settle_timeout" json:"settle_timeout"`
}

// PlatformConfig describes the creator studio the flows drive
type PlatformConfig struct {
	HomeURL    string          `yaml:"home_url" json:"home_url"`
	PublishURL string          `yaml:"publish_url" json:"publish_url"`
	UploadURL  string          `yaml:"upload_url" json:"upload_url"`
	Selectors  SelectorsConfig `yaml:"selectors" json:"selectors"`
}

// SelectorsConfig holds the UI contract. A "text=" prefix matches an
// element by its own text, anything else is CSS.
type SelectorsConfig struct {
	IdentityMarker string `yaml:"identity_marker" json:"identity_marker"`
	LoginTrigger   string `yaml:"login_trigger" json:"login_trigger"`
	QRCode         string `yaml:"qr_code" json:"qr_code"`
	Compose        string `yaml:"compose" json:"compose"`
	UploadEntry    string `yaml:"upload_entry" json:"upload_entry"`
	FileInput      string `yaml:"file_input" json:"file_input"`
	Thumbnail      string `yaml:"thumbnail" json:"thumbnail"`
	Title          string `yaml:"title" json:"title"`
	Body           string `yaml:"body" json:"body"`
	Submit         string `yaml:"submit" json:"submit"`
	Success        string `yaml:"success" json:"success"`
}

// CredentialsConfig selects the cookie store backend
type CredentialsConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// ScheduleConfig holds the orchestrator options
type ScheduleConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	Time       string `yaml:"time" json:"time"`
	ImageCount int    `yaml:"image_count" json:"image_count"`
	Notify     bool   `yaml:"notify" json:"notify"`
}

// GenerationConfig holds the generative API settings
type GenerationConfig struct {
	TextProvider      string        `yaml:"text_provider" json:"text_provider"`
	ImageProvider     string        `yaml:"image_provider" json:"image_provider"`
	GoogleAPIKey      string        `yaml:"google_api_key" json:"-"`
	GoogleBaseURL     string        `yaml:"google_base_url" json:"google_base_url"`
	TextModel         string        `yaml:"text_model" json:"text_model"`
	ImageModel        string        `yaml:"image_model" json:"image_model"`
	CloudflareAccount string        `yaml:"cloudflare_account" json:"cloudflare_account"`
	CloudflareToken   string        `yaml:"cloudflare_token" json:"-"`
	CloudflareBaseURL string        `yaml:"cloudflare_base_url" json:"cloudflare_base_url"`
	CloudflareText    string        `yaml:"cloudflare_text_model" json:"cloudflare_text_model"`
	CloudflareImage   string        `yaml:"cloudflare_image_model" json:"cloudflare_image_model"`
	OutputDir         string        `yaml:"output_dir" json:"output_dir"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Concurrency       int           `yaml:"concurrency" json:"concurrency"`
}

// DownloadConfig holds the yt-dlp pipeline settings
type DownloadConfig struct {
	Channels    []string      `yaml:"channels" json:"channels"`
	Limit       int           `yaml:"limit" json:"limit"`
	Directory   string        `yaml:"directory" json:"directory"`
	Tool        string        `yaml:"tool" json:"tool"`
	CondaEnv    string        `yaml:"conda_env" json:"conda_env"`
	Format      string        `yaml:"format" json:"format"`
	RateLimit   string        `yaml:"rate_limit" json:"rate_limit"`
	UploadDelay time.Duration `yaml:"upload_delay" json:"upload_delay"`
	AutoUpload  bool          `yaml:"auto_upload" json:"auto_upload"`
	Hashtags    string        `yaml:"hashtags" json:"hashtags"`
}

// HistoryConfig locates the publish journal
type HistoryConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			WindowWidth:       1280,
			WindowHeight:      900,
			NavigationTimeout: 30 * time.Second,
			ShortTimeout:      10 * time.Second,
			LongTimeout:       120 * time.Second,
			QRTimeout:         30 * time.Second,
			StepTimeout:       10 * time.Second,
			ConfirmTimeout:    30 * time.Second,
			SettleWait:        1 * time.Second,
			SettleTimeout:     15 * time.Second,
		},
		Platform: PlatformConfig{
			HomeURL:    "https://creator.xiaohongshu.com",
			PublishURL: "https://creator.xiaohongshu.com",
			UploadURL:  "https://creator.xiaohongshu.com/publish/publish?type=video",
			Selectors: SelectorsConfig{
				IdentityMarker: "img[alt='User Avatar']",
				LoginTrigger:   "text=QR code login",
				QRCode:         "canvas",
				Compose:        "text=Create Post",
				UploadEntry:    "text=Upload Images",
				FileInput:      "input[type='file']",
				Title:          "textarea[placeholder='Add a title']",
				Body:           "div[role='textbox']",
				Submit:         "text=Publish",
				Success:        "text=Published successfully",
			},
		},
		Credentials: CredentialsConfig{
			Backend: "file",
			Path:    filepath.Join("cookies", "xhs_cookies.json"),
		},
		Schedule: ScheduleConfig{
			Mode:       ModeTest,
			Time:       "09:00",
			ImageCount: 1,
			Notify:     true,
		},
		Generation: GenerationConfig{
			TextProvider:      "gemini",
			ImageProvider:     "imagen",
			GoogleBaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			TextModel:         "gemini-2.5-flash",
			ImageModel:        "imagen-4.0-generate-001",
			CloudflareBaseURL: "https://api.cloudflare.com/client/v4",
			CloudflareText:    "@cf/meta/llama-3.1-8b-instruct",
			CloudflareImage:   "@cf/black-forest-labs/flux-1-schnell",
			OutputDir:         filepath.Join("output", "images"),
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RequestsPerMinute: 30,
			Concurrency:       2,
		},
		Download: DownloadConfig{
			Channels:    []string{"https://www.youtube.com/@The_FirstTake"},
			Limit:       3,
			Directory:   "downloads",
			Tool:        "yt-dlp",
			Format:      "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			RateLimit:   "10M",
			UploadDelay: 5 * time.Minute,
			Hashtags:    "#THEFIRSTTAKE #音乐现场 #JPOP #live",
		},
		History: HistoryConfig{
			Path: filepath.Join("output", "history.json"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables. The unprefixed
// names are still read so existing .env files keep working.
func (c *Config) LoadFromEnv() error {
	if mode := firstEnv("AUTORED_MODE", "MODE"); mode != "" {
		c.Schedule.Mode = strings.ToLower(mode)
	}
	if at := firstEnv("AUTORED_SCHEDULE_TIME", "SCHEDULE_TIME"); at != "" {
		c.Schedule.Time = at
	}
	if key := firstEnv("AUTORED_GOOGLE_API_KEY", "GOOGLE_API_KEY"); key != "" {
		c.Generation.GoogleAPIKey = key
	}
	if model := firstEnv("AUTORED_TEXT_MODEL", "TEXT_MODEL_NAME"); model != "" {
		c.Generation.TextModel = model
	}
	if model := firstEnv("AUTORED_IMAGE_MODEL", "IMAGE_MODEL_NAME"); model != "" {
		c.Generation.ImageModel = model
	}
	if account := firstEnv("AUTORED_CLOUDFLARE_ACCOUNT", "CLOUDFLARE_ACCOUNT_ID"); account != "" {
		c.Generation.CloudflareAccount = account
	}
	if token := firstEnv("AUTORED_CLOUDFLARE_TOKEN", "CLOUDFLARE_API_TOKEN"); token != "" {
		c.Generation.CloudflareToken = token
	}
	if headless := os.Getenv("AUTORED_HEADLESS"); headless != "" {
		if v, err := strconv.ParseBool(headless); err == nil {
			c.Browser.Headless = v
		}
	}
	if path := os.Getenv("AUTORED_COOKIES_PATH"); path != "" {
		c.Credentials.Path = path
	}
	if backend := os.Getenv("AUTORED_CREDENTIALS_BACKEND"); backend != "" {
		c.Credentials.Backend = backend
	}
	if count := os.Getenv("AUTORED_IMAGE_COUNT"); count != "" {
		var val int
		fmt.Sscanf(count, "%d", &val)
		if val > 0 {
			c.Schedule.ImageCount = val
		}
	}
	if dir := os.Getenv("AUTORED_DOWNLOAD_DIR"); dir != "" {
		c.Download.Directory = dir
	}
	if level := os.Getenv("AUTORED_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("AUTORED_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in the standard locations
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".autored.yaml",
		".autored.yml",
		filepath.Join(home, ".config", "autored", "config.yaml"),
		filepath.Join(home, ".config", "autored", "config.yml"),
		filepath.Join(home, ".autored.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Schedule.Mode {
	case ModeTest, ModeDev, ModeDaily:
	default:
		errs = append(errs, fmt.Errorf("unknown run mode %q (want test, dev or daily)", c.Schedule.Mode))
	}
	if _, _, err := ParseClock(c.Schedule.Time); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.ImageCount < 1 || c.Schedule.ImageCount > 6 {
		errs = append(errs, errors.New("image count must be between 1 and 6"))
	}

	b := c.Browser
	for name, d := range map[string]time.Duration{
		"navigation timeout": b.NavigationTimeout,
		"short timeout":      b.ShortTimeout,
		"long timeout":       b.LongTimeout,
		"step timeout":       b.StepTimeout,
		"confirm timeout":    b.ConfirmTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if b.LongTimeout > 0 && b.ShortTimeout > b.LongTimeout {
		errs = append(errs, errors.New("short timeout must not exceed long timeout"))
	}
	if b.SettleWait < 0 {
		errs = append(errs, errors.New("settle wait cannot be negative"))
	}

	if c.Platform.HomeURL == "" {
		errs = append(errs, errors.New("platform home URL is required"))
	}
	s := c.Platform.Selectors
	for name, sel := range map[string]string{
		"identity_marker": s.IdentityMarker,
		"login_trigger":   s.LoginTrigger,
		"compose":         s.Compose,
		"file_input":      s.FileInput,
		"title":           s.Title,
		"body":            s.Body,
		"submit":          s.Submit,
		"success":         s.Success,
	} {
		if strings.TrimSpace(sel) == "" {
			errs = append(errs, fmt.Errorf("selector %s is required", name))
		}
	}

	switch c.Credentials.Backend {
	case "file", "keyring", "encrypted":
	default:
		errs = append(errs, fmt.Errorf("unknown credentials backend %q", c.Credentials.Backend))
	}
	if c.Credentials.Path == "" && c.Credentials.Backend != "keyring" {
		errs = append(errs, errors.New("credentials path is required"))
	}

	switch c.Generation.TextProvider {
	case "gemini", "cloudflare":
	default:
		errs = append(errs, fmt.Errorf("unknown text provider %q", c.Generation.TextProvider))
	}
	switch c.Generation.ImageProvider {
	case "imagen", "cloudflare":
	default:
		errs = append(errs, fmt.Errorf("unknown image provider %q", c.Generation.ImageProvider))
	}
	if c.Generation.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Generation.Concurrency <= 0 {
		errs = append(errs, errors.New("generation concurrency must be positive"))
	}

	if c.Download.Limit <= 0 {
		errs = append(errs, errors.New("download limit must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ParseClock parses a 24h "HH:MM" time of day
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule time %q (want HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeCommandLineFlags applies the flags the cobra commands collected
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Schedule.Mode = strings.ToLower(mode)
	}
	if at, ok := flags["schedule-time"].(string); ok && at != "" {
		c.Schedule.Time = at
	}
	if count, ok := flags["images"].(int); ok && count > 0 {
		c.Schedule.ImageCount = count
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if cookies, ok := flags["cookies"].(string); ok && cookies != "" {
		c.Credentials.Path = cookies
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources.
// Precedence: flags > environment > .env files > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	home, _ := os.UserHomeDir()
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(home, ".autored.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
