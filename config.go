package haochat

import (
	"errors"
	"time"

	"github.com/Desarso/haochat/stores"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything needed to assemble an App.
type Config struct {
	Addr          string
	Provider      string // openai, openrouter, groq or cerebras
	Model         string
	TitleModel    string
	SystemPrompt  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	SearchBackend string // google, brave or none
	GoogleAPIKey  string
	GoogleCSEID   string
	BraveAPIKey   string

	ImageBackend  string // openai, gemini or none
	GeminiAPIKey  string
	ImageDir      string
	PublicBaseURL string

	DatabaseURL string
	SQLitePath  string
	Store       stores.MessageStore

	HistoryLimit    int
	StreamTimeout   time.Duration
	BufferedTimeout time.Duration
	FeedbackLimit   int
	FeedbackWindow  time.Duration
	SweepSpec       string
}

// configKeys maps viper keys to the environment variables that set them.
var configKeys = map[string]string{
	"addr":             "HAOCHAT_ADDR",
	"provider":         "HAOCHAT_PROVIDER",
	"model":            "HAOCHAT_MODEL",
	"title_model":      "OPENAI_TTITLE_GEN_MODEL",
	"system_prompt":    "HAOCHAT_SYSTEM_PROMPT",
	"openai_api_key":   "OPENAI_API_KEY",
	"openai_base_url":  "OPENAI_BASE_URL",
	"search_backend":   "HAOCHAT_SEARCH_BACKEND",
	"google_api_key":   "GOOGLE_API_KEY",
	"google_cse_id":    "GOOGLE_CSE_ID",
	"brave_api_key":    "BRAVE_API_KEY",
	"image_backend":    "HAOCHAT_IMAGE_BACKEND",
	"gemini_api_key":   "GEMINI_API_KEY",
	"image_dir":        "HAOCHAT_IMAGE_DIR",
	"public_base_url":  "HAOCHAT_PUBLIC_BASE_URL",
	"database_url":     "DATABASE_URL",
	"sqlite_path":      "HAOCHAT_SQLITE_PATH",
	"history_limit":    "HAOCHAT_HISTORY_LIMIT",
	"stream_timeout":   "HAOCHAT_STREAM_TIMEOUT",
	"buffered_timeout": "HAOCHAT_BUFFERED_TIMEOUT",
	"feedback_limit":   "HAOCHAT_FEEDBACK_LIMIT",
	"feedback_window":  "HAOCHAT_FEEDBACK_WINDOW",
	"sweep_spec":       "HAOCHAT_SWEEP_SPEC",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-5")
	v.SetDefault("title_model", "gpt-4o-mini")
	v.SetDefault("search_backend", "google")
	v.SetDefault("image_backend", "openai")
	v.SetDefault("image_dir", "generated_images")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("sqlite_path", stores.DefaultSQLitePath)
	v.SetDefault("history_limit", 20)
	v.SetDefault("stream_timeout", 240*time.Second)
	v.SetDefault("buffered_timeout", 240*time.Second)
	v.SetDefault("feedback_limit", 10)
	v.SetDefault("feedback_window", 5*time.Minute)
	v.SetDefault("sweep_spec", "@every 1m")
}

// LoadConfig reads .env, then an optional haochat.yaml, then the
// environment. Later sources win. When paths are given they replace the
// default config search paths.
func LoadConfig(paths ...string) (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("haochat")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "$HOME/.config/haochat"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)
	for key, env := range configKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		Addr:            v.GetString("addr"),
		Provider:        v.GetString("provider"),
		Model:           v.GetString("model"),
		TitleModel:      v.GetString("title_model"),
		SystemPrompt:    v.GetString("system_prompt"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		OpenAIBaseURL:   v.GetString("openai_base_url"),
		SearchBackend:   v.GetString("search_backend"),
		GoogleAPIKey:    v.GetString("google_api_key"),
		GoogleCSEID:     v.GetString("google_cse_id"),
		BraveAPIKey:     v.GetString("brave_api_key"),
		ImageBackend:    v.GetString("image_backend"),
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		ImageDir:        v.GetString("image_dir"),
		PublicBaseURL:   v.GetString("public_base_url"),
		DatabaseURL:     v.GetString("database_url"),
		SQLitePath:      v.GetString("sqlite_path"),
		HistoryLimit:    v.GetInt("history_limit"),
		StreamTimeout:   v.GetDuration("stream_timeout"),
		BufferedTimeout: v.GetDuration("buffered_timeout"),
		FeedbackLimit:   v.GetInt("feedback_limit"),
		FeedbackWindow:  v.GetDuration("feedback_window"),
		SweepSpec:       v.GetString("sweep_spec"),
	}, nil
}

// WithModel sets the chat model
func (c *Config) WithModel(model string) *Config {
	c.Model = model
	return c
}

// WithProvider selects an OpenAI-compatible provider preset.
func (c *Config) WithProvider(provider string) *Config {
	c.Provider = provider
	return c
}

// WithAddr sets the listen address
func (c *Config) WithAddr(addr string) *Config {
	c.Addr = addr
	return c
}

// WithStore sets the message store for the configuration
func (c *Config) WithStore(store stores.MessageStore) *Config {
	c.Store = store
	return c
}

// WithSQLiteStore selects a SQLite database at path.
func (c *Config) WithSQLiteStore(path string) *Config {
	c.DatabaseURL = ""
	c.SQLitePath = path
	return c
}

// WithPostgresStore selects a PostgreSQL database by DSN.
func (c *Config) WithPostgresStore(dsn string) *Config {
	c.DatabaseURL = dsn
	return c
}

func (c *Config) WithSearchBackend(backend string) *Config {
	c.SearchBackend = backend
	return c
}

func (c *Config) WithImageBackend(backend string) *Config {
	c.ImageBackend = backend
	return c
}

// WithStreamTimeout sets the deadline of streaming turns.
func (c *Config) WithStreamTimeout(d time.Duration) *Config {
	c.StreamTimeout = d
	return c
}

// WithBufferedTimeout sets the deadline of buffered turns.
func (c *Config) WithBufferedTimeout(d time.Duration) *Config {
	c.BufferedTimeout = d
	return c
}
