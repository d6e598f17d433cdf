// Package haochat assembles the chat server from configuration.
package haochat

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Desarso/haochat/images"
	"github.com/Desarso/haochat/intent"
	"github.com/Desarso/haochat/models/openai"
	"github.com/Desarso/haochat/ratelimit"
	"github.com/Desarso/haochat/search"
	"github.com/Desarso/haochat/server"
	"github.com/Desarso/haochat/sessions"
	"github.com/Desarso/haochat/stores"
	"github.com/Desarso/haochat/toolcall"
)

// App is a fully wired server.
type App struct {
	Config    *Config
	Store     stores.MessageStore
	Traces    stores.TraceStore
	Engine    *sessions.Engine
	Server    *server.Server
	Scheduler *server.Scheduler
	Logger    *log.Logger
}

// NewApp opens the store and builds every collaborator named by cfg.
func NewApp(ctx context.Context, cfg *Config) (*App, error) {
	logger := log.New(os.Stdout, "[HAOCHAT] ", log.LstdFlags)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	traces, err := stores.NewGORMTraceStore(store.DB())
	if err != nil {
		store.Close()
		return nil, err
	}

	llm, err := newLLM(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	searcher := newSearcher(cfg)
	generator, err := newImageGenerator(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	var (
		toolSearcher toolcall.Searcher
		toolImages   toolcall.ImageGenerator
	)
	if searcher != nil {
		toolSearcher = searcher
	}
	if generator != nil {
		toolImages = generator
	}
	tools := toolcall.New(llm, toolSearcher, toolImages)
	tools.Traces = traces

	engine := sessions.NewEngine(llm, store, tools)
	engine.Classifier = &intent.ModelClassifier{Completer: llm, Model: cfg.TitleModel}
	engine.Titles = sessions.NewTitleGenerator(llm, cfg.TitleModel)
	engine.Prompt = sessions.DefaultPrompt{Base: cfg.SystemPrompt}
	engine.Config.Model = cfg.Model
	if cfg.HistoryLimit > 0 {
		engine.Config.HistoryLimit = cfg.HistoryLimit
	}
	if cfg.StreamTimeout > 0 {
		engine.Config.StreamTimeout = cfg.StreamTimeout
	}
	if cfg.BufferedTimeout > 0 {
		engine.Config.BufferedTimeout = cfg.BufferedTimeout
	}

	srv := server.New(engine)
	srv.Traces = traces
	srv.Searcher = searcher
	srv.Images = generator
	if cfg.FeedbackLimit > 0 && cfg.FeedbackWindow > 0 {
		srv.Feedback = ratelimit.New(cfg.FeedbackLimit, cfg.FeedbackWindow)
	}
	if strings.EqualFold(cfg.ImageBackend, "gemini") {
		srv.ImageDir = cfg.ImageDir
	}

	scheduler, err := server.NewScheduler(srv.Feedback, cfg.SweepSpec)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid sweep schedule: %w", err)
	}

	return &App{
		Config:    cfg,
		Store:     store,
		Traces:    traces,
		Engine:    engine,
		Server:    srv,
		Scheduler: scheduler,
		Logger:    logger,
	}, nil
}

// Run starts housekeeping and serves until the listener fails.
func (a *App) Run() error {
	a.Scheduler.Start()
	defer a.Scheduler.Stop()
	a.Logger.Printf("Model %s, search %s, images %s", a.Config.Model, a.Config.SearchBackend, a.Config.ImageBackend)
	return a.Server.Run(a.Config.Addr)
}

func (a *App) Close() error {
	return a.Store.Close()
}

// newLLM builds the chat client. OPENAI_API_KEY and OPENAI_BASE_URL only
// apply to the openai provider; other presets read their own key variable.
func newLLM(cfg *Config) (*openai.Client, error) {
	provider, err := openai.LookupProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	llm, err := openai.NewProviderClient(provider.Name, cfg.Model)
	if err != nil {
		return nil, err
	}
	switch provider.Name {
	case "openai":
		llm.APIKey = cfg.OpenAIAPIKey
		if cfg.OpenAIBaseURL != "" {
			llm.BaseURL = chatCompletionsURL(cfg.OpenAIBaseURL)
		}
	case "openrouter":
		llm.WithAttribution(cfg.PublicBaseURL, "haochat")
	}
	return llm, nil
}

func openStore(cfg *Config) (stores.MessageStore, error) {
	if cfg.Store != nil {
		return cfg.Store, nil
	}
	if cfg.DatabaseURL != "" {
		return stores.NewStore(stores.NewStoreConfig("postgres", cfg.DatabaseURL))
	}
	if cfg.SQLitePath == "" {
		return stores.NewSQLiteStoreDefault()
	}
	return stores.NewStore(stores.NewStoreConfig("sqlite", cfg.SQLitePath))
}

func newSearcher(cfg *Config) search.Searcher {
	switch strings.ToLower(cfg.SearchBackend) {
	case "brave":
		return &search.Brave{APIKey: cfg.BraveAPIKey}
	case "none", "":
		return nil
	default:
		return &search.Google{APIKey: cfg.GoogleAPIKey, EngineID: cfg.GoogleCSEID}
	}
}

func newImageGenerator(ctx context.Context, cfg *Config) (images.Generator, error) {
	switch strings.ToLower(cfg.ImageBackend) {
	case "gemini":
		if err := os.MkdirAll(cfg.ImageDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create image dir: %w", err)
		}
		return images.NewGemini(ctx, cfg.GeminiAPIKey, cfg.ImageDir, cfg.PublicBaseURL)
	case "none", "":
		return nil, nil
	default:
		return images.NewDallE(cfg.OpenAIAPIKey), nil
	}
}

// chatCompletionsURL accepts either an API root like https://api.openai.com/v1
// or the full endpoint.
func chatCompletionsURL(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" || strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}
