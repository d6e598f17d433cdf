package openai

import (
	"fmt"
	"strings"
)

// Provider is an OpenAI-compatible chat/completions host.
type Provider struct {
	Name      string
	BaseURL   string
	APIKeyEnv string
}

var providers = map[string]Provider{
	"openai":     {Name: "openai", BaseURL: DefaultBaseURL, APIKeyEnv: "OPENAI_API_KEY"},
	"openrouter": {Name: "openrouter", BaseURL: "https://openrouter.ai/api/v1/chat/completions", APIKeyEnv: "OPENROUTER_API_KEY"},
	"groq":       {Name: "groq", BaseURL: "https://api.groq.com/openai/v1/chat/completions", APIKeyEnv: "GROQ_API_KEY"},
	"cerebras":   {Name: "cerebras", BaseURL: "https://api.cerebras.ai/v1/chat/completions", APIKeyEnv: "CEREBRAS_API_KEY"},
}

// LookupProvider returns the preset for name. An empty name means openai.
func LookupProvider(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "openai"
	}
	p, ok := providers[name]
	if !ok {
		return Provider{}, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// NewProviderClient builds a client for a preset provider. The API key is
// read from the provider's environment variable at request time.
func NewProviderClient(name, model string) (*Client, error) {
	p, err := LookupProvider(name)
	if err != nil {
		return nil, err
	}
	return &Client{
		Model:     model,
		BaseURL:   p.BaseURL,
		APIKeyEnv: p.APIKeyEnv,
	}, nil
}

// WithAttribution sets the OpenRouter ranking headers.
func (c *Client) WithAttribution(siteURL, siteName string) *Client {
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	if siteURL != "" {
		c.Headers["HTTP-Referer"] = siteURL
	}
	if siteName != "" {
		c.Headers["X-Title"] = siteName
	}
	return c
}
