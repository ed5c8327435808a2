package sampler

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider describes one HTTP model endpoint: how to address it, how to
// shape the payload, and how to pull the text out of the response.
type Provider struct {
	Name string

	// Endpoint is a fixed URL. EndpointTemplate takes its place for
	// providers that encode model and key into the URL, with {model}
	// and {api_key} placeholders.
	Endpoint         string
	EndpointTemplate string

	Headers func(apiKey string) map[string]string
	Payload func(prompt, model string) map[string]interface{}

	// ResponsePath walks the decoded JSON to the generated text, e.g.
	// choices.0.message.content.
	ResponsePath []string
	ErrorKey     string
}

// URL resolves the request URL for a model and key.
func (p *Provider) URL(model, apiKey string) string {
	if p.EndpointTemplate == "" {
		return p.Endpoint
	}
	url := strings.ReplaceAll(p.EndpointTemplate, "{model}", model)
	return strings.ReplaceAll(url, "{api_key}", apiKey)
}

// modelProviderPrefixes maps a model-identifier prefix to its provider.
var modelProviderPrefixes = []struct {
	prefix   string
	provider string
}{
	{"gpt", "openai"},
	{"claude", "anthropic"},
	{"gemini", "google"},
	{"mistral", "mistral"},
	{"llama", "groqcloud"},
}

// ProviderForModel selects a provider by model prefix.
func ProviderForModel(model string, providers map[string]*Provider) (*Provider, error) {
	for _, entry := range modelProviderPrefixes {
		if strings.HasPrefix(model, entry.prefix) {
			if p, ok := providers[entry.provider]; ok {
				return p, nil
			}
			return nil, fmt.Errorf("provider %s is not configured", entry.provider)
		}
	}
	return nil, fmt.Errorf("model %s is not supported", model)
}

func bearerHeaders(apiKey string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + apiKey,
	}
}

func chatPayload(system string, maxTokens int, temperature float64) func(prompt, model string) map[string]interface{} {
	return func(prompt, model string) map[string]interface{} {
		messages := []interface{}{}
		if system != "" {
			messages = append(messages, map[string]interface{}{"role": "system", "content": system})
		}
		messages = append(messages, map[string]interface{}{"role": "user", "content": prompt})
		payload := map[string]interface{}{
			"model":       model,
			"messages":    messages,
			"temperature": temperature,
		}
		if maxTokens > 0 {
			payload["max_tokens"] = maxTokens
		}
		return payload
	}
}

// DefaultProviders returns the built-in provider registry: chat-style
// endpoints plus the generate-content style used by google.
func DefaultProviders() map[string]*Provider {
	return map[string]*Provider{
		"openai": {
			Name:         "openai",
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Headers:      bearerHeaders,
			Payload:      chatPayload("You are a helpful assistant.", 0, 0.7),
			ResponsePath: []string{"choices", "0", "message", "content"},
			ErrorKey:     "error",
		},
		"anthropic": {
			Name:     "anthropic",
			Endpoint: "https://api.anthropic.com/v1/messages",
			Headers: func(apiKey string) map[string]string {
				return map[string]string{
					"Content-Type":      "application/json",
					"x-api-key":         apiKey,
					"anthropic-version": "2023-06-01",
				}
			},
			Payload: func(prompt, model string) map[string]interface{} {
				return map[string]interface{}{
					"model":      model,
					"max_tokens": 1024,
					"messages": []interface{}{
						map[string]interface{}{"role": "user", "content": prompt},
					},
				}
			},
			ResponsePath: []string{"content", "0", "text"},
			ErrorKey:     "error",
		},
		"google": {
			Name: "google",
			EndpointTemplate: "https://generativelanguage.googleapis.com/v1beta/models/" +
				"{model}:generateContent?key={api_key}",
			Headers: func(string) map[string]string {
				return map[string]string{"Content-Type": "application/json"}
			},
			Payload: func(prompt, model string) map[string]interface{} {
				return map[string]interface{}{
					"contents": []interface{}{
						map[string]interface{}{
							"parts": []interface{}{map[string]interface{}{"text": prompt}},
						},
					},
				}
			},
			ResponsePath: []string{"candidates", "0", "content", "parts", "0", "text"},
			ErrorKey:     "error",
		},
		"mistral": {
			Name:         "mistral",
			Endpoint:     "https://api.mistral.ai/v1/chat/completions",
			Headers:      bearerHeaders,
			Payload:      chatPayload("", 512, 0.7),
			ResponsePath: []string{"choices", "0", "message", "content"},
			ErrorKey:     "error",
		},
		"groqcloud": {
			Name:         "groqcloud",
			Endpoint:     "https://api.groq.com/openai/v1/chat/completions",
			Headers:      bearerHeaders,
			Payload:      chatPayload("", 512, 0.7),
			ResponsePath: []string{"choices", "0", "message", "content"},
			ErrorKey:     "error",
		},
	}
}

// ProviderOverride adjusts an endpoint from a YAML file, e.g. to point
// a provider at a proxy or a self-hosted gateway.
type ProviderOverride struct {
	Endpoint         string `yaml:"endpoint,omitempty"`
	EndpointTemplate string `yaml:"endpoint_template,omitempty"`
}

// LoadProviderOverrides reads `provider → override` from a YAML file.
func LoadProviderOverrides(path string) (map[string]ProviderOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider overrides %s: %w", path, err)
	}
	var overrides map[string]ProviderOverride
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return overrides, nil
}

// ApplyOverrides patches the registry in place and reports unknown
// provider names.
func ApplyOverrides(providers map[string]*Provider, overrides map[string]ProviderOverride) error {
	for name, override := range overrides {
		p, ok := providers[name]
		if !ok {
			return fmt.Errorf("override for unknown provider %s", name)
		}
		if override.Endpoint != "" {
			p.Endpoint = override.Endpoint
			p.EndpointTemplate = ""
		}
		if override.EndpointTemplate != "" {
			p.EndpointTemplate = override.EndpointTemplate
		}
	}
	return nil
}
