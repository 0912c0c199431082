// Package anyllm provides a translation provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. It is the way to run translation against a local model (Ollama,
// llama.cpp) without a separate code path.
//
// Usage:
//
//	p, err := anyllm.New("ollama", "qwen2.5:7b", "en", "ru")
//	p, err := anyllm.New("anthropic", "claude-3-5-haiku-latest", "en", "de",
//		anyllm.WithBackendOptions(anyllmlib.WithAPIKey("sk-ant-...")))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/voxscreen/voxscreen/pkg/provider/translate"
	"github.com/voxscreen/voxscreen/pkg/textsim"
)

// Compile-time interface assertion.
var _ translate.Provider = (*Provider)(nil)

// defaultLoopThreshold is the similarity above which a model reply is treated
// as an untranslated echo of the input and discarded.
const defaultLoopThreshold = 0.90

// config holds optional configuration for the provider.
type config struct {
	loopThreshold float64
	backendOpts   []anyllmlib.Option
}

// Option is a functional option for Provider.
type Option func(*config)

// WithLoopThreshold overrides the echo-guard similarity threshold.
// Default: 0.90.
func WithLoopThreshold(t float64) Option {
	return func(c *config) { c.loopThreshold = t }
}

// WithBackendOptions passes any-llm-go options through to the backend
// (e.g. anyllmlib.WithAPIKey, anyllmlib.WithBaseURL). Without an API key
// option the backend falls back to the relevant environment variable
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
func WithBackendOptions(opts ...anyllmlib.Option) Option {
	return func(c *config) { c.backendOpts = append(c.backendOpts, opts...) }
}

// Provider implements translate.Provider by wrapping any-llm-go.
type Provider struct {
	backend       anyllmlib.Provider
	model         string
	sourceLang    string
	targetLang    string
	loopThreshold float64

	inflight translate.Inflight
}

// New creates a new Provider backed by the given LLM provider name,
// translating from sourceLang to targetLang (ISO 639-1 codes).
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
func New(providerName, model, sourceLang, targetLang string, opts ...Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	if sourceLang == "" || targetLang == "" {
		return nil, fmt.Errorf("anyllm: sourceLang and targetLang must not be empty")
	}

	cfg := &config{loopThreshold: defaultLoopThreshold}
	for _, o := range opts {
		o(cfg)
	}

	backend, err := createBackend(providerName, cfg.backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{
		backend:       backend,
		model:         model,
		sourceLang:    sourceLang,
		targetLang:    targetLang,
		loopThreshold: cfg.loopThreshold,
	}, nil
}

// createBackend creates the underlying any-llm-go provider for the given provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Translate implements translate.Provider. The completion is streamed and the
// call aborts at the next chunk boundary once Cancel fires.
func (p *Provider) Translate(ctx context.Context, text string) (*translate.Result, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer p.inflight.Register(cancel)()

	temp := 0.2
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{
				Role: anyllmlib.RoleSystem,
				Content: fmt.Sprintf(
					"You translate video subtitles from %s to %s. "+
						"Reply with only the translated text, no commentary, no quotes.",
					p.sourceLang, p.targetLang),
			},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		Temperature: &temp,
	}

	chunks, errs := p.backend.CompletionStream(callCtx, params)

	var sb strings.Builder
	for chunk := range chunks {
		if callCtx.Err() != nil {
			return nil, translate.ErrCancelled
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		sb.WriteString(chunk.Choices[0].Delta.Content)
	}

	if err := <-errs; err != nil {
		if callCtx.Err() != nil {
			return nil, translate.ErrCancelled
		}
		return nil, fmt.Errorf("anyllm: stream: %w", err)
	}
	if callCtx.Err() != nil {
		return nil, translate.ErrCancelled
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return nil, nil
	}
	if textsim.ScoreFold(text, out) >= p.loopThreshold {
		// Untranslated echo — no usable translation for this input.
		return nil, nil
	}
	return &translate.Result{Text: out}, nil
}

// Cancel implements translate.Provider. It aborts any in-flight Translate at
// its next streaming checkpoint and is a no-op when idle.
func (p *Provider) Cancel() {
	p.inflight.Cancel()
}
