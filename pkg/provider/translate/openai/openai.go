// Package openai provides a translation provider backed by the OpenAI chat
// completions API. It implements the translate.Provider interface.
//
// The model is driven in one of two modes:
//
//   - Plain (default): the model is instructed to reply with the translated
//     text and nothing else.
//   - Speaker detection (WithSpeakerDetection): the model replies with a JSON
//     object {"speaker": "...", "gender": "m"|"f"|"", "text": "..."} so that
//     subtitle lines attributed to a named character can be voiced
//     consistently. Malformed JSON falls back to treating the whole reply as
//     the translation.
//
// Responses are streamed so that cooperative cancellation has a checkpoint at
// every generated chunk rather than only at call boundaries.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/voxscreen/voxscreen/pkg/provider/translate"
	"github.com/voxscreen/voxscreen/pkg/textsim"
	"github.com/voxscreen/voxscreen/pkg/types"
)

// Compile-time interface assertion.
var _ translate.Provider = (*Provider)(nil)

// defaultLoopThreshold is the similarity above which a model reply is treated
// as an untranslated echo of the input and discarded. Cross-language output
// should never resemble its input this closely; when it does, the model has
// looped or refused.
const defaultLoopThreshold = 0.90

// config holds optional configuration for the provider.
type config struct {
	baseURL        string
	timeout        time.Duration
	loopThreshold  float64
	detectSpeakers bool
	temperature    float64
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for pointing
// at an OpenAI-compatible local server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithLoopThreshold overrides the echo-guard similarity threshold.
// Default: 0.90.
func WithLoopThreshold(t float64) Option {
	return func(c *config) { c.loopThreshold = t }
}

// WithSpeakerDetection instructs the model to attribute the line to a named
// speaker and report a voice gender hint alongside the translation.
func WithSpeakerDetection() Option {
	return func(c *config) { c.detectSpeakers = true }
}

// Provider implements translate.Provider using the OpenAI API.
type Provider struct {
	client         oai.Client
	model          string
	sourceLang     string
	targetLang     string
	loopThreshold  float64
	detectSpeakers bool

	inflight translate.Inflight
}

// New constructs a new OpenAI translation Provider translating from
// sourceLang to targetLang (ISO 639-1 codes, e.g. "en" → "ru").
func New(apiKey, model, sourceLang, targetLang string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}
	if sourceLang == "" || targetLang == "" {
		return nil, fmt.Errorf("openai: sourceLang and targetLang must not be empty")
	}

	cfg := &config{loopThreshold: defaultLoopThreshold}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client:         oai.NewClient(reqOpts...),
		model:          model,
		sourceLang:     sourceLang,
		targetLang:     targetLang,
		loopThreshold:  cfg.loopThreshold,
		detectSpeakers: cfg.detectSpeakers,
	}, nil
}

// Translate implements translate.Provider. The call streams the completion
// and aborts at the next chunk boundary once Cancel fires.
func (p *Provider) Translate(ctx context.Context, text string) (*translate.Result, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer p.inflight.Register(cancel)()

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(p.systemPrompt()),
			oai.UserMessage(text),
		},
		Temperature: param.NewOpt(0.2),
	}

	stream := p.client.Chat.Completions.NewStreaming(callCtx, params)
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		sb.WriteString(chunk.Choices[0].Delta.Content)
	}

	if err := stream.Err(); err != nil {
		if callCtx.Err() != nil {
			return nil, translate.ErrCancelled
		}
		return nil, fmt.Errorf("openai: stream: %w", err)
	}
	if callCtx.Err() != nil {
		// Cancel fired after the final chunk but before we returned.
		return nil, translate.ErrCancelled
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return nil, nil
	}

	result := p.parse(out)
	if result.Text == "" {
		return nil, nil
	}
	if textsim.ScoreFold(text, result.Text) >= p.loopThreshold {
		// Untranslated echo — no usable translation for this input.
		return nil, nil
	}
	return result, nil
}

// Cancel implements translate.Provider. It aborts any in-flight Translate at
// its next streaming checkpoint and is a no-op when idle.
func (p *Provider) Cancel() {
	p.inflight.Cancel()
}

// systemPrompt builds the instruction for the configured mode.
func (p *Provider) systemPrompt() string {
	if p.detectSpeakers {
		return fmt.Sprintf(
			"You translate video subtitles from %s to %s. "+
				"Reply with only a JSON object: "+
				`{"speaker": "<character name or empty>", "gender": "m", "f" or "", "text": "<translation>"}. `+
				"Do not add commentary.",
			p.sourceLang, p.targetLang)
	}
	return fmt.Sprintf(
		"You translate video subtitles from %s to %s. "+
			"Reply with only the translated text, no commentary, no quotes.",
		p.sourceLang, p.targetLang)
}

// speakerReply is the JSON shape requested in speaker-detection mode.
type speakerReply struct {
	Speaker string `json:"speaker"`
	Gender  string `json:"gender"`
	Text    string `json:"text"`
}

// parse extracts a Result from the model output. In speaker-detection mode it
// attempts JSON first and falls back to plain text.
func (p *Provider) parse(out string) *translate.Result {
	if p.detectSpeakers {
		var sr speakerReply
		if err := json.Unmarshal([]byte(out), &sr); err == nil && sr.Text != "" {
			return &translate.Result{
				Text:         strings.TrimSpace(sr.Text),
				SpeakerLabel: strings.TrimSpace(sr.Speaker),
				VoiceGender:  parseGender(sr.Gender),
			}
		}
	}
	return &translate.Result{Text: out}
}

// parseGender maps freeform model output onto the shared gender hints.
func parseGender(s string) types.Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return types.GenderMale
	case "f", "female":
		return types.GenderFemale
	}
	return types.GenderUnknown
}
