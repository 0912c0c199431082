// Package coqui provides a speech.Synthesizer backed by a locally-running
// Coqui TTS server (ghcr.io/coqui-ai/tts-cpu). Synthesis is performed via
// GET /api/tts with URL query parameters; the WAV response is handed to an
// external player process (aplay by default) for playback.
//
// Speak returns as soon as playback has been started. The returned duration
// is computed from the WAV header and sample count, so the caller can infer
// when playback will finish without polling the audio device. Stop kills the
// player process, which halts audio output mid-phrase.
//
// Typical usage:
//
//	s, err := coqui.New("http://localhost:5002",
//	    coqui.WithLanguage("ru"),
//	    coqui.WithFemaleVoice("p276"),
//	    coqui.WithMaleVoice("p330"),
//	)
//	d, err := s.Speak(ctx, "привет", "Alice", types.GenderFemale)
package coqui

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/voxscreen/voxscreen/pkg/provider/speech"
	"github.com/voxscreen/voxscreen/pkg/types"
)

// Compile-time interface assertion.
var _ speech.Synthesizer = (*Provider)(nil)

const (
	defaultTimeout = 30 * time.Second
	defaultPlayer  = "aplay"
	apiTTSEndpoint = "/api/tts"
)

// ─── options ───

// Option is a functional option for configuring a Coqui Provider.
type Option func(*Provider)

// WithLanguage sets the language_id query parameter sent to the TTS server
// (e.g. "en", "ru"). Empty by default, which suits single-language models.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithTimeout sets the per-request HTTP timeout for calls to the TTS server.
// Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithDefaultVoice sets the speaker_id used when no gender hint is available.
// Empty by default, which suits single-speaker models.
func WithDefaultVoice(id string) Option {
	return func(p *Provider) { p.defaultVoice = id }
}

// WithMaleVoice sets the speaker_id used for phrases with a male voice hint.
func WithMaleVoice(id string) Option {
	return func(p *Provider) { p.maleVoice = id }
}

// WithFemaleVoice sets the speaker_id used for phrases with a female voice hint.
func WithFemaleVoice(id string) Option {
	return func(p *Provider) { p.femaleVoice = id }
}

// WithPlayer overrides the playback command. The WAV file is written to the
// command's stdin. Defaults to "aplay -q -".
func WithPlayer(bin string, args ...string) Option {
	return func(p *Provider) {
		p.playerBin = bin
		p.playerArgs = args
	}
}

// ─── Provider ───

// Provider implements speech.Synthesizer backed by a Coqui TTS server.
// It is safe for concurrent use, though playback is single-voiced: a new
// Speak does not interrupt a running one — callers that want preemption
// call Stop first.
type Provider struct {
	serverURL  string
	language   string
	httpClient *http.Client

	defaultVoice string
	maleVoice    string
	femaleVoice  string

	playerBin  string
	playerArgs []string

	mu      sync.Mutex
	playing context.CancelFunc
}

// New creates a new Coqui Provider targeting the TTS server at serverURL
// (e.g. "http://localhost:5002"). It verifies that the playback binary is
// present on PATH so that a missing player surfaces at startup rather than
// on the first phrase.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		playerBin:  defaultPlayer,
		playerArgs: []string{"-q", "-"},
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	if _, err := exec.LookPath(p.playerBin); err != nil {
		return nil, fmt.Errorf("coqui: player binary %q not found: %w", p.playerBin, err)
	}
	return p, nil
}

// Speak implements speech.Synthesizer. It synthesises text via the TTS
// server, starts playback in the background and returns the audio duration
// computed from the WAV data.
func (p *Provider) Speak(ctx context.Context, text, speakerLabel string, gender types.Gender) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	wav, err := p.synthesize(ctx, text, p.voiceFor(gender))
	if err != nil {
		return 0, err
	}

	info, err := parseWAV(wav)
	if err != nil {
		return 0, err
	}
	d := info.Duration()

	// Playback outlives ctx on purpose: cancelling the synthesis request
	// must not clip audio that already started, only Stop does that.
	playCtx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	if p.playing != nil {
		p.playing()
	}
	p.playing = cancel
	p.mu.Unlock()

	go p.play(playCtx, cancel, wav)

	return d, nil
}

// Stop implements speech.Synthesizer. It kills the player process for any
// playback in progress and returns immediately.
func (p *Provider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing != nil {
		p.playing()
		p.playing = nil
	}
}

// play runs the player process to completion and clears the playing slot.
func (p *Provider) play(ctx context.Context, cancel context.CancelFunc, wav []byte) {
	defer func() {
		cancel()
		p.mu.Lock()
		if p.playing != nil {
			// Only clear our own slot; a newer Speak may have replaced it.
			p.playing = nil
		}
		p.mu.Unlock()
	}()

	cmd := exec.CommandContext(ctx, p.playerBin, p.playerArgs...)
	cmd.Stdin = bytes.NewReader(wav)
	_ = cmd.Run()
}

// voiceFor maps a gender hint onto a configured speaker_id.
func (p *Provider) voiceFor(gender types.Gender) string {
	switch gender {
	case types.GenderMale:
		if p.maleVoice != "" {
			return p.maleVoice
		}
	case types.GenderFemale:
		if p.femaleVoice != "" {
			return p.femaleVoice
		}
	}
	return p.defaultVoice
}

// synthesize performs a single GET /api/tts request and returns the WAV body.
func (p *Provider) synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	params := url.Values{}
	params.Set("text", text)
	if voiceID != "" {
		params.Set("speaker_id", voiceID)
	}
	if p.language != "" {
		params.Set("language_id", p.language)
	}

	reqURL := p.serverURL + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	return wav, nil
}

// ─── WAV parsing ───

// wavInfo holds the format metadata extracted from a RIFF/WAVE header.
type wavInfo struct {
	SampleRate    int // samples per second
	Channels      int // 1 = mono, 2 = stereo
	BitsPerSample int
	DataLen       int // length of the data chunk in bytes
}

// Duration computes the playback duration of the data chunk.
func (w wavInfo) Duration() time.Duration {
	bytesPerSec := w.SampleRate * w.Channels * w.BitsPerSample / 8
	if bytesPerSec <= 0 {
		return 0
	}
	return time.Duration(float64(w.DataLen) / float64(bytesPerSec) * float64(time.Second))
}

// parseWAV scans the RIFF/WAVE container in wav and returns its format and
// data chunk length. Walking the chunks is more robust than hardcoding a
// fixed 44-byte offset because the fmt chunk size may vary.
func parseWAV(wav []byte) (wavInfo, error) {
	if len(wav) < 12 {
		return wavInfo{}, errors.New("coqui: WAV response too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return wavInfo{}, errors.New("coqui: WAV response missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return wavInfo{}, errors.New("coqui: WAV response missing WAVE identifier")
	}

	var info wavInfo
	foundFmt := false

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				info.BitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
				foundFmt = true
			}
		case "data":
			if !foundFmt {
				return wavInfo{}, errors.New("coqui: WAV data chunk before fmt chunk")
			}
			end := offset + 8 + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			info.DataLen = end - (offset + 8)
			return info, nil
		}

		// Chunks are word-aligned: pad by 1 if odd size.
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return wavInfo{}, errors.New("coqui: WAV response missing data chunk")
}
