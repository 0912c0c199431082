package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/voxscreen/voxscreen/pkg/capture"
	"github.com/voxscreen/voxscreen/pkg/provider/ocr"
	"github.com/voxscreen/voxscreen/pkg/provider/speech"
	"github.com/voxscreen/voxscreen/pkg/provider/translate"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// TranslateFactory builds a translation provider from its config entry and
// the configured language pair.
type TranslateFactory func(entry ProviderEntry, sourceLang, targetLang string) (translate.Provider, error)

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	capture   map[string]func(ProviderEntry) (capture.Source, error)
	ocr       map[string]func(ProviderEntry) (ocr.Provider, error)
	translate map[string]TranslateFactory
	speech    map[string]func(ProviderEntry) (speech.Synthesizer, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		capture:   make(map[string]func(ProviderEntry) (capture.Source, error)),
		ocr:       make(map[string]func(ProviderEntry) (ocr.Provider, error)),
		translate: make(map[string]TranslateFactory),
		speech:    make(map[string]func(ProviderEntry) (speech.Synthesizer, error)),
	}
}

// RegisterCapture registers a frame source factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCapture(name string, factory func(ProviderEntry) (capture.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// RegisterOCR registers a recognizer factory under name.
func (r *Registry) RegisterOCR(name string, factory func(ProviderEntry) (ocr.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr[name] = factory
}

// RegisterTranslate registers a translation provider factory under name.
func (r *Registry) RegisterTranslate(name string, factory TranslateFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// RegisterSpeech registers a speech synthesizer factory under name.
func (r *Registry) RegisterSpeech(name string, factory func(ProviderEntry) (speech.Synthesizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[name] = factory
}

// CreateCapture instantiates a frame source using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateCapture(entry ProviderEntry) (capture.Source, error) {
	r.mu.RLock()
	factory, ok := r.capture[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateOCR instantiates a recognizer using the factory registered under entry.Name.
func (r *Registry) CreateOCR(entry ProviderEntry) (ocr.Provider, error) {
	r.mu.RLock()
	factory, ok := r.ocr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: ocr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTranslate instantiates a translation provider using the factory
// registered under entry.Name.
func (r *Registry) CreateTranslate(entry ProviderEntry, sourceLang, targetLang string) (translate.Provider, error) {
	r.mu.RLock()
	factory, ok := r.translate[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: translate/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry, sourceLang, targetLang)
}

// CreateSpeech instantiates a speech synthesizer using the factory registered
// under entry.Name.
func (r *Registry) CreateSpeech(entry ProviderEntry) (speech.Synthesizer, error) {
	r.mu.RLock()
	factory, ok := r.speech[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speech/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
