// Package tesseract provides an OCR provider backed by the Tesseract command
// line tool. It implements the ocr.Provider interface.
//
// Each Recognize call encodes the frame as PNG, pipes it to a `tesseract
// stdin stdout` subprocess, and returns the recognized text. The subprocess
// is bound to the call's context, so cancelling the pipeline kills any
// in-flight recognition.
//
// Typical usage:
//
//	p, err := tesseract.New(
//	    tesseract.WithLanguage("eng"),
//	    tesseract.WithPageSegMode(6), // assume a single uniform text block
//	)
//	text, err := p.Recognize(ctx, frame)
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os/exec"
	"strconv"
	"strings"

	"github.com/voxscreen/voxscreen/pkg/capture"
	"github.com/voxscreen/voxscreen/pkg/provider/ocr"
)

// Compile-time interface assertion.
var _ ocr.Provider = (*Provider)(nil)

const (
	defaultBinary   = "tesseract"
	defaultLanguage = "eng"

	// defaultPageSegMode 6 ("assume a single uniform block of text") matches
	// the subtitle-strip capture region far better than full page analysis.
	defaultPageSegMode = 6
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBinary overrides the tesseract executable path. Default: "tesseract"
// resolved via PATH.
func WithBinary(path string) Option {
	return func(p *Provider) { p.binary = path }
}

// WithLanguage sets the recognition language passed via -l (e.g. "eng",
// "jpn", "deu"). Default: "eng".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithPageSegMode sets the Tesseract page segmentation mode (--psm).
// Default: 6.
func WithPageSegMode(mode int) Option {
	return func(p *Provider) { p.psm = mode }
}

// Provider implements ocr.Provider by shelling out to the Tesseract CLI.
// It is stateless apart from its configuration and safe for concurrent use.
type Provider struct {
	binary   string
	language string
	psm      int
}

// New constructs a Provider and verifies that the tesseract binary can be
// resolved, so a missing installation surfaces at startup rather than on the
// first frame.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		binary:   defaultBinary,
		language: defaultLanguage,
		psm:      defaultPageSegMode,
	}
	for _, o := range opts {
		o(p)
	}

	if _, err := exec.LookPath(p.binary); err != nil {
		return nil, fmt.Errorf("tesseract: binary not found: %w", err)
	}
	return p, nil
}

// Recognize runs one tesseract subprocess over the frame and returns the
// recognized text with inner whitespace normalized to single spaces.
func (p *Provider) Recognize(ctx context.Context, frame *capture.Frame) (string, error) {
	if frame == nil || frame.Image == nil {
		return "", nil
	}

	var in bytes.Buffer
	if err := png.Encode(&in, frame.Image); err != nil {
		return "", fmt.Errorf("tesseract: encode frame: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"stdin", "stdout",
		"-l", p.language,
		"--psm", strconv.Itoa(p.psm),
	)
	cmd.Stdin = &in

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("tesseract: run: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return normalize(out.String()), nil
}

// normalize collapses all whitespace runs (including newlines between
// recognized lines) into single spaces and trims the result.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
