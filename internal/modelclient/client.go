// Package modelclient provides the vision/language model capabilities the
// verdict pipeline races: a local Ollama backend and a remote Gemini
// backend, both exposing brand identification and domain-match judgment.
package modelclient

import (
	"context"
	"errors"
)

// ErrUnavailable indicates a model backend is unreachable.
var ErrUnavailable = errors.New("model backend unavailable")

// BrandIdentifier identifies the brand shown in a page screenshot.
type BrandIdentifier interface {
	IdentifyBrand(ctx context.Context, screenshot []byte) (string, error)
}

// DomainJudge judges whether a brand name and a domain belong together,
// returning free text the caller parses into a structured judgment.
type DomainJudge interface {
	JudgeDomain(ctx context.Context, brand, domain string) (string, error)
}

// Verifier bundles the two capabilities one race side needs.
type Verifier interface {
	BrandIdentifier
	DomainJudge
}

// brandIdentificationPrompt instructs a vision model to name the brand a
// screenshot presents itself as.
const brandIdentificationPrompt = `You are a brand identification assistant for a phishing detector.
Look at the page screenshot and identify the single brand or organization the page presents itself as.
Answer with the brand name only, no punctuation and no commentary.
If no recognizable brand is present, answer: unknown`

// domainMatchPrompt instructs a model to judge whether a brand plausibly
// owns a domain, in the numbered format the response parser expects.
const domainMatchPrompt = `You are a domain ownership judge for a phishing detector.
Given a brand name and a domain, decide whether the domain legitimately belongs to that brand.
Watch for lookalike tricks: typosquatting, extra tokens, homoglyphs, and unrelated registrable domains.

Respond in exactly this format:
1. BrandMatch: <True/False>
2. Explanation: <your reasoning>
3. Confidence: <a value between 0.0 and 1.0, or unknown>`
