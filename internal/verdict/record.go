// Package verdict implements the URL evaluation pipeline: an ordered chain
// of short-circuiting trust checks followed by a two-sided concurrent
// brand-verification race.
package verdict

import (
	"github.com/jonesrussell/phishguard/internal/canonical"
)

// Label is the terminal classification of an evaluation.
type Label string

const (
	LabelPending  Label = "pending"
	LabelBenign   Label = "benign"
	LabelPhishing Label = "phishing"
)

// Record accumulates the state of one in-flight evaluation. It is owned
// exclusively by that evaluation and never shared across requests.
type Record struct {
	URL    string // canonical form of the submitted URL
	Domain string // canonical host

	Label           Label
	Confidence      *float64 // in [0,1] when set
	Reasons         string
	IdentifiedBrand string

	InGlobalTrustList   bool
	InPersonalTrustList bool
	InBlockList         bool

	// Screenshot is read-only after creation and shared between clones.
	Screenshot []byte
}

// NewRecord builds the initial record for an evaluation. A URL that cannot
// be canonicalized yields empty identity fields, which every lookup treats
// as "no match".
func NewRecord(rawURL string, screenshot []byte) *Record {
	return &Record{
		URL:        canonical.Canonicalize(rawURL),
		Domain:     canonical.Host(rawURL),
		Label:      LabelPending,
		Screenshot: screenshot,
	}
}

// Clone returns an independent copy of the record for one race side.
// The screenshot payload is shared since it is read-only.
func (r *Record) Clone() *Record {
	out := *r
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	return &out
}
