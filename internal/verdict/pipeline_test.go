package verdict

import (
	"context"
	"testing"
	"time"

	"github.com/jonesrussell/phishguard/internal/logger"
)

// setChecker is a ListChecker over a fixed set of canonical URLs.
type setChecker map[string]bool

func (s setChecker) Contains(rawURL string) bool { return s[rawURL] }

func newTestPipeline(trust, block, personal setChecker, local, remote Verifier) *Pipeline {
	log := logger.NewNop()
	race := NewCoordinator(local, remote, log, nil)
	return NewPipeline(trust, block, personal, race, log, nil)
}

// panicVerifier fails the test if the race coordinator is ever invoked.
type panicVerifier struct{ t *testing.T }

func (p *panicVerifier) IdentifyBrand(context.Context, []byte) (string, error) {
	p.t.Error("race coordinator invoked for a short-circuited evaluation")
	return "", nil
}

func (p *panicVerifier) JudgeDomain(context.Context, string, string) (string, error) {
	p.t.Error("race coordinator invoked for a short-circuited evaluation")
	return "", nil
}

func TestEvaluateGlobalTrustShortCircuits(t *testing.T) {
	url := "https://www.example.com/"
	pv := &panicVerifier{t}
	p := newTestPipeline(setChecker{url: true}, setChecker{}, setChecker{}, pv, pv)

	rec, err := p.Evaluate(context.Background(), "Example.com", nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if rec.Label != LabelBenign {
		t.Errorf("label = %q, want %q", rec.Label, LabelBenign)
	}
	if !rec.InGlobalTrustList {
		t.Error("InGlobalTrustList flag not set")
	}
	if rec.InBlockList || rec.InPersonalTrustList {
		t.Error("later stage flags must stay unset after a short-circuit")
	}
}

func TestEvaluateBlockListShortCircuits(t *testing.T) {
	url := "https://www.evil.com/login"
	pv := &panicVerifier{t}
	p := newTestPipeline(setChecker{}, setChecker{url: true}, setChecker{}, pv, pv)

	rec, err := p.Evaluate(context.Background(), "evil.com/login", nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if rec.Label != LabelPhishing {
		t.Errorf("label = %q, want %q", rec.Label, LabelPhishing)
	}
	if !rec.InBlockList {
		t.Error("InBlockList flag not set")
	}
}

func TestEvaluateTrustListWinsOverBlockList(t *testing.T) {
	url := "https://www.example.com/"
	pv := &panicVerifier{t}
	p := newTestPipeline(setChecker{url: true}, setChecker{url: true}, setChecker{}, pv, pv)

	rec, err := p.Evaluate(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if rec.Label != LabelBenign {
		t.Errorf("label = %q, want %q (trust check runs before block check)", rec.Label, LabelBenign)
	}
}

func TestEvaluatePersonalTrustShortCircuits(t *testing.T) {
	url := "https://www.mysite.com/dashboard"
	pv := &panicVerifier{t}
	p := newTestPipeline(setChecker{}, setChecker{}, setChecker{url: true}, pv, pv)

	rec, err := p.Evaluate(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if rec.Label != LabelBenign {
		t.Errorf("label = %q, want %q", rec.Label, LabelBenign)
	}
	if !rec.InPersonalTrustList {
		t.Error("InPersonalTrustList flag not set")
	}
}

func TestEvaluateFallsThroughToVerification(t *testing.T) {
	v := &fakeVerifier{
		brand:    "Example Corp",
		judgment: judgmentText(false, "domain does not belong to the brand", "0.95"),
		delay:    time.Millisecond,
	}
	p := newTestPipeline(setChecker{}, setChecker{}, setChecker{}, v, v)

	rec, err := p.Evaluate(context.Background(), "https://exarnple-login.com/verify", []byte("png"))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if rec.Label != LabelPhishing {
		t.Errorf("label = %q, want %q", rec.Label, LabelPhishing)
	}
	if rec.Reasons != "domain does not belong to the brand" {
		t.Errorf("reasons = %q", rec.Reasons)
	}
	if rec.Confidence == nil || *rec.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", rec.Confidence)
	}
	if rec.InGlobalTrustList || rec.InBlockList || rec.InPersonalTrustList {
		t.Error("no membership flags should be set on a full fall-through")
	}
}

func TestEvaluateMalformedURLSkipsLists(t *testing.T) {
	// A URL with no canonical form matches nothing and goes straight to
	// verification with an empty domain.
	trust := setChecker{"": true}
	v := &fakeVerifier{
		brand:    "Unknown",
		judgment: judgmentText(false, "no recognizable brand", "unknown"),
		delay:    time.Millisecond,
	}
	p := newTestPipeline(trust, setChecker{}, setChecker{}, v, v)

	rec, err := p.Evaluate(context.Background(), "https://%zz%", []byte("png"))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if rec.Label != LabelPhishing {
		t.Errorf("label = %q, want %q", rec.Label, LabelPhishing)
	}
	if rec.Confidence != nil {
		t.Errorf("confidence = %v, want nil for unknown", rec.Confidence)
	}
}
