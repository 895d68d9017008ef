package verdict

import (
	"context"
	"time"

	"github.com/jonesrussell/phishguard/internal/logger"
	"github.com/jonesrussell/phishguard/internal/telemetry"
)

// ListChecker answers membership questions against a bulk list snapshot.
// Implementations canonicalize the URL with the same identity rules used
// when the snapshot was captured.
type ListChecker interface {
	Contains(rawURL string) bool
}

// Stage names, used in logs and metrics.
const (
	stageGlobalTrust   = "global_trust"
	stageBlockList     = "block_list"
	stagePersonalTrust = "personal_trust"
)

// Pipeline evaluates a URL plus screenshot into a final Record. The filter
// stages run synchronously in order; each is a pure in-memory lookup and
// short-circuits the evaluation on a conclusive result. Only when every
// filter falls through does the race coordinator run.
type Pipeline struct {
	globalTrust ListChecker
	blockList   ListChecker
	personal    ListChecker
	race        *Coordinator
	log         logger.Logger
	telemetry   *telemetry.Provider
}

// NewPipeline assembles the evaluation pipeline.
func NewPipeline(
	globalTrust, blockList, personal ListChecker,
	race *Coordinator,
	log logger.Logger,
	tp *telemetry.Provider,
) *Pipeline {
	return &Pipeline{
		globalTrust: globalTrust,
		blockList:   blockList,
		personal:    personal,
		race:        race,
		log:         log,
		telemetry:   tp,
	}
}

// stage is one short-circuiting filter. It sets its membership flag on the
// record and returns true when the evaluation is concluded.
type stage struct {
	name string
	run  func(rec *Record) bool
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{stageGlobalTrust, func(rec *Record) bool {
			if p.globalTrust.Contains(rec.URL) {
				rec.InGlobalTrustList = true
				rec.Label = LabelBenign
				rec.Reasons = "domain is on the global trust list"
				return true
			}
			return false
		}},
		{stageBlockList, func(rec *Record) bool {
			if p.blockList.Contains(rec.URL) {
				rec.InBlockList = true
				rec.Label = LabelPhishing
				rec.Reasons = "URL is on the phishing block list"
				return true
			}
			return false
		}},
		{stagePersonalTrust, func(rec *Record) bool {
			if p.personal.Contains(rec.URL) {
				rec.InPersonalTrustList = true
				rec.Label = LabelBenign
				rec.Reasons = "domain is in your trusted sites"
				return true
			}
			return false
		}},
	}
}

// Evaluate classifies the URL. A URL that cannot be canonicalized matches
// no list and goes straight to verification with an empty domain.
func (p *Pipeline) Evaluate(ctx context.Context, rawURL string, screenshot []byte) (*Record, error) {
	ctx, span := p.telemetry.StartSpan(ctx, "verdict.evaluate")
	defer span.End()

	start := time.Now()
	rec := NewRecord(rawURL, screenshot)

	// An empty canonical identity matches no list by definition.
	stages := p.stages()
	if rec.URL == "" {
		stages = nil
	}

	for _, s := range stages {
		if s.run(rec) {
			p.telemetry.RecordShortCircuit(s.name)
			p.telemetry.RecordEvaluation(string(rec.Label), time.Since(start))
			p.log.Info("evaluation short-circuited",
				logger.String("domain", rec.Domain),
				logger.String("stage", s.name),
				logger.String("label", string(rec.Label)))
			return rec, nil
		}
	}

	outcome, err := p.race.Run(ctx, rec)
	if err != nil {
		p.telemetry.RecordEvaluation("error", time.Since(start))
		return nil, err
	}

	p.telemetry.RecordEvaluation(string(outcome.Record.Label), time.Since(start))
	p.log.Info("evaluation verified",
		logger.String("domain", outcome.Record.Domain),
		logger.String("winner", string(outcome.Winner)),
		logger.String("label", string(outcome.Record.Label)),
		logger.String("brand", outcome.Record.IdentifiedBrand))
	return outcome.Record, nil
}
