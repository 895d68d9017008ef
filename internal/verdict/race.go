package verdict

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/phishguard/internal/brandjudge"
	"github.com/jonesrussell/phishguard/internal/logger"
	"github.com/jonesrussell/phishguard/internal/telemetry"
)

// Side identifies one of the two verification pipelines.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

// Verifier runs the two model calls one race side needs.
type Verifier interface {
	IdentifyBrand(ctx context.Context, screenshot []byte) (string, error)
	JudgeDomain(ctx context.Context, brand, domain string) (string, error)
}

// RaceOutcome is the result of a verification race. Exactly one side's
// fully-completed record is kept.
type RaceOutcome struct {
	Winner Side
	Record *Record
}

// Coordinator races the local and remote verification pipelines and adopts
// whichever completes first, success or failure. The losing side is
// cancelled and joined before Run returns; its result is discarded.
type Coordinator struct {
	local     Verifier
	remote    Verifier
	log       logger.Logger
	telemetry *telemetry.Provider
}

// NewCoordinator creates a race coordinator over the two verifiers.
func NewCoordinator(local, remote Verifier, log logger.Logger, tp *telemetry.Provider) *Coordinator {
	return &Coordinator{
		local:     local,
		remote:    remote,
		log:       log,
		telemetry: tp,
	}
}

type sideResult struct {
	side   Side
	record *Record
	err    error
}

// Run starts both sides with independent copies of rec and returns the
// first side to complete. If that side failed, its error is the outcome of
// the whole evaluation even though the other side might still have
// succeeded.
func (c *Coordinator) Run(ctx context.Context, rec *Record) (*RaceOutcome, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "verdict.verify")
	defer span.End()

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the losing side never blocks sending its result.
	results := make(chan sideResult, 2)

	start := time.Now()
	go c.runSide(raceCtx, SideLocal, c.local, rec.Clone(), results)
	go c.runSide(raceCtx, SideRemote, c.remote, rec.Clone(), results)

	first := <-results

	// Signal the loser and join it so no goroutine outlives the request.
	// The verifiers honor context cancellation, so this returns promptly.
	cancel()
	<-results

	if first.err != nil {
		c.telemetry.RecordRaceFailure(string(first.side))
		c.log.Warn("verification race failed",
			logger.String("side", string(first.side)),
			logger.Error(first.err))
		return nil, fmt.Errorf("verify (%s): %w", first.side, first.err)
	}

	elapsed := time.Since(start)
	c.telemetry.RecordRaceWin(string(first.side), elapsed)
	c.log.Debug("verification race won",
		logger.String("side", string(first.side)),
		logger.String("label", string(first.record.Label)),
		logger.Duration("elapsed", elapsed))

	return &RaceOutcome{Winner: first.side, Record: first.record}, nil
}

func (c *Coordinator) runSide(ctx context.Context, side Side, v Verifier, rec *Record, results chan<- sideResult) {
	err := c.verify(ctx, v, rec)
	results <- sideResult{side: side, record: rec, err: err}
}

// verify runs one side's pipeline: identify the brand on the screenshot,
// then judge whether that brand plausibly owns the canonical domain.
func (c *Coordinator) verify(ctx context.Context, v Verifier, rec *Record) error {
	brandText, err := v.IdentifyBrand(ctx, rec.Screenshot)
	if err != nil {
		return fmt.Errorf("identify brand: %w", err)
	}
	brand := brandjudge.NormalizeBrand(brandText)
	rec.IdentifiedBrand = brand

	raw, err := v.JudgeDomain(ctx, brand, rec.Domain)
	if err != nil {
		return fmt.Errorf("judge domain: %w", err)
	}

	judgment, err := brandjudge.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse judgment: %w", err)
	}

	if judgment.Match {
		rec.Label = LabelBenign
	} else {
		rec.Label = LabelPhishing
	}
	rec.Reasons = judgment.Explanation
	rec.Confidence = judgment.Confidence
	return nil
}
