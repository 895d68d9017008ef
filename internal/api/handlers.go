// Package api provides the HTTP surface of the phishguard service.
package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/phishguard/internal/canonical"
	"github.com/jonesrussell/phishguard/internal/logger"
	"github.com/jonesrussell/phishguard/internal/modelclient"
	"github.com/jonesrussell/phishguard/internal/storage"
	"github.com/jonesrussell/phishguard/internal/verdict"
)

// Evaluator runs a full URL evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, rawURL string, screenshot []byte) (*verdict.Record, error)
}

// ListProvider answers membership and readiness questions for a bulk list.
type ListProvider interface {
	Contains(rawURL string) bool
	Ready() bool
	Len() int
}

// PersonalCache is the bounded personal trust cache surface the API needs.
type PersonalCache interface {
	Add(rawURL string) error
	Remove(rawURL string) error
	Contains(rawURL string) bool
	All() []string
	Len() int
}

// FeedbackStore persists user feedback on verdicts.
type FeedbackStore interface {
	Create(ctx context.Context, fb *storage.Feedback) error
	Recent(ctx context.Context, limit int) ([]storage.Feedback, error)
	CountsByVerdict(ctx context.Context) (map[string]int, error)
}

// BackendProber reports health of the local model backend.
type BackendProber interface {
	CheckHealth(ctx context.Context) modelclient.BackendHealth
}

// Handler handles HTTP requests for the phishguard API.
type Handler struct {
	evaluator Evaluator
	trustList ListProvider
	blockList ListProvider
	personal  PersonalCache
	feedback  FeedbackStore
	prober    BackendProber
	log       logger.Logger

	version   string
	startedAt time.Time
}

// NewHandler creates a new API handler.
func NewHandler(
	evaluator Evaluator,
	trustList, blockList ListProvider,
	personal PersonalCache,
	feedback FeedbackStore,
	prober BackendProber,
	version string,
	log logger.Logger,
) *Handler {
	return &Handler{
		evaluator: evaluator,
		trustList: trustList,
		blockList: blockList,
		personal:  personal,
		feedback:  feedback,
		prober:    prober,
		log:       log,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadyCheck handles GET /ready. The service is ready once both bulk
// lists have a snapshot serving lookups.
func (h *Handler) ReadyCheck(c *gin.Context) {
	trustReady := h.trustList.Ready()
	blockReady := h.blockList.Ready()

	status := http.StatusOK
	if !trustReady || !blockReady {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"trust_list_ready": trustReady,
		"block_list_ready": blockReady,
	})
}

// CheckURL handles POST /api/v1/check-url: the fast pre-check that only
// consults the lists, never the models. The check order mirrors the
// evaluation pipeline so the two endpoints never disagree.
func (h *Handler) CheckURL(c *gin.Context) {
	var req CheckURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.log.Debug("pre-checking URL", logger.String("domain", canonical.Host(req.URL)))

	if h.trustList.Contains(req.URL) {
		c.JSON(http.StatusOK, CheckURLResponse{
			Status:      VerdictSafe,
			Reason:      "Domain found in global trust list of popular sites",
			InTrustList: true,
		})
		return
	}

	if h.blockList.Contains(req.URL) {
		c.JSON(http.StatusOK, CheckURLResponse{
			Status:      VerdictDangerous,
			Reason:      "URL found in block list of known malicious sites",
			InBlockList: true,
		})
		return
	}

	if h.personal.Contains(req.URL) {
		c.JSON(http.StatusOK, CheckURLResponse{
			Status:      VerdictSafe,
			Reason:      "Domain previously marked as safe by user",
			InTrustList: true,
		})
		return
	}

	c.JSON(http.StatusOK, CheckURLResponse{
		Status: StatusNeedsAnalysis,
		Reason: "URL not found in any list, requires full analysis",
	})
}

// Analyze handles POST /api/v1/analyze: the full screenshot evaluation.
func (h *Handler) Analyze(c *gin.Context) {
	start := time.Now()

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	screenshot, err := base64.StdEncoding.DecodeString(req.ScreenshotBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 screenshot"})
		return
	}

	h.log.Info("analyzing screenshot",
		logger.String("domain", canonical.Host(req.URL)),
		logger.Int("screenshot_bytes", len(screenshot)),
		logger.String("client_id", c.GetHeader("X-Client-ID")))

	rec, err := h.evaluator.Evaluate(c.Request.Context(), req.URL, screenshot)
	if err != nil {
		// Details stay in the log; clients get a generic failure.
		h.log.Error("analysis failed",
			logger.String("domain", canonical.Host(req.URL)),
			logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	v := mapLabelToVerdict(rec.Label)
	confidence := 0.0
	if rec.Confidence != nil {
		confidence = *rec.Confidence
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Verdict:          v,
		Confidence:       confidence,
		Reasons:          buildReasons(rec),
		Explanation:      rec.Reasons,
		IdentifiedBrand:  rec.IdentifiedBrand,
		SuggestedActions: suggestedActions(v, rec.InPersonalTrustList),
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	})
}

// SubmitFeedback handles POST /api/v1/feedback. A correction to "safe"
// also adds the host to the personal trust cache; a correction to
// "dangerous" removes it.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fb := &storage.Feedback{
		URL:              req.URL,
		Domain:           canonical.Host(req.URL),
		Verdict:          req.Verdict,
		UserFeedback:     req.UserFeedback,
		CorrectedVerdict: req.CorrectedVerdict,
		ClientID:         c.GetHeader("X-Client-ID"),
	}
	if err := h.feedback.Create(c.Request.Context(), fb); err != nil {
		h.log.Error("failed to store feedback", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store feedback"})
		return
	}

	if req.CorrectedVerdict != nil {
		switch *req.CorrectedVerdict {
		case VerdictSafe:
			if err := h.personal.Add(req.URL); err != nil {
				h.log.Warn("failed to add trusted host from feedback", logger.Error(err))
			}
		case VerdictDangerous:
			if err := h.personal.Remove(req.URL); err != nil {
				h.log.Warn("failed to remove trusted host from feedback", logger.Error(err))
			}
		}
	}

	h.log.Info("feedback stored",
		logger.String("domain", fb.Domain),
		logger.String("verdict", fb.Verdict),
		logger.String("user_feedback", fb.UserFeedback))

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Feedback received, thank you!"})
}

// ListFeedback handles GET /api/v1/feedback?limit=...
func (h *Handler) ListFeedback(c *gin.Context) {
	limit := parseLimit(c, "limit", 50)

	records, err := h.feedback.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("failed to list feedback", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list feedback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": records, "total": len(records)})
}

// ListTrusted handles GET /api/v1/trusted.
func (h *Handler) ListTrusted(c *gin.Context) {
	hosts := h.personal.All()
	c.JSON(http.StatusOK, TrustedListResponse{Hosts: hosts, Total: len(hosts)})
}

// AddTrusted handles POST /api/v1/trusted.
func (h *Handler) AddTrusted(c *gin.Context) {
	var req TrustedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.personal.Add(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "host": canonical.Host(req.URL)})
}

// RemoveTrusted handles DELETE /api/v1/trusted?url=...
func (h *Handler) RemoveTrusted(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	if err := h.personal.Remove(rawURL); err != nil {
		h.log.Error("failed to remove trusted host", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove trusted host"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(c *gin.Context) {
	counts, err := h.feedback.CountsByVerdict(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load stats", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	resp := StatsResponse{
		VerdictCounts:  counts,
		TrustListSize:  h.trustList.Len(),
		BlockListSize:  h.blockList.Len(),
		PersonalSize:   h.personal.Len(),
		UptimeSeconds:  time.Since(h.startedAt).Seconds(),
		ServiceVersion: h.version,
	}
	if h.prober != nil {
		health := h.prober.CheckHealth(c.Request.Context())
		resp.ModelBackend = &health
	}
	c.JSON(http.StatusOK, resp)
}

// parseLimit reads an integer query parameter with a default.
func parseLimit(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
