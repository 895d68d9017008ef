package api

import (
	"github.com/jonesrussell/phishguard/internal/modelclient"
	"github.com/jonesrussell/phishguard/internal/verdict"
)

// Verdict vocabulary returned to clients.
const (
	VerdictSafe         = "safe"
	VerdictSuspicious   = "suspicious"
	VerdictDangerous    = "dangerous"
	StatusNeedsAnalysis = "needs_analysis"
)

// CheckURLRequest represents a fast pre-check request.
type CheckURLRequest struct {
	URL    string `json:"url" binding:"required"`
	Domain string `json:"domain"`
}

// CheckURLResponse represents a fast pre-check response.
type CheckURLResponse struct {
	Status      string `json:"status"` // safe, dangerous, needs_analysis
	Reason      string `json:"reason,omitempty"`
	InTrustList bool   `json:"in_trust_list"`
	InBlockList bool   `json:"in_block_list"`
}

// AnalyzeRequest represents a full screenshot analysis request.
type AnalyzeRequest struct {
	URL              string `json:"url" binding:"required"`
	Domain           string `json:"domain"`
	ScreenshotBase64 string `json:"screenshot_base64" binding:"required"`
	UserEvent        string `json:"user_event,omitempty"`
}

// Reason is one structured explanation supporting a verdict.
type Reason struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

// SuggestedAction tells the client what to offer the user.
type SuggestedAction struct {
	Action      string `json:"action"` // leave, report, continue
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// AnalyzeResponse represents a full analysis response.
type AnalyzeResponse struct {
	Verdict          string            `json:"verdict"` // safe, suspicious, dangerous
	Confidence       float64           `json:"confidence"`
	Reasons          []Reason          `json:"reasons"`
	Explanation      string            `json:"explanation"`
	IdentifiedBrand  string            `json:"identified_brand,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
	Timestamp        string            `json:"timestamp"`
}

// FeedbackRequest represents user feedback on a verdict.
type FeedbackRequest struct {
	URL              string  `json:"url" binding:"required"`
	Verdict          string  `json:"verdict" binding:"required"`
	UserFeedback     string  `json:"user_feedback" binding:"required,oneof=correct incorrect"`
	CorrectedVerdict *string `json:"corrected_verdict,omitempty"`
}

// TrustedRequest adds a host to the personal trust cache.
type TrustedRequest struct {
	URL string `json:"url" binding:"required"`
}

// TrustedListResponse lists the personal trust cache, oldest first.
type TrustedListResponse struct {
	Hosts []string `json:"hosts"`
	Total int      `json:"total"`
}

// StatsResponse represents aggregate service statistics.
type StatsResponse struct {
	VerdictCounts  map[string]int             `json:"verdict_counts"`
	TrustListSize  int                        `json:"trust_list_size"`
	BlockListSize  int                        `json:"block_list_size"`
	PersonalSize   int                        `json:"personal_size"`
	UptimeSeconds  float64                    `json:"uptime_seconds"`
	ServiceVersion string                     `json:"service_version"`
	ModelBackend   *modelclient.BackendHealth `json:"model_backend,omitempty"`
}

// mapLabelToVerdict converts a pipeline label to the client verdict
// vocabulary. Anything that is neither clearly benign nor clearly
// phishing reads as suspicious.
func mapLabelToVerdict(label verdict.Label) string {
	switch label {
	case verdict.LabelBenign:
		return VerdictSafe
	case verdict.LabelPhishing:
		return VerdictDangerous
	default:
		return VerdictSuspicious
	}
}

// suggestedActions builds the action list for a verdict.
func suggestedActions(v string, inPersonal bool) []SuggestedAction {
	switch v {
	case VerdictDangerous:
		return []SuggestedAction{
			{Action: "leave", Label: "Leave Site", Description: "Close this page immediately to protect your information"},
			{Action: "report", Label: "Report Phishing", Description: "Help others by reporting this suspicious site"},
		}
	case VerdictSuspicious:
		return []SuggestedAction{
			{Action: "leave", Label: "Leave Site (Recommended)", Description: "This site shows suspicious characteristics"},
			{Action: "continue", Label: "Continue Anyway", Description: "Proceed with caution if you trust this site"},
			{Action: "report", Label: "Report Issue", Description: "Report if you believe this is a false positive"},
		}
	default:
		actions := []SuggestedAction{
			{Action: "continue", Label: "Continue", Description: "This site appears to be legitimate"},
		}
		if !inPersonal {
			actions = append(actions, SuggestedAction{
				Action: "report", Label: "Report False Positive",
				Description: "Report if you believe this assessment is incorrect",
			})
		}
		return actions
	}
}

// buildReasons converts a record's flags and free-text reasons into the
// structured reason list.
func buildReasons(rec *verdict.Record) []Reason {
	detail := rec.Reasons
	if detail == "" {
		detail = "No specific reasons provided"
	}

	code, label := "analysis_result", "Brand Analysis"
	if rec.InGlobalTrustList {
		code, label = "trust_list", "Trusted Domain"
	}
	reasons := []Reason{{Code: code, Label: label, Detail: detail}}

	if rec.InPersonalTrustList {
		reasons = append(reasons, Reason{
			Code: "personal_trust", Label: "Personal Trust",
			Detail: "Domain previously marked as safe by user",
		})
	}
	if rec.InBlockList {
		reasons = append(reasons, Reason{
			Code: "block_list", Label: "Known Threat",
			Detail: "URL found in block list of known malicious sites",
		})
	}
	return reasons
}
