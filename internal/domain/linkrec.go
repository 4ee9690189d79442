package domain

import "time"

// LinkRecommendation is the stored set of suggested links for one page,
// valid only for RevisionID.
type LinkRecommendation struct {
	Title      string                     `json:"title"`
	PageID     int64                      `json:"page_id"`
	RevisionID int64                      `json:"revision_id"`
	Links      []LinkRecommendationLink   `json:"links"`
	Metadata   LinkRecommendationMetadata `json:"metadata"`
}

// LinkRecommendationLink is one suggested link.
type LinkRecommendationLink struct {
	Text               string  `json:"text"`
	Target             string  `json:"target"`
	TargetPageID       int64   `json:"target_page_id"`
	TargetInboundLinks int     `json:"target_inbound_links"`
	TargetLength       int     `json:"target_length"`
	Score              float64 `json:"score"`
	ContextBefore      string  `json:"context_before"`
	ContextAfter       string  `json:"context_after"`
	// Instance is the 0-based occurrence of Text within the page.
	Instance int `json:"instance"`
	// Offset is the rune offset of the occurrence in the page text.
	Offset int `json:"offset"`
	// LinkIndex is the ordinal position among the page's suggested links.
	LinkIndex int `json:"link_index"`
}

// LinkRecommendationMetadata describes how a recommendation was produced.
type LinkRecommendationMetadata struct {
	ApplicationVersion string    `json:"application_version"`
	CandidateCount     int       `json:"candidate_count"`
	Diagnostics        []string  `json:"diagnostics"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// LinkTargets returns the link targets in order.
func (r *LinkRecommendation) LinkTargets() []string {
	targets := make([]string, len(r.Links))
	for i, l := range r.Links {
		targets[i] = l.Target
	}
	return targets
}

// WithLinks returns a copy of r carrying links. r is left untouched.
func (r *LinkRecommendation) WithLinks(links []LinkRecommendationLink) *LinkRecommendation {
	out := *r
	out.Links = links
	out.Metadata.Diagnostics = append([]string(nil), r.Metadata.Diagnostics...)
	return &out
}

// NotGoodCause is the reason a candidate page was rejected.
type NotGoodCause string

const (
	CauseMinimumTimeDidNotPass NotGoodCause = "minimum_time_did_not_pass"
	CauseExcludedTemplate      NotGoodCause = "excluded_template"
	CauseExcludedCategory      NotGoodCause = "excluded_category"
	CauseWrongNamespace        NotGoodCause = "wrong_namespace"
	CauseRedirect              NotGoodCause = "redirect"
	CauseDisambiguation        NotGoodCause = "disambiguation"
	CauseAlreadyStored         NotGoodCause = "already_stored"
	CauseNotEnoughLinks        NotGoodCause = "not_enough_links"
)

// AllCauses lists every rejection cause.
func AllCauses() []NotGoodCause {
	return []NotGoodCause{
		CauseMinimumTimeDidNotPass,
		CauseExcludedTemplate,
		CauseExcludedCategory,
		CauseWrongNamespace,
		CauseRedirect,
		CauseDisambiguation,
		CauseAlreadyStored,
		CauseNotEnoughLinks,
	}
}

// EvalStatus is the outcome of evaluating a candidate page. Exactly one of
// Cause and Recommendation is set.
type EvalStatus struct {
	Cause          NotGoodCause        `json:"cause,omitempty"`
	Recommendation *LinkRecommendation `json:"recommendation,omitempty"`
	Detail         string              `json:"detail,omitempty"`
}

// Good builds a success status.
func Good(rec *LinkRecommendation) EvalStatus {
	return EvalStatus{Recommendation: rec}
}

// NotGood builds a rejection status.
func NotGood(cause NotGoodCause, detail string) EvalStatus {
	return EvalStatus{Cause: cause, Detail: detail}
}

// IsGood reports whether the candidate was accepted.
func (s EvalStatus) IsGood() bool {
	return s.Cause == ""
}

// SubmissionOutcome is what the editor did with a suggested link.
type SubmissionOutcome string

const (
	OutcomeAccepted SubmissionOutcome = "accepted"
	OutcomeRejected SubmissionOutcome = "rejected"
	OutcomeSkipped  SubmissionOutcome = "skipped"
)

// LinkSubmission records editor feedback on one suggested link.
type LinkSubmission struct {
	PageID       int64             `db:"page_id"        json:"page_id"`
	RevisionID   int64             `db:"revision_id"    json:"revision_id"`
	UserID       string            `db:"user_id"        json:"user_id"`
	Target       string            `db:"target"         json:"target"`
	TargetPageID int64             `db:"target_page_id" json:"target_page_id"`
	Outcome      SubmissionOutcome `db:"outcome"        json:"outcome"`
}
