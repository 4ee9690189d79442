package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/suggester/internal/auth"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/linkrec"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// GetLinkRecommendation handles GET /api/v1/link-recommendations/:title.
func (h *Handler) GetLinkRecommendation(c *gin.Context) {
	ctx := c.Request.Context()
	title := c.Param("title")

	taskType, err := h.linkTaskType(ctx, c.Query("taskTypeId"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorBody(CodeNoTaskType, "info", err.Error()))
		return
	}

	rec, err := h.deps.Recommendations.Get(ctx, title, taskType)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"recommendation": rec})
	case errors.Is(err, linkrec.ErrAllLinksPruned):
		c.JSON(http.StatusOK, gin.H{"recommendation": rec, "warning": WarningAllLinksPruned})
	case errors.Is(err, linkrec.ErrNoRecommendation):
		c.JSON(http.StatusNotFound, errorBody(CodeNoRecommendation, "title", title))
	default:
		h.internalError(c, "failed to load link recommendation", err)
	}
}

// feedbackRequest lists targets by what the editor did with them.
type feedbackRequest struct {
	RevisionID int64    `json:"revisionId"`
	Accepted   []string `json:"accepted"`
	Rejected   []string `json:"rejected"`
	Skipped    []string `json:"skipped"`
}

// RecordFeedback handles POST /api/v1/link-recommendations/:title/feedback.
// Accepted and rejected targets are excluded from later recommendations for
// the page.
func (h *Handler) RecordFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	if userID == "" {
		notLoggedIn(c)
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badValue(c, "body")
		return
	}
	if len(req.Accepted)+len(req.Rejected)+len(req.Skipped) == 0 {
		missingParam(c, "accepted")
		return
	}

	title := c.Param("title")
	taskType, err := h.linkTaskType(ctx, c.Query("taskTypeId"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorBody(CodeNoTaskType, "info", err.Error()))
		return
	}

	rec, err := h.deps.StoredRecommendations.Get(ctx, title, taskType)
	if err != nil && !errors.Is(err, linkrec.ErrAllLinksPruned) {
		if errors.Is(err, linkrec.ErrNoRecommendation) {
			c.JSON(http.StatusNotFound, errorBody(CodeNoRecommendation, "title", title))
			return
		}
		h.internalError(c, "failed to load link recommendation", err)
		return
	}

	if req.RevisionID != 0 && req.RevisionID != rec.RevisionID {
		badValue(c, "revisionId")
		return
	}

	links := make(map[string]domain.LinkRecommendationLink, len(rec.Links))
	for _, l := range rec.Links {
		links[domain.NormalizeTitle(l.Target)] = l
	}

	var subs []domain.LinkSubmission
	groups := []struct {
		outcome domain.SubmissionOutcome
		targets []string
	}{
		{domain.OutcomeAccepted, req.Accepted},
		{domain.OutcomeRejected, req.Rejected},
		{domain.OutcomeSkipped, req.Skipped},
	}
	for _, g := range groups {
		outcome := g.outcome
		for _, target := range g.targets {
			link, ok := links[domain.NormalizeTitle(target)]
			if !ok {
				badValue(c, string(outcome))
				return
			}
			subs = append(subs, domain.LinkSubmission{
				PageID:       rec.PageID,
				RevisionID:   rec.RevisionID,
				UserID:       userID,
				Target:       link.Target,
				TargetPageID: link.TargetPageID,
				Outcome:      outcome,
			})
		}
	}

	if err := h.deps.Submissions.InsertSubmissions(ctx, subs); err != nil {
		h.internalError(c, "failed to record feedback", err)
		return
	}

	h.log.Info("Recorded link feedback",
		logger.Title(rec.Title),
		logger.RevisionID(rec.RevisionID),
		logger.Int("submissions", len(subs)),
	)
	c.JSON(http.StatusOK, gin.H{"recorded": len(subs)})
}
