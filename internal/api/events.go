package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/suggester/internal/ingress"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

type pageChangedRequest struct {
	Kind       string `json:"kind"`
	PageID     int64  `json:"pageId"`
	Title      string `json:"title"`
	RevisionID int64  `json:"revisionId"`
}

// PageChanged handles POST /api/v1/events/page-changed. With a stream
// publisher the change is queued; otherwise subscribers run inline.
func (h *Handler) PageChanged(c *gin.Context) {
	var req pageChangedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badValue(c, "body")
		return
	}

	kind := ingress.ChangeKind(req.Kind)
	if kind != ingress.ChangeEdited && kind != ingress.ChangeDeleted {
		badValue(c, "kind")
		return
	}
	if req.Title == "" {
		missingParam(c, "title")
		return
	}
	if kind == ingress.ChangeEdited && req.PageID == 0 {
		missingParam(c, "pageId")
		return
	}

	change := ingress.PageChange{Kind: kind, PageID: req.PageID, Title: req.Title, RevisionID: req.RevisionID}
	ctx := c.Request.Context()

	if h.deps.Publisher != nil {
		id, err := h.deps.Publisher.Publish(ctx, ingress.ToEvent(change))
		if err != nil {
			h.internalError(c, "failed to publish page change", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true, "streamId": id})
		return
	}

	if h.deps.Notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "page change handling is disabled", "code": CodeUnavailable})
		return
	}

	h.deps.Notifier.Notify(ctx, change)
	h.log.Debug("Handled page change inline", logger.Title(change.Title), logger.String("kind", req.Kind))
	c.JSON(http.StatusOK, gin.H{"queued": false})
}

// TriggerRefresh handles POST /api/v1/maintenance/refresh.
func (h *Handler) TriggerRefresh(c *gin.Context) {
	if h.deps.Refresh == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "maintenance is disabled", "code": CodeUnavailable})
		return
	}
	if !h.deps.Refresh.Trigger() {
		c.JSON(http.StatusConflict, errorBody(CodeBusy))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"started": true})
}
