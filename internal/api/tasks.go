package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/suggester/internal/auth"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/suggester"
)

// splitList parses a comma or pipe separated query value.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '|' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// intQuery reads an optional integer parameter. ok is false after an error
// response has been written.
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badInteger(c, name)
		return 0, false
	}
	return n, true
}

func boolQuery(c *gin.Context, name string, fallback bool) bool {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// ListTasks handles GET /api/v1/tasks.
func (h *Handler) ListTasks(c *gin.Context) {
	limit, ok := intQuery(c, "limit", suggester.DefaultLimit)
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		return
	}

	mode := domain.TopicsMatchMode(strings.ToUpper(c.DefaultQuery("topicsMode", string(domain.TopicsMatchOR))))
	if mode != domain.TopicsMatchOR && mode != domain.TopicsMatchAND {
		badValue(c, "topicsMode")
		return
	}

	filters := domain.TaskSetFilters{
		TaskTypeIDs:     splitList(c.Query("taskTypes")),
		TopicIDs:        splitList(c.Query("topics")),
		TopicsMatchMode: mode,
	}
	opts := suggester.Options{
		Limit:    limit,
		Offset:   offset,
		UseCache: boolQuery(c, "useCache", true),
		Debug:    boolQuery(c, "debug", false),
	}

	set, err := h.deps.Suggester.Suggest(c.Request.Context(), auth.UserID(c), filters, opts)
	if err != nil {
		if suggester.IsSuggesterError(err) {
			h.log.Warn("Task suggester unavailable", logger.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": CodeUnavailable})
			return
		}
		h.internalError(c, "failed to suggest tasks", err)
		return
	}

	c.JSON(http.StatusOK, set)
}

// ListTaskTypes handles GET /api/v1/task-types. A configuration error yields
// an empty list and the error text.
func (h *Handler) ListTaskTypes(c *gin.Context) {
	taskTypes, err := h.deps.Config.TaskTypes(c.Request.Context())
	if err != nil {
		h.log.Warn("Serving empty task type list", logger.Error(err))
		c.JSON(http.StatusOK, gin.H{"taskTypes": []domain.TaskType{}, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"taskTypes": taskTypes})
}

// ListTopics handles GET /api/v1/topics.
func (h *Handler) ListTopics(c *gin.Context) {
	topics, err := h.deps.Config.Topics(c.Request.Context())
	if err != nil {
		h.log.Warn("Serving empty topic list", logger.Error(err))
		c.JSON(http.StatusOK, gin.H{"topics": []domain.Topic{}, "error": err.Error()})
		return
	}
	if topics == nil {
		topics = []domain.Topic{}
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}
