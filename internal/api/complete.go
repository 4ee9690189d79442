package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/suggester/internal/auth"
	"github.com/jonesrussell/north-cloud/suggester/internal/completion"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

// completionParams reads taskTypeId and revisionId from a JSON body or a
// form, keeping raw strings so integer errors can be reported per field.
func completionParams(c *gin.Context) (map[string]string, error) {
	params := map[string]string{}

	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		var body map[string]any
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		for k, v := range body {
			if v != nil {
				params[k] = fmt.Sprint(v)
			}
		}
		return params, nil
	}

	for _, name := range []string{"taskTypeId", "revisionId"} {
		if v := c.PostForm(name); v != "" {
			params[name] = v
		}
	}
	return params, nil
}

// CompleteTask handles POST /api/v1/tasks/complete.
func (h *Handler) CompleteTask(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		notLoggedIn(c)
		return
	}

	params, err := completionParams(c)
	if err != nil {
		badValue(c, "body")
		return
	}

	taskTypeID := strings.TrimSpace(params["taskTypeId"])
	if taskTypeID == "" {
		missingParam(c, "taskTypeId")
		return
	}
	rawRevision := strings.TrimSpace(params["revisionId"])
	if rawRevision == "" {
		missingParam(c, "revisionId")
		return
	}
	revisionID, err := strconv.ParseInt(rawRevision, 10, 64)
	if err != nil {
		badInteger(c, "revisionId")
		return
	}

	ctx := c.Request.Context()
	result, err := h.deps.Completions.Complete(ctx, userID, taskTypeID, revisionID)
	if err != nil {
		if errors.Is(err, completion.ErrUnknownTaskType) {
			badValue(c, "taskTypeId")
			return
		}
		h.internalError(c, "failed to record completion", err)
		return
	}

	if h.deps.Cache != nil {
		if cacheErr := h.deps.Cache.Invalidate(ctx, userID); cacheErr != nil {
			h.log.Warn("Failed to invalidate task cache", logger.String("user_id", userID), logger.Error(cacheErr))
		}
	}

	c.JSON(http.StatusOK, result)
}
