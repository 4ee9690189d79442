// Package api exposes the suggester over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/suggester/internal/completion"
	"github.com/jonesrussell/north-cloud/suggester/internal/configloader"
	"github.com/jonesrussell/north-cloud/suggester/internal/domain"
	"github.com/jonesrussell/north-cloud/suggester/internal/events"
	"github.com/jonesrussell/north-cloud/suggester/internal/ingress"
	"github.com/jonesrussell/north-cloud/suggester/internal/linkrec"
	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
	"github.com/jonesrussell/north-cloud/suggester/internal/suggester"
)

// Error codes returned in {"error": {"code": ...}} bodies.
const (
	CodeNotLoggedIn      = "notloggedin"
	CodeMissingParam     = "missingparam"
	CodeBadInteger       = "badinteger"
	CodeBadValue         = "badvalue"
	CodeNoRecommendation = "norecommendation"
	CodeNoTaskType       = "notasktype"
	CodeInternal         = "internal"
	CodeUnavailable      = "suggester_unavailable"
	CodeBusy             = "busy"
)

// WarningAllLinksPruned is set on a recommendation response whose links were
// all removed at read time.
const WarningAllLinksPruned = "all_links_pruned"

var errNoLinkTaskType = errors.New("no link recommendation task type configured")

// SubmissionStore records link feedback.
type SubmissionStore interface {
	InsertSubmissions(ctx context.Context, subs []domain.LinkSubmission) error
}

// Completer records finished tasks.
type Completer interface {
	Complete(ctx context.Context, userID, taskTypeID string, revisionID int64) (*completion.Result, error)
}

// CacheInvalidator drops a user's cached task set.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// EventPublisher puts page events on the stream.
type EventPublisher interface {
	Publish(ctx context.Context, event events.PageEvent) (string, error)
}

// ChangeNotifier delivers page changes synchronously.
type ChangeNotifier interface {
	Notify(ctx context.Context, change ingress.PageChange)
}

// RefreshTrigger starts a maintenance run.
type RefreshTrigger interface {
	Trigger() bool
}

// Deps are the collaborators of Handler. Optional ones may be nil.
type Deps struct {
	Suggester suggester.TaskSuggester
	Config    configloader.Provider
	// Recommendations serves pruned recommendations.
	Recommendations linkrec.Provider
	// StoredRecommendations serves unpruned recommendations for feedback.
	StoredRecommendations linkrec.Provider
	Submissions           SubmissionStore
	Completions           Completer
	Cache                 CacheInvalidator
	Publisher             EventPublisher
	Notifier              ChangeNotifier
	Refresh               RefreshTrigger
	Logger                logger.Logger
}

// Handler implements the HTTP endpoints.
type Handler struct {
	deps Deps
	log  logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	if deps.StoredRecommendations == nil {
		deps.StoredRecommendations = deps.Recommendations
	}
	return &Handler{deps: deps, log: log}
}

func errorBody(code string, extra ...any) gin.H {
	body := gin.H{"code": code}
	for i := 0; i+1 < len(extra); i += 2 {
		if key, ok := extra[i].(string); ok {
			body[key] = extra[i+1]
		}
	}
	return gin.H{"error": body}
}

func missingParam(c *gin.Context, name string) {
	c.JSON(http.StatusBadRequest, errorBody(CodeMissingParam, "name", name))
}

func badInteger(c *gin.Context, name string) {
	c.JSON(http.StatusBadRequest, errorBody(CodeBadInteger, "name", name))
}

func badValue(c *gin.Context, name string) {
	c.JSON(http.StatusBadRequest, errorBody(CodeBadValue, "name", name))
}

func notLoggedIn(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, errorBody(CodeNotLoggedIn))
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.log.Error(msg, logger.String("path", c.FullPath()), logger.Error(err))
	c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "info", msg))
}

// linkTaskType returns the task type named id, or the first configured
// link-recommendation type when id is empty.
func (h *Handler) linkTaskType(ctx context.Context, id string) (domain.TaskType, error) {
	taskTypes, err := h.deps.Config.TaskTypes(ctx)
	if err != nil {
		return domain.TaskType{}, err
	}
	for _, t := range taskTypes {
		if t.Handler != domain.HandlerLinkRecommendation {
			continue
		}
		if id == "" || t.ID == id {
			return t, nil
		}
	}
	return domain.TaskType{}, errNoLinkTaskType
}
