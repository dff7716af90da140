// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/pipeline"
	"github.com/researchd/researchd/pkg/errors"
	"github.com/researchd/researchd/pkg/idgen"
	"github.com/researchd/researchd/pkg/logger"
)

// Conductor is the research entry point the handlers drive.
type Conductor interface {
	// Run executes a research request to completion and returns the
	// final report text and its citations.
	Run(ctx context.Context, query string) (string, []string, error)

	// Stream runs a research request on a worker and returns its
	// ordered progress updates. The channel closes after the terminal
	// update.
	Stream(ctx context.Context, query string) <-chan pipeline.Update
}

// ResearchHandler serves the research endpoints.
type ResearchHandler struct {
	conductor Conductor
}

// NewResearchHandler creates a research handler.
func NewResearchHandler(conductor Conductor) *ResearchHandler {
	return &ResearchHandler{conductor: conductor}
}

// EvaluateRequest is the POST /evaluate body.
type EvaluateRequest struct {
	Query string `json:"query"`
	IID   string `json:"iid"`
}

// EvaluateResponse is the POST /evaluate reply.
type EvaluateResponse struct {
	QueryID           string `json:"query_id"`
	GeneratedResponse string `json:"generated_response"`
}

// Evaluate runs a research request synchronously and returns the final
// report keyed by the caller's correlation id.
func (h *ResearchHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.ErrValidation("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.IID) == "" {
		_ = c.Error(errors.ErrValidation("query and iid are required"))
		return
	}

	logger.Info("Evaluation request received",
		zap.String("iid", req.IID),
		zap.String("query", req.Query))

	report, _, err := h.conductor.Run(c.Request.Context(), req.Query)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, EvaluateResponse{
		QueryID:           req.IID,
		GeneratedResponse: report,
	})
}

// RunRequest is the POST /run body.
type RunRequest struct {
	Question string `json:"question"`
}

// Run streams research progress as Server-Sent Events. Each event's
// data payload is one progress update; the stream ends after the
// update with complete=true.
func (h *ResearchHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		_ = c.Error(errors.ErrValidation("question is required"))
		return
	}

	queryID := idgen.NewQueryID()
	logger.Info("Streaming research request received",
		zap.String("query_id", queryID),
		zap.String("question", req.Question))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events := h.conductor.Stream(c.Request.Context(), req.Question)
	c.Stream(func(w io.Writer) bool {
		update, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent("message", update)
		return !update.Complete
	})
}
