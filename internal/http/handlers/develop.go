package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/requestdata"
	"github.com/normscout/normscout-backend/internal/services"
	"github.com/normscout/normscout-backend/internal/sse"
)

// DevelopHandler exposes the intake dialogue and the analysis trigger.
type DevelopHandler struct {
	log          *logger.Logger
	conversation services.ConversationService
	analysis     services.AnalysisService
}

func NewDevelopHandler(log *logger.Logger, conversation services.ConversationService, analysis services.AnalysisService) *DevelopHandler {
	return &DevelopHandler{
		log:          log.With("handler", "DevelopHandler"),
		conversation: conversation,
		analysis:     analysis,
	}
}

type startRequest struct {
	InitialInput string `json:"initial_input"`
}

func (h *DevelopHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.conversation.Start(c.Request.Context(), requestdata.UserID(c.Request.Context()), req.InitialInput)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

type respondRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (h *DevelopHandler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.conversation.Respond(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *DevelopHandler) GetSession(c *gin.Context) {
	session, err := h.conversation.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type analyzeRequest struct {
	SessionID string `json:"session_id"`
}

// Analyze finalizes the session's product summary and runs norm matching.
// With ?stream=1 (or Accept: text/event-stream) progress goes out as SSE
// events; otherwise the call blocks and answers with the full result.
func (h *DevelopHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	session, err := h.conversation.Finalize(ctx, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	userID := requestdata.UserID(ctx)

	if wantsEventStream(c) {
		h.analyzeStream(c, userID, session.SessionID, session.ProductSummary)
		return
	}

	run, err := h.analysis.Run(ctx, userID, session.SessionID, "", session.ProductSummary, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":              run.RunID,
		"product_description": run.ProductSummary,
		"norms":               run.MatchedResults,
		"total_norms":         len(run.MatchedResults),
		"results":             run.Results,
	})
}

func (h *DevelopHandler) analyzeStream(c *gin.Context, userID, sessionID, productSummary string) {
	stream, err := sse.NewStream(h.log, c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	defer stream.Close()

	stream.Send("start", gin.H{"session_id": sessionID, "product_description": productSummary})

	run, runErr := h.analysis.Run(c.Request.Context(), userID, sessionID, "", productSummary, func(p services.MatchProgress) {
		stream.Send("progress", p)
	})
	if runErr != nil {
		event := "error"
		if errors.Is(runErr, context.Canceled) {
			event = "canceled"
		}
		payload := gin.H{"error": runErr.Error()}
		if run != nil {
			payload["run_id"] = run.RunID
			payload["completed"] = len(run.Results)
		}
		stream.Send(event, payload)
		return
	}

	stream.Send("complete", gin.H{
		"run_id":              run.RunID,
		"product_description": run.ProductSummary,
		"norms":               run.MatchedResults,
		"total_norms":         len(run.MatchedResults),
	})
}
