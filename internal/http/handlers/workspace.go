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

type WorkspaceHandler struct {
	log          *logger.Logger
	conversation services.ConversationService
	workspace    services.WorkspaceService
	analysis     services.AnalysisService
}

func NewWorkspaceHandler(log *logger.Logger, conversation services.ConversationService, workspace services.WorkspaceService, analysis services.AnalysisService) *WorkspaceHandler {
	return &WorkspaceHandler{
		log:          log.With("handler", "WorkspaceHandler"),
		conversation: conversation,
		workspace:    workspace,
		analysis:     analysis,
	}
}

type createWorkspaceRequest struct {
	SessionID string `json:"session_id"`
}

// Create promotes a finished session into a durable workspace, running the
// analysis first when the session has none yet.
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req createWorkspaceRequest
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

	run, err := h.analysis.Run(ctx, requestdata.UserID(ctx), session.SessionID, "", session.ProductSummary, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	ws, err := h.workspace.PromoteSession(ctx, session, run)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"workspace_id": ws.ID,
		"workspace":    ws,
	})
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	ws, err := h.workspace.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

type updateWorkspaceRequest struct {
	ProductDescription string `json:"product_description"`
}

func (h *WorkspaceHandler) Update(c *gin.Context) {
	var req updateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ws, err := h.workspace.UpdateDescription(c.Request.Context(), c.Param("id"), req.ProductDescription)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (h *WorkspaceHandler) Delete(c *gin.Context) {
	if _, err := h.workspace.Get(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	if err := h.workspace.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	ids, err := h.workspace.ListIDs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace_ids": ids})
}

// Reanalyze reruns matching against the workspace's current description.
func (h *WorkspaceHandler) Reanalyze(c *gin.Context) {
	ctx := c.Request.Context()
	workspaceID := c.Param("id")
	userID := requestdata.UserID(ctx)

	if wantsEventStream(c) {
		h.reanalyzeStream(c, userID, workspaceID)
		return
	}

	ws, err := h.workspace.Reanalyze(ctx, userID, workspaceID, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"workspace":   ws,
		"norms":       ws.MatchedNorms,
		"total_norms": len(ws.MatchedNorms),
	})
}

func (h *WorkspaceHandler) reanalyzeStream(c *gin.Context, userID, workspaceID string) {
	stream, err := sse.NewStream(h.log, c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	defer stream.Close()

	stream.Send("start", gin.H{"workspace_id": workspaceID})

	ws, runErr := h.workspace.Reanalyze(c.Request.Context(), userID, workspaceID, func(p services.MatchProgress) {
		stream.Send("progress", p)
	})
	if runErr != nil {
		event := "error"
		if errors.Is(runErr, context.Canceled) {
			event = "canceled"
		}
		stream.Send(event, gin.H{"error": runErr.Error(), "workspace_id": workspaceID})
		return
	}

	stream.Send("complete", gin.H{
		"workspace_id": ws.ID,
		"norms":        ws.MatchedNorms,
		"total_norms":  len(ws.MatchedNorms),
	})
}
