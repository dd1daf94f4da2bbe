// Package api exposes simulations, persona cohorts and persona chat over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/chat"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
	"github.com/BerylCAtieno/synthsense-agent/internal/simulation"
	"github.com/BerylCAtieno/synthsense-agent/internal/store"
)

type Handler struct {
	simulator  *simulation.Simulator
	cohorts    *persona.Generator
	chat       *chat.Service
	store      store.Store
	cohortSize int
	logger     *zap.Logger
}

func NewHandler(simulator *simulation.Simulator, cohorts *persona.Generator, chatService *chat.Service, st store.Store, cohortSize int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		simulator:  simulator,
		cohorts:    cohorts,
		chat:       chatService,
		store:      st,
		cohortSize: cohortSize,
		logger:     logger,
	}
}

// Register mounts the /api routes on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/simulations", h.CreateSimulation)
	api.GET("/simulations/:id", h.GetSimulation)
	api.POST("/personas/cohorts", h.CreateCohort)
	api.GET("/personas/cohorts/:id", h.GetCohort)
	api.POST("/chat/:experiment_id/:persona_id", h.Chat)
	api.GET("/chat-stream/:experiment_id/:persona_id", h.ChatStream)
}

type simulationRequest struct {
	ExperimentID string            `json:"experiment_id"`
	IdeaText     string            `json:"idea_text"`
	Personas     []persona.Persona `json:"personas"`
}

type cohortRequest struct {
	Audience string `json:"audience_description"`
	Group    string `json:"persona_group"`
	Total    int    `json:"total_personas"`
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	PersonaID      string `json:"persona_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
}

type streamChunk struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
	IsFinal        bool   `json:"is_final"`
	Error          string `json:"error,omitempty"`
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// CreateSimulation runs a simulation synchronously and stores the result.
func (h *Handler) CreateSimulation(c *gin.Context) {
	var req simulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.IdeaText) == "" {
		errorJSON(c, http.StatusBadRequest, "idea_text is required")
		return
	}
	if len(req.Personas) == 0 {
		errorJSON(c, http.StatusBadRequest, "at least one persona is required")
		return
	}
	if req.ExperimentID == "" {
		req.ExperimentID = uuid.NewString()
	}
	for i := range req.Personas {
		if req.Personas[i].ID == "" {
			req.Personas[i].ID = uuid.NewString()
		}
	}

	ctx := c.Request.Context()
	result := h.simulator.Run(ctx, req.ExperimentID, req.IdeaText, req.Personas)
	if err := h.store.SaveResult(ctx, result); err != nil {
		h.logger.Error("failed to save result", zap.String("experiment_id", result.ExperimentID), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "failed to save result")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetSimulation(c *gin.Context) {
	result, err := h.store.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupError(c, "experiment", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateCohort generates a persona cohort and stores it under a new job id.
func (h *Handler) CreateCohort(c *gin.Context) {
	var req cohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Audience) == "" {
		errorJSON(c, http.StatusBadRequest, "audience_description is required")
		return
	}
	if req.Total == 0 {
		req.Total = h.cohortSize
	}
	if req.Total < 1 {
		errorJSON(c, http.StatusBadRequest, "total_personas must be positive")
		return
	}

	ctx := c.Request.Context()
	cohort := h.cohorts.Generate(ctx, uuid.NewString(), req.Audience, req.Group, req.Total)
	if err := h.store.SaveCohort(ctx, cohort); err != nil {
		h.logger.Error("failed to save cohort", zap.String("job_id", cohort.JobID), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "failed to save cohort")
		return
	}
	c.JSON(http.StatusOK, cohort)
}

func (h *Handler) GetCohort(c *gin.Context) {
	cohort, err := h.store.Cohort(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupError(c, "cohort", err)
		return
	}
	c.JSON(http.StatusOK, cohort)
}

// Chat answers one follow-up question in character.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, ok := h.session(c, req.ConversationID)
	if !ok {
		return
	}

	reply, err := h.chat.Reply(c.Request.Context(), sess, req.Content)
	if err != nil {
		h.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{
		ConversationID: sess.ConversationID,
		PersonaID:      sess.Persona.ID,
		Role:           "assistant",
		Content:        reply,
	})
}

// ChatStream streams the reply as server-sent "message" events. The last
// event has is_final set and carries any error.
func (h *Handler) ChatStream(c *gin.Context) {
	message := c.Query("message")
	if strings.TrimSpace(message) == "" {
		errorJSON(c, http.StatusBadRequest, chat.ErrEmptyMessage.Error())
		return
	}

	sess, ok := h.session(c, c.Query("conversation_id"))
	if !ok {
		return
	}

	fragments, errs := h.chat.Stream(c.Request.Context(), sess, message)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(io.Writer) bool {
		if f, ok := <-fragments; ok {
			c.SSEvent("message", streamChunk{Content: f, ConversationID: sess.ConversationID})
			return true
		}
		final := streamChunk{ConversationID: sess.ConversationID, IsFinal: true}
		if err := <-errs; err != nil {
			h.logger.Error("chat stream failed", zap.String("conversation_id", sess.ConversationID), zap.Error(err))
			final.Error = err.Error()
		}
		c.SSEvent("message", final)
		return false
	})
}

// session builds a chat session from a stored simulation, writing the error
// response itself when it cannot.
func (h *Handler) session(c *gin.Context, conversationID string) (chat.Session, bool) {
	ctx := c.Request.Context()
	experimentID, personaID := c.Param("experiment_id"), c.Param("persona_id")

	result, err := h.store.Result(ctx, experimentID)
	if err != nil {
		h.lookupError(c, "experiment", err)
		return chat.Session{}, false
	}

	var found *persona.Persona
	for i := range result.Personas {
		if result.Personas[i].ID == personaID {
			found = &result.Personas[i]
			break
		}
	}
	response, responded := result.Response(personaID)
	if found == nil || !responded {
		errorJSON(c, http.StatusNotFound, "persona not found in experiment")
		return chat.Session{}, false
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	return chat.Session{
		ConversationID:  conversationID,
		Persona:         *found,
		IdeaText:        result.IdeaText,
		InitialResponse: response.ResponseText,
		Score:           response.Score,
	}, true
}

func (h *Handler) lookupError(c *gin.Context, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, what+" not found")
		return
	}
	h.logger.Error("store lookup failed", zap.String("kind", what), zap.Error(err))
	errorJSON(c, http.StatusInternalServerError, "failed to load "+what)
}

func (h *Handler) chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		errorJSON(c, http.StatusGatewayTimeout, err.Error())
	default:
		h.logger.Error("chat reply failed", zap.Error(err))
		errorJSON(c, http.StatusBadGateway, "persona reply failed")
	}
}
