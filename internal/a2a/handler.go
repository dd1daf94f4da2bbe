package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/agent"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
	"github.com/BerylCAtieno/synthsense-agent/internal/simulation"
)

// ResultSaver persists finished simulations so they can be fetched and
// chatted about later through the HTTP API.
type ResultSaver interface {
	SaveResult(ctx context.Context, result *simulation.Result) error
}

type Handler struct {
	simulator  *simulation.Simulator
	cohorts    *persona.Generator
	results    ResultSaver
	cohortSize int
	logger     *zap.Logger
	now        func() time.Time
}

// NewHandler builds the A2A handler. cohortSize personas are generated from
// the idea whenever a request brings none of its own.
func NewHandler(simulator *simulation.Simulator, cohorts *persona.Generator, results ResultSaver, cohortSize int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		simulator:  simulator,
		cohorts:    cohorts,
		results:    results,
		cohortSize: cohortSize,
		logger:     logger,
		now:        time.Now,
	}
}

// RequestLogger logs every request once it has been served.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// HandleSimulate processes A2A messages.
func (h *Handler) HandleSimulate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read request body", zap.Error(err))
		h.sendErrorResponse(c, nil, "Failed to read request body", CodeParseError)
		return
	}
	h.logger.Debug("a2a request body", zap.ByteString("body", body))

	var rpcReq JSONRPCRequest
	if err := json.Unmarshal(body, &rpcReq); err != nil || rpcReq.JSONRPC == "" {
		h.logger.Debug("not a JSON-RPC envelope, trying direct message", zap.Error(err))
		h.handleDirectMessage(c, body)
		return
	}

	if rpcReq.JSONRPC != "2.0" {
		h.logger.Warn("invalid JSON-RPC version", zap.String("jsonrpc", rpcReq.JSONRPC))
		h.sendErrorResponse(c, rpcReq.ID, "Invalid JSON-RPC version", CodeInvalidRequest)
		return
	}

	switch rpcReq.Method {
	case "agent/task", "message/send":
		h.handleTask(c, rpcReq)
	default:
		h.logger.Warn("unknown method", zap.String("method", rpcReq.Method))
		h.sendErrorResponse(c, rpcReq.ID, fmt.Sprintf("Method not found: %s", rpcReq.Method), CodeMethodNotFound)
	}
}

// handleDirectMessage accepts a bare MessageParams body without the JSON-RPC
// wrapper.
func (h *Handler) handleDirectMessage(c *gin.Context, body []byte) {
	var params MessageParams
	if err := json.Unmarshal(body, &params); err != nil || len(params.Message.Parts) == 0 {
		h.sendErrorResponse(c, nil, "Invalid request format", CodeParseError)
		return
	}
	h.sendSuccessResponse(c, "direct-message", h.simulate(c.Request.Context(), params.Message))
}

func (h *Handler) handleTask(c *gin.Context, rpcReq JSONRPCRequest) {
	var params MessageParams
	if err := json.Unmarshal(rpcReq.Params, &params); err != nil {
		h.logger.Warn("invalid params", zap.Error(err))
		h.sendErrorResponse(c, rpcReq.ID, "Invalid parameters", CodeInvalidParams)
		return
	}
	h.sendSuccessResponse(c, rpcReq.ID, h.simulate(c.Request.Context(), params.Message))
}

// simulate turns one A2A message into a finished task. The task id doubles
// as the experiment id, so the result can be fetched from the HTTP API.
func (h *Handler) simulate(ctx context.Context, msg Message) TaskResult {
	taskID := msg.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	log := h.logger.With(zap.String("task_id", taskID))

	idea := extractIdea(msg)
	if idea == "" {
		log.Warn("no idea found in message")
		return h.errorTaskResult(taskID, msg.ContextID, "Please provide a product or business idea to simulate.")
	}

	personas, err := extractPersonas(msg)
	if err != nil {
		log.Warn("invalid personas in data part", zap.Error(err))
		return h.errorTaskResult(taskID, msg.ContextID, fmt.Sprintf("Invalid personas: %v", err))
	}

	if len(personas) == 0 {
		log.Info("STATE: generating cohort", zap.Int("count", h.cohortSize))
		cohort := h.cohorts.Generate(ctx, taskID, audienceFor(idea), "", h.cohortSize)
		if cohort.Status != persona.CohortCompleted {
			return h.errorTaskResult(taskID, msg.ContextID, fmt.Sprintf("Failed to generate personas: %s", cohort.ErrorMessage))
		}
		personas = cohort.Personas
	}

	result := h.simulator.Run(ctx, taskID, idea, personas)
	if err := h.results.SaveResult(ctx, result); err != nil {
		log.Error("failed to save result", zap.Error(err))
	}

	if result.Status != simulation.StatusCompleted {
		return h.errorTaskResult(taskID, msg.ContextID, simulation.FormatReport(result))
	}
	return h.successTaskResult(taskID, msg.ContextID, result)
}

// audienceFor describes the cohort to generate when the caller names none.
func audienceFor(idea string) string {
	return fmt.Sprintf("A realistic mix of potential customers who might encounter this product or business idea: %s", idea)
}

// progressMarkers flag agent status lines echoed back in conversation
// history; they are never the user's request.
var progressMarkers = []string{"generating", "creating", "simulating", "running"}

// extractIdea joins the message's text parts. When there are none it falls
// back to the most recent user text in a conversation-history data part.
func extractIdea(msg Message) string {
	var texts []string
	for _, part := range msg.Parts {
		if part.Kind == "text" {
			if text := cleanText(part.Text); text != "" {
				texts = append(texts, text)
			}
		}
	}
	if len(texts) > 0 {
		return strings.Join(texts, " ")
	}

	for _, part := range msg.Parts {
		if part.Kind != "data" || !isJSONArray(part.Data) {
			continue
		}
		var history []MessagePart
		if err := json.Unmarshal(part.Data, &history); err != nil {
			continue
		}
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Kind != "text" {
				continue
			}
			text := cleanText(history[i].Text)
			if text == "" || isProgressLine(text) {
				continue
			}
			return text
		}
	}
	return ""
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "<p>", "")
	text = strings.ReplaceAll(text, "</p>", "")
	return strings.TrimSpace(text)
}

func isProgressLine(text string) bool {
	if strings.Trim(text, ".") == "" {
		return true
	}
	lower := strings.ToLower(text)
	for _, marker := range progressMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// extractPersonas reads {"personas": [...]} from the first data part that is
// a JSON object. Personas without an id are given one.
func extractPersonas(msg Message) ([]persona.Persona, error) {
	for _, part := range msg.Parts {
		if part.Kind != "data" || isJSONArray(part.Data) || len(bytes.TrimSpace(part.Data)) == 0 {
			continue
		}
		var payload struct {
			Personas []persona.Persona `json:"personas"`
		}
		if err := json.Unmarshal(part.Data, &payload); err != nil {
			return nil, err
		}
		for i := range payload.Personas {
			if payload.Personas[i].ID == "" {
				payload.Personas[i].ID = uuid.NewString()
			}
		}
		return payload.Personas, nil
	}
	return nil, nil
}

func isJSONArray(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// ServeAgentCard serves the agent card.
func (h *Handler) ServeAgentCard(c *gin.Context) {
	if err := agent.LoadAgentCard(); err != nil {
		h.logger.Error("error loading agent card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Agent card not available"})
		return
	}
	c.Data(http.StatusOK, "application/json", agent.AgentCardData)
}

func (h *Handler) successTaskResult(taskID, contextID string, result *simulation.Result) TaskResult {
	report := simulation.FormatReport(result)

	artifacts := []Artifact{{
		ArtifactID: uuid.NewString(),
		Name:       "Simulation Report",
		Parts:      []MessagePart{TextPart(report)},
	}}
	if data, err := DataPart(result); err == nil {
		artifacts = append(artifacts, Artifact{
			ArtifactID: uuid.NewString(),
			Name:       "Simulation Result",
			Parts:      []MessagePart{data},
		})
	} else {
		h.logger.Error("failed to encode result artifact", zap.Error(err))
	}

	return TaskResult{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     StateCompleted,
			Timestamp: Timestamp(h.now()),
			Message: &Message{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.NewString(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(report)},
			},
		},
		Artifacts: artifacts,
	}
}

func (h *Handler) errorTaskResult(taskID, contextID, errorMsg string) TaskResult {
	return TaskResult{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     StateFailed,
			Timestamp: Timestamp(h.now()),
			Message: &Message{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.NewString(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(errorMsg)},
			},
		},
	}
}

func (h *Handler) sendSuccessResponse(c *gin.Context, id any, result TaskResult) {
	h.logger.Info("STATE: sending task result",
		zap.String("task_id", result.ID),
		zap.String("state", result.Status.State))
	c.JSON(http.StatusOK, JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

// sendErrorResponse replies with 200 OK, as JSON-RPC errors travel in the body.
func (h *Handler) sendErrorResponse(c *gin.Context, id any, message string, code int) {
	h.logger.Warn("sending JSON-RPC error", zap.Int("code", code), zap.String("message", message))
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
