// Package chat runs follow-up interviews with a single persona after a
// simulation, keeping the persona consistent with its recorded reaction.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/llm"
	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

// HistoryLimit is how many earlier messages are replayed to the model.
const HistoryLimit = 10

var ErrEmptyMessage = errors.New("message is empty")

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore keeps conversation messages in arrival order.
type HistoryStore interface {
	AppendMessage(ctx context.Context, conversationID string, msg Message) error
	// History returns at most limit of the most recent messages, oldest first.
	History(ctx context.Context, conversationID string, limit int) ([]Message, error)
}

// Session identifies the persona being interviewed and what it said during
// the simulation.
type Session struct {
	ConversationID  string
	Persona         persona.Persona
	IdeaText        string
	InitialResponse string
	Score           int
}

type Service struct {
	llm     llm.Gateway
	history HistoryStore
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(gateway llm.Gateway, history HistoryStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{llm: gateway, history: history, logger: logger, now: time.Now}
}

// Reply answers message in character. Both sides of the exchange are recorded
// only once the reply succeeds, so history never holds an unanswered turn.
func (s *Service) Reply(ctx context.Context, sess Session, message string) (string, error) {
	req, err := s.prepare(ctx, sess, message)
	if err != nil {
		return "", err
	}

	out, err := s.llm.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("persona reply: %w", err)
	}
	out = strings.TrimSpace(out)

	if err := s.recordExchange(ctx, sess.ConversationID, req.User, out); err != nil {
		return "", err
	}
	return out, nil
}

// Stream is Reply delivered in fragments. The exchange is recorded once the
// stream finishes without error.
func (s *Service) Stream(ctx context.Context, sess Session, message string) (<-chan string, <-chan error) {
	fragments := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(fragments)

		req, err := s.prepare(ctx, sess, message)
		if err != nil {
			errs <- err
			return
		}

		in, inErrs := s.llm.Stream(ctx, req)
		var full strings.Builder
		for f := range in {
			full.WriteString(f)
			select {
			case fragments <- f:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := <-inErrs; err != nil {
			errs <- fmt.Errorf("persona reply: %w", err)
			return
		}

		if err := s.recordExchange(ctx, sess.ConversationID, req.User, strings.TrimSpace(full.String())); err != nil {
			errs <- err
		}
	}()

	return fragments, errs
}

// prepare validates message and builds the request from stored history.
func (s *Service) prepare(ctx context.Context, sess Session, message string) (llm.Request, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return llm.Request{}, ErrEmptyMessage
	}

	past, err := s.history.History(ctx, sess.ConversationID, HistoryLimit)
	if err != nil {
		return llm.Request{}, fmt.Errorf("load history: %w", err)
	}

	history := make([]llm.Message, 0, len(past))
	for _, m := range past {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	s.logger.Debug("persona chat turn",
		zap.String("conversation_id", sess.ConversationID),
		zap.String("persona_id", sess.Persona.ID),
		zap.Int("history", len(history)))

	return llm.Request{
		System:      SystemPrompt(sess),
		User:        message,
		History:     history,
		Temperature: 0.7,
		MaxTokens:   300,
	}, nil
}

func (s *Service) recordExchange(ctx context.Context, conversationID, question, answer string) error {
	if err := s.record(ctx, conversationID, llm.RoleUser, question); err != nil {
		return err
	}
	return s.record(ctx, conversationID, llm.RoleAssistant, answer)
}

func (s *Service) record(ctx context.Context, conversationID, role, content string) error {
	err := s.history.AppendMessage(ctx, conversationID, Message{
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save %s message: %w", role, err)
	}
	return nil
}

func SystemPrompt(sess Session) string {
	return fmt.Sprintf(`You are participating in a consumer research follow-up interview. You must stay in character as the following persona:

%s

PRODUCT/IDEA CONTEXT:
"%s"

YOUR INITIAL REACTION:
You were asked about your purchase intent for this product. You responded: "%s"
You rated your purchase intent as %d/5.

INSTRUCTIONS:
- Answer follow-up questions naturally from this persona's perspective
- Stay consistent with your initial reaction and rating
- Consider your demographic background and life circumstances
- Be authentic and conversational, not robotic
- If asked to change your mind, respond realistically based on your persona's values and situation
- Keep responses concise (2-4 sentences unless asked for more detail)`,
		persona.FormatProfile(sess.Persona.Attributes), sess.IdeaText, sess.InitialResponse, sess.Score)
}
