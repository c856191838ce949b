package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/monitoring"
	"github.com/nexis-chat/nexis/gateway/pkg/safego"
	"go.uber.org/zap"
)

// Mention that summons the assistant into a room conversation.
const aiMention = "@ai"

const responderTimeout = 60 * time.Second

// AIResponder posts assistant replies when a room message mentions the
// assistant. Replies are generated off the request path.
type AIResponder struct {
	registry *llm.Registry
	member   string
	model    string
	logger   *zap.Logger
}

// NewAIResponder creates a responder speaking as the given member id.
func NewAIResponder(registry *llm.Registry, member, model string, logger *zap.Logger) *AIResponder {
	return &AIResponder{
		registry: registry,
		member:   member,
		model:    model,
		logger:   logger.With(zap.String("component", "ai-responder")),
	}
}

// shouldReply filters out non-mentions and the assistant's own messages.
func (r *AIResponder) shouldReply(sender, text string) bool {
	if sender == r.member {
		return false
	}
	return strings.Contains(text, aiMention)
}

// reply generates a completion for the prompt and posts it to the room
// through post. Failures are logged and counted, never surfaced to the
// original sender.
func (r *AIResponder) reply(chat *ChatService, roomID, replyTo, prompt string) {
	safego.Go(r.logger, "ai-responder", func() {
		ctx, cancel := context.WithTimeout(context.Background(), responderTimeout)
		defer cancel()

		provider, err := r.registry.Default()
		if err != nil {
			r.logger.Warn("No provider for assistant reply", zap.Error(err))
			return
		}

		start := time.Now()
		monitoring.AIRequestsTotal.WithLabelValues(provider.Name()).Inc()
		resp, err := provider.Generate(ctx, &llm.GenerateRequest{
			Prompt: strings.TrimSpace(strings.ReplaceAll(prompt, aiMention, "")),
			Model:  r.model,
		})
		monitoring.AILatency.WithLabelValues(provider.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			monitoring.AIErrors.WithLabelValues(provider.Name(), "generate").Inc()
			r.logger.Error("Assistant generation failed",
				zap.String("room_id", roomID),
				zap.Error(err),
			)
			return
		}
		if resp.Content == "" {
			return
		}

		if _, err := chat.SendMessage(ctx, roomID, r.member, resp.Content, replyTo); err != nil {
			r.logger.Error("Failed to post assistant reply",
				zap.String("room_id", roomID),
				zap.Error(err),
			)
		}
	})
}
