package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/healthmate/server/internal/session"
	"github.com/healthmate/server/pkg/logger"
)

// Completer sends one prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const assistantGreeting = "Welcome, How can I help you with the diagnosis today..??"

const systemInstruction = `Your name is "CuraBot". You act as a doctor: from the symptoms the user describes you work out the most likely disease, or short list of diseases, and tell the user plainly what they are suffering from.

Your role:
1) Identify the particular disease or diseases that match the symptoms given.
2) Explain the condition to the user and the measures they should take.
3) Where appropriate, suggest medication for the symptoms they report.

Points to remember:
1) Talk with the user the way a fellow doctor would and answer their questions properly.
2) The conversation does not have to stay on symptoms and diagnosis alone; keep it natural and human.
3) If the conversation drifts far away from medicine and healthcare, or the user is abusive, tell them the content is abusive or vulgar and that such messages are not tolerated.
4) Never use the sentence "You should consult a doctor for further diagnosis"; you are the doctor here.

Follow these points on every reply and stay consistent.
Start with a greeting such as "` + assistantGreeting + `"

The previous chat is provided below. If it is empty, the session has just started: greet the user and wait for their response.`

// AssistantService is the gateway to the hosted model.
type AssistantService struct {
	Model      Completer
	Timeout    time.Duration
	SingleTurn bool
}

func NewAssistantService(model Completer, timeout time.Duration, singleTurn bool) *AssistantService {
	return &AssistantService{Model: model, Timeout: timeout, SingleTurn: singleTurn}
}

// BuildPrompt renders the instruction followed by the conversation, one "role: content" line per turn.
// In single-turn mode only the most recent user turn is included.
func BuildPrompt(transcript []session.Turn, singleTurn bool) string {
	var sb strings.Builder
	sb.WriteString(systemInstruction)
	sb.WriteString("\nPrevious Chat : ")

	turns := transcript
	if singleTurn {
		turns = nil
		if last, ok := session.LastUserTurn(transcript); ok {
			turns = []session.Turn{last}
		}
	}

	for _, turn := range turns {
		sb.WriteString("\n")
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
	}
	return sb.String()
}

// Ask requests the next assistant reply for transcript, which must end with the user's new turn.
func (s *AssistantService) Ask(ctx context.Context, transcript []session.Turn) (string, error) {
	if s.Model == nil {
		return "", fmt.Errorf("%w: no model configured", ErrGateway)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.Model.Complete(ctx, BuildPrompt(transcript, s.SingleTurn))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("assistant_timeout", map[string]interface{}{
				"timeout": s.Timeout.String(),
			})
			return "", fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
		}
		logger.Error("assistant_call_failed", err, nil)
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGateway)
	}

	logger.Info("assistant_reply", map[string]interface{}{
		"turns":       len(transcript),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return reply, nil
}
