package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/healthmate/server/internal/session"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	reply   string
	err     error
	block   bool
	prompts []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func sampleTranscript() []session.Turn {
	return []session.Turn{
		session.NewTurn(session.RoleAssistant, session.WelcomeMessage),
		session.NewTurn(session.RoleUser, "I have a headache"),
		session.NewTurn(session.RoleAssistant, "How long has it lasted?"),
		session.NewTurn(session.RoleUser, "Two days, with fever"),
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Run("full transcript in order", func(t *testing.T) {
		prompt := BuildPrompt(sampleTranscript(), false)

		require.True(t, strings.HasPrefix(prompt, systemInstruction))
		idx := strings.Index(prompt, "Previous Chat : ")
		require.Greater(t, idx, 0)

		history := prompt[idx:]
		lines := []string{
			"assistant: " + session.WelcomeMessage,
			"user: I have a headache",
			"assistant: How long has it lasted?",
			"user: Two days, with fever",
		}
		last := -1
		for _, line := range lines {
			pos := strings.Index(history, line)
			require.Greater(t, pos, last, "expected %q after previous turn", line)
			last = pos
		}
	})

	t.Run("single turn keeps only the latest user message", func(t *testing.T) {
		prompt := BuildPrompt(sampleTranscript(), true)

		require.Contains(t, prompt, "user: Two days, with fever")
		require.NotContains(t, prompt, "I have a headache")
		require.NotContains(t, prompt, "assistant: How long")
	})

	t.Run("instruction keeps the greeting", func(t *testing.T) {
		require.Contains(t, BuildPrompt(nil, false), assistantGreeting)
	})
}

func TestAssistantService_Ask(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the trimmed reply", func(t *testing.T) {
		model := &stubCompleter{reply: "  Likely a viral infection.\n"}
		svc := NewAssistantService(model, time.Second, false)

		reply, err := svc.Ask(ctx, sampleTranscript())
		require.NoError(t, err)
		require.Equal(t, "Likely a viral infection.", reply)
		require.Len(t, model.prompts, 1)
		require.Contains(t, model.prompts[0], "user: Two days, with fever")
	})

	t.Run("model error is a gateway error", func(t *testing.T) {
		svc := NewAssistantService(&stubCompleter{err: errors.New("quota exceeded")}, time.Second, false)

		_, err := svc.Ask(ctx, sampleTranscript())
		require.ErrorIs(t, err, ErrGateway)
		require.NotErrorIs(t, err, ErrGatewayTimeout)
	})

	t.Run("empty completion is a gateway error", func(t *testing.T) {
		svc := NewAssistantService(&stubCompleter{reply: "   "}, time.Second, false)

		_, err := svc.Ask(ctx, sampleTranscript())
		require.ErrorIs(t, err, ErrGateway)
	})

	t.Run("slow model times out", func(t *testing.T) {
		svc := NewAssistantService(&stubCompleter{block: true}, 20*time.Millisecond, false)

		start := time.Now()
		_, err := svc.Ask(ctx, sampleTranscript())
		require.ErrorIs(t, err, ErrGatewayTimeout)
		require.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("missing model is a gateway error", func(t *testing.T) {
		svc := NewAssistantService(nil, time.Second, false)

		_, err := svc.Ask(ctx, sampleTranscript())
		require.ErrorIs(t, err, ErrGateway)
	})
}

func TestReplyText(t *testing.T) {
	require.Equal(t, "", replyText(nil))
	require.Equal(t, "", replyText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("You may have "),
				genai.Blob{MIMEType: "image/png", Data: []byte{1}},
				genai.Text("migraine."),
			}},
		}},
	}
	require.Equal(t, "You may have migraine.", replyText(resp))
}
