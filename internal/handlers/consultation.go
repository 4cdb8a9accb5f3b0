package handlers

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/healthmate/server/internal/middleware"
	"github.com/healthmate/server/internal/services"
	"github.com/healthmate/server/internal/session"
	"github.com/healthmate/server/pkg/logger"
	"github.com/healthmate/server/pkg/utils"
)

const maxMessageLength = 4000

type ConsultationHandler struct {
	Assistant *services.AssistantService
	Sessions  session.Store
}

func NewConsultationHandler(assistant *services.AssistantService, sessions session.Store) *ConsultationHandler {
	return &ConsultationHandler{Assistant: assistant, Sessions: sessions}
}

func (h *ConsultationHandler) Transcript(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"displayName": sess.DisplayName(),
		"transcript":  sess.Transcript,
	})
}

type messageRequest struct {
	Message string `json:"message"`
}

// SendMessage forwards the conversation plus the new message to the assistant. The transcript
// only grows when the assistant answered.
func (h *ConsultationHandler) SendMessage(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return utils.Error(c, fiber.StatusBadRequest, "message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return utils.Error(c, fiber.StatusBadRequest, "message is too long")
	}

	userTurn := session.NewTurn(session.RoleUser, message)
	candidate := make([]session.Turn, 0, len(sess.Transcript)+1)
	candidate = append(candidate, sess.Transcript...)
	candidate = append(candidate, userTurn)

	reply, err := h.Assistant.Ask(c.UserContext(), candidate)
	if err != nil {
		logger.WarnWithUser(userIDString(sess.UserID), "consultation_reply_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return respondServiceError(c, err, "consultation_reply_failed")
	}

	updated, err := h.Sessions.Append(c.UserContext(), sess.ID, userTurn, session.NewTurn(session.RoleAssistant, reply))
	if err != nil {
		return respondServiceError(c, err, "transcript_append_failed")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"reply":      reply,
		"transcript": updated.Transcript,
	})
}
