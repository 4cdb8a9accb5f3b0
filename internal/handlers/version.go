package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/healthmate/server/pkg/utils"
)

// Version is the HealthMate server build, injected at build time:
//
//	go build -ldflags "-X github.com/healthmate/server/internal/handlers.Version=1.2.3"
var Version = "dev"

const apiVersion = "v1"

// AssistantEnabled is false when the server runs without a model key; chat then answers 502.
type versionResponse struct {
	Version          string `json:"version"`
	APIVersion       string `json:"apiVersion"`
	AssistantModel   string `json:"assistantModel"`
	AssistantEnabled bool   `json:"assistantEnabled"`
}

// NewVersionHandler reports the build and which model CuraBot talks to.
func NewVersionHandler(assistantModel string) fiber.Handler {
	resp := versionResponse{
		Version:          Version,
		APIVersion:       apiVersion,
		AssistantModel:   assistantModel,
		AssistantEnabled: assistantModel != "",
	}
	return func(c *fiber.Ctx) error {
		return utils.Success(c, fiber.StatusOK, resp)
	}
}
