package utils

import "github.com/gofiber/fiber/v2"

// Success writes the {success: true, data} envelope every HealthMate endpoint answers with.
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// Error writes {success: false, error}. message is shown to the patient as-is, so it must
// never carry internal details such as storage keys or driver errors.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
