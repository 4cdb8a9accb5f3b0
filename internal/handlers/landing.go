package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/healthmate/server/pkg/utils"
)

type landingSection struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	HowItWorks  []string `json:"howItWorks"`
}

var landingPage = fiber.Map{
	"name":    "HealthMate",
	"tagline": "Where Health Diagnosis Meets Technology",
	"intro": "Prioritising your health and managing medical records should not be a hassle. " +
		"HealthMate gives you a symptom checker with medication advice and a place to keep and read your medical records.",
	"sections": []landingSection{
		{
			Title:       "Symptom Checker and Medication Advisor",
			Description: "Describe how you feel and the assistant suggests what the symptoms could mean.",
			Features: []string{
				"24/7 symptom analysis",
				"Personalised medication and remedy suggestions",
				"Practical lifestyle tips",
			},
			HowItWorks: []string{
				"Log in and start a consultation.",
				"Describe your symptoms.",
				"Receive a likely diagnosis and next steps.",
			},
		},
		{
			Title:       "Medical Record Reader and Organizer",
			Description: "Upload your medical records and read them back whenever you need them.",
			Features: []string{
				"Uploads stored per account",
				"Text extraction from PDF records",
			},
			HowItWorks: []string{
				"Upload a PDF record.",
				"Find it in your list of records.",
				"Open it to read the extracted text.",
			},
		},
	},
}

func Landing(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, landingPage)
}
