package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type PaginationParams struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewPagination normalizes page and limit: page starts at 1, limit falls back to 20 and is capped at 100.
func NewPagination(page, limit int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return PaginationParams{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// ParsePagination reads ?page= and ?limit= from the request.
func ParsePagination(c *fiber.Ctx) PaginationParams {
	return NewPagination(
		parseIntDefault(c.Query("page"), 1),
		parseIntDefault(c.Query("limit"), defaultPageLimit),
	)
}

func ApplyPagination(db *gorm.DB, p PaginationParams) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.Limit)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
