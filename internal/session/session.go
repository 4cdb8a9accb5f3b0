// Package session holds per-login consultation state: who is signed in and the running
// transcript with the assistant. Nothing here is written to the relational database.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// WelcomeMessage opens every new transcript.
const WelcomeMessage = "Welcome !! Start listing your symptoms and get the accurate diagnosis"

var (
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrInvalidTurn     = errors.New("invalid transcript turn")
)

type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type Identity struct {
	UserID    uint
	FirstName string
	LastName  string
	Email     string
}

type Context struct {
	ID         string    `json:"id"`
	UserID     uint      `json:"userID"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Transcript []Turn    `json:"transcript"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Store persists Contexts between requests. Append must apply all turns in order or none.
type Store interface {
	Create(ctx context.Context, identity Identity) (*Context, error)
	Get(ctx context.Context, id string) (*Context, error)
	Append(ctx context.Context, id string, turns ...Turn) (*Context, error)
	Destroy(ctx context.Context, id string) error
}

func (c *Context) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// LastUserTurn returns the most recent user turn in turns, if any.
func LastUserTurn(turns []Turn) (Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return turns[i], true
		}
	}
	return Turn{}, false
}

func (c *Context) expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

func (c *Context) clone() *Context {
	cp := *c
	cp.Transcript = append([]Turn(nil), c.Transcript...)
	return &cp
}

func newContext(identity Identity, ttl time.Duration, now time.Time) *Context {
	return &Context{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		Transcript: []Turn{
			{Role: RoleAssistant, Content: WelcomeMessage, At: now},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// NewTurn stamps a turn with the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content, At: time.Now().UTC()}
}

func validateTurns(turns []Turn, now time.Time) ([]Turn, error) {
	out := make([]Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			return nil, ErrInvalidTurn
		}
		if strings.TrimSpace(turn.Content) == "" {
			return nil, ErrInvalidTurn
		}
		if turn.At.IsZero() {
			turn.At = now
		}
		out = append(out, turn)
	}
	return out, nil
}
