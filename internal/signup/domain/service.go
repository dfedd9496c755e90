package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Signup(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	UserAgent   string `json:"-"`
	IPAddress   string `json:"-"`
}

type Result struct {
	UserID    string
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}

// Provisioner runs the post-signup side effects: the audit trail row
// and the welcome notification.
type Provisioner interface {
	Provision(ctx context.Context, userID snowflake.ID) error
}

var ErrInvalidRequest = errors.New("invalid signup request")
