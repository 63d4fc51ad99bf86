// Package notify delivers account notifications to users.
package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Verification is everything a channel needs to deliver a verification link.
type Verification struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Token  string
	Link   string
}

type Notifier interface {
	SendVerification(ctx context.Context, v Verification) error
}

// VerificationLink builds the frontend URL that completes verification.
func VerificationLink(frontendURL string, userID uuid.UUID, token string) string {
	q := url.Values{}
	q.Set("id", userID.String())
	q.Set("token", token)
	return fmt.Sprintf("%s/verify-email?%s", frontendURL, q.Encode())
}
