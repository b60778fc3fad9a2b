package cache

import (
	"context"
	"time"
)

// SentCache records delivered follow-ups so the webhook plane can answer
// "did this call already get its message" without touching postgres.
type SentCache interface {
	StoreSent(ctx context.Context, callSID string, sentAt time.Time) error
}
