package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "revoked:session:"

// Revocations remembers logged-out session tokens until they would have
// expired anyway. A nil client makes every call a no-op, in which case
// logout is purely client-side.
type Revocations struct {
	client *redis.Client
}

func NewRevocations(c *redis.Client) *Revocations {
	return &Revocations{client: c}
}

// Enabled reports whether revocations are persisted.
func (r *Revocations) Enabled() bool {
	return r != nil && r.client != nil
}

// Revoke stores the token for ttl. Non-positive ttls are ignored since the
// token is already unusable.
func (r *Revocations) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if !r.Enabled() || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, key(token), "1", ttl).Err()
}

// IsRevoked returns true when the token was revoked and has not yet expired.
func (r *Revocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	if !r.Enabled() {
		return false, nil
	}
	n, err := r.client.Exists(ctx, key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// tokens are hashed so raw credentials never sit in redis
func key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedPrefix + hex.EncodeToString(sum[:])
}
