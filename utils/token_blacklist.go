package utils

import (
	"sync"
	"time"
)

// Logout revokes JWTs before their natural expiration. Revoked tokens live
// in Redis with a TTL matching the token's remaining lifetime; without Redis
// an in-process map covers single-instance deployments.

const blacklistKeyPrefix = "jwt:blacklist:"

var (
	revokedTokens   = map[string]time.Time{}
	revokedTokensMu sync.RWMutex
)

// BlacklistToken revokes a token until expiresAt.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}

	if rc := GetRedis(); rc != nil {
		ctx, cancel := cacheCtx()
		defer cancel()
		_ = rc.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err()
		return
	}

	revokedTokensMu.Lock()
	revokedTokens[token] = expiresAt
	revokedTokensMu.Unlock()
}

// IsTokenBlacklisted reports whether the token was revoked. A Redis read
// error fails open so an outage does not lock every user out.
func IsTokenBlacklisted(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := cacheCtx()
		defer cancel()
		n, err := rc.Exists(ctx, blacklistKeyPrefix+token).Result()
		return err == nil && n > 0
	}

	revokedTokensMu.RLock()
	expiresAt, ok := revokedTokens[token]
	revokedTokensMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		revokedTokensMu.Lock()
		delete(revokedTokens, token)
		revokedTokensMu.Unlock()
		return false
	}
	return true
}
