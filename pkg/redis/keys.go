package redis

import "strings"

const keyNamespace = "sf"

// Keyspace builds "sf:<kind>:<parts...>" keys. Empty parts are dropped so
// optional scopes never leave a dangling separator.
type Keyspace struct{}

func (Keyspace) key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.key("idempotency", scope, id)
}

// CartCountKey holds the projected number of cart lines for a user.
func (k Keyspace) CartCountKey(userID string) string {
	return k.key("cart_count", userID)
}

func (k Keyspace) LockKey(name string) string {
	return k.key("lock", name)
}

func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.key("session", "access", accessID)
}

func (k Keyspace) RateLimitKey(scope string) string {
	return k.key("rate_limit", scope)
}
