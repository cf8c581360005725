package cache

import "fmt"

// Key builds the canonical cache key for an entity lookup,
// e.g. Key("wallet", "user", 42) -> "wallet:user:42".
func Key(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}
