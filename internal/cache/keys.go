package cache

import "strings"

const (
	GlobalKeyPrefix = "quizly"
)

// GenerateCacheKey joins prefix, service, object type and identifier with ":".
// Extra params are joined by "_" and appended as a final segment.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return baseKey + ":" + strings.Join(paramsKey, "_")
	}
	return baseKey
}

// RevokedTokenKey is where the blacklist entry of a refresh token lives.
func RevokedTokenKey(jti string) string {
	return GenerateCacheKey("auth", "revoked", jti)
}
