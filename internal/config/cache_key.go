package config

import "fmt"

type CacheKeyStruct struct{}

// CacheKey groups Redis key builders so call sites read as
// config.CacheKey.UserSessionKey(...).
var CacheKey = CacheKeyStruct{}

// UserSessionKey returns the cache key for a user's login session.
func (CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}
