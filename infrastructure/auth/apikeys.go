// Package auth implements spec.md §6's two HTTP authentication schemes: a
// static API key gating verification submission/status/report, and a bearer
// token (an HMAC-signed JWT, mirroring the teacher's gateway JWT idiom)
// gating the listing endpoints. API-key lookups (hits and misses) are cached
// in infrastructure/cache.TokenCache, keyed by the key's SHA-256 hash, so
// repeated calls with the same key do not re-scan the key table; the key is
// still hashed on every call, and bearer tokens are not cached.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verifyengine/core/infrastructure/cache"
	"github.com/verifyengine/core/infrastructure/config"
)

// KeyStore resolves a presented API key to the user id it was issued for.
type KeyStore interface {
	Lookup(keyHash string) (userID string, ok bool)
}

// StaticKeyStore holds the fixed key set configured via API_KEYS. spec.md
// treats API key issuance and admin key management as out of core scope —
// a static, config-driven key set is the simplest façade satisfying "API
// keys gate inbound verification submission".
type StaticKeyStore struct {
	byHash map[string]string
}

// NewStaticKeyStoreFromConfig parses cfg.APIKeys, a comma-separated list of
// "key:user_id" pairs, into a hash-keyed lookup table.
func NewStaticKeyStoreFromConfig(cfg config.Config) *StaticKeyStore {
	store := &StaticKeyStore{byHash: make(map[string]string)}
	for _, pair := range config.SplitAndTrimCSV(cfg.APIKeys) {
		key, userID, ok := strings.Cut(pair, ":")
		if !ok || key == "" || userID == "" {
			continue
		}
		store.byHash[HashKey(key)] = userID
	}
	return store
}

func (s *StaticKeyStore) Lookup(keyHash string) (string, bool) {
	userID, ok := s.byHash[keyHash]
	return userID, ok
}

// HashKey hashes a presented credential before it touches a cache or log
// line, mirroring the teacher gateway's hashToken helper.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// APIKeyAuthenticator validates the X-API-Key header against a KeyStore,
// caching hits and misses in a TokenCache keyed by key hash.
type APIKeyAuthenticator struct {
	store KeyStore
	cache *cache.TokenCache
	ttl   time.Duration
}

func NewAPIKeyAuthenticator(store KeyStore, ttl time.Duration) *APIKeyAuthenticator {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &APIKeyAuthenticator{
		store: store,
		cache: cache.NewTokenCache(cache.CacheConfig{DefaultTTL: ttl}),
		ttl:   ttl,
	}
}

// Authenticate returns the user id the presented key belongs to, or ok=false
// if the key is unknown.
func (a *APIKeyAuthenticator) Authenticate(presentedKey string) (userID string, ok bool) {
	if presentedKey == "" {
		return "", false
	}
	keyHash := HashKey(presentedKey)

	if cached, hit := a.cache.GetToken(keyHash); hit {
		userID, _ := cached.(string)
		return userID, userID != ""
	}

	userID, ok = a.store.Lookup(keyHash)
	if !ok {
		// Cache the miss too (as an empty string) so a retry storm against an
		// invalid key still hits the cache instead of the key table.
		a.cache.SetToken(keyHash, "", a.ttl)
		return "", false
	}
	a.cache.SetToken(keyHash, userID, a.ttl)
	return userID, true
}

// BearerAuthenticator validates an Authorization: Bearer <token> header as an
// HMAC-signed JWT, the same scheme the teacher gateway issues session tokens
// with (golang-jwt/jwt/v5, HS256), generalized to this engine's SecretKey and
// ACCESS_TOKEN_EXPIRE_MINUTES configuration.
type BearerAuthenticator struct {
	secret []byte
}

func NewBearerAuthenticator(secretKey string) *BearerAuthenticator {
	return &BearerAuthenticator{secret: []byte(secretKey)}
}

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken mints a bearer token for userID valid for ttl, used by
// administrative tooling outside this engine's HTTP surface (spec.md treats
// token issuance as out of core scope for the façade itself).
func (a *BearerAuthenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(a.secret)
}

// Authenticate validates a bearer token and returns the user id it was
// issued to.
func (a *BearerAuthenticator) Authenticate(tokenString string) (userID string, ok bool) {
	if tokenString == "" {
		return "", false
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", false
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserID == "" {
		return "", false
	}
	return c.UserID, true
}
