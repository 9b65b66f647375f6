package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
)

// RandomTokenGenerator returns URL-safe random strings of Size bytes.
type RandomTokenGenerator struct {
	Size int
}

func (g RandomTokenGenerator) NewToken() (string, error) {
	size := g.Size
	if size <= 0 {
		size = 32
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: entropy read failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FeedTokens derives the export feed token of a property as a keyed BLAKE2b
// hash, so tokens need no storage and rotate with the secret.
type FeedTokens struct {
	key []byte
}

const feedTokenSize = 16

// NewFeedTokens keys the hash with secret. An empty secret gets a random key,
// which makes every token change on restart.
func NewFeedTokens(secret string) (*FeedTokens, error) {
	if secret == "" {
		random, err := RandomTokenGenerator{Size: blake2b.Size256}.NewToken()
		if err != nil {
			return nil, err
		}
		secret = random
	}
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &FeedTokens{key: key}, nil
}

func (t *FeedTokens) Token(tenantID, propertyID string) string {
	h, err := blake2b.New(feedTokenSize, t.key)
	if err != nil {
		panic(errors.New("security: feed token key too long"))
	}
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(propertyID))
	return hex.EncodeToString(h.Sum(nil))
}

func (t *FeedTokens) Verify(tenantID, propertyID, token string) bool {
	want := t.Token(tenantID, propertyID)
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

var _ policies.FeedTokens = (*FeedTokens)(nil)
