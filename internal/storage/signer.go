package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer issues time-limited URLs for medical record attachments. The
// object store itself is external; only path signing lives here, so a
// record response can carry a URL the client can use without holding
// storage credentials.
type Signer struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewSigner(baseURL, secret string, ttlSeconds int) *Signer {
	if ttlSeconds <= 0 {
		ttlSeconds = 900
	}
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     time.Duration(ttlSeconds) * time.Second,
		now:     time.Now,
	}
}

// SignedURL returns baseURL/path?expires=<unix>&sig=<hmac>.
func (s *Signer) SignedURL(path string) string {
	expires := s.now().Add(s.ttl).Unix()
	return fmt.Sprintf("%s/%s?expires=%d&sig=%s",
		s.baseURL, strings.TrimLeft(path, "/"), expires, s.sign(path, expires))
}

// Verify checks the signature and that the URL has not expired.
func (s *Signer) Verify(path string, expires int64, sig string) bool {
	if s.now().Unix() > expires {
		return false
	}
	expected := s.sign(path, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.TrimLeft(path, "/")))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
