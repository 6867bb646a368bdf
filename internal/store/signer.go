package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ArtifactRoute is the API path prefix that serves signed artifact links.
const ArtifactRoute = "/artifacts/"

var (
	ErrLinkExpired   = errors.New("store: link expired")
	ErrLinkSignature = errors.New("store: bad link signature")
)

// Signer issues and verifies expiring HMAC-signed download links.
type Signer struct {
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewSigner creates a Signer for links rooted at baseURL.
func NewSigner(baseURL, secret string) *Signer {
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		now:     time.Now,
	}
}

// Sign returns a link to key that stays valid for ttl.
func (s *Signer) Sign(key string, ttl time.Duration) string {
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.mac(key, expires))
	return s.baseURL + ArtifactRoute + escapeKey(key) + "?" + q.Encode()
}

// Verify checks the expires/sig pair presented for key.
func (s *Signer) Verify(key, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrLinkSignature
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(key, exp))) {
		return ErrLinkSignature
	}
	if s.now().Unix() > exp {
		return ErrLinkExpired
	}
	return nil
}

func (s *Signer) mac(key string, expires int64) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
