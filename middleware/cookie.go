package middleware

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"

	"github.com/Dosada05/association-portal/gateway"
)

const (
	cookieName = "portal_session"
	cookieTTL  = 30 * 24 * 60 * 60

	keyClientID     = "client_id"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// CookieStore keeps a client instance's id and tokens in one signed and
// encrypted cookie.
type CookieStore struct {
	store *sessions.CookieStore
}

// NewCookieStore derives the signing and encryption keys from secret with
// HKDF, so one configured secret serves both purposes.
func NewCookieStore(secret string, secure bool) (*CookieStore, error) {
	hashKey, err := deriveKey(secret, "portal cookie signing", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, "portal cookie encryption", 32)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieTTL,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieStore{store: store}, nil
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive cookie key: %w", err)
	}
	return key, nil
}

// get never fails: an unreadable cookie (rotated secret, tampering) is
// replaced by a fresh one.
func (c *CookieStore) get(r *http.Request) *sessions.Session {
	// on a decode error Get still returns a fresh session, cached for the
	// rest of the request
	s, _ := c.store.Get(r, cookieName)
	if s == nil {
		opts := *c.store.Options
		s = sessions.NewSession(c.store, cookieName)
		s.Options = &opts
		s.IsNew = true
	}
	return s
}

// Client returns the client instance id and tokens the request carries,
// empty when it has no readable cookie.
func (c *CookieStore) Client(r *http.Request) (string, gateway.Tokens) {
	s := c.get(r)
	id, _ := s.Values[keyClientID].(string)
	access, _ := s.Values[keyAccessToken].(string)
	refresh, _ := s.Values[keyRefreshToken].(string)
	return id, gateway.Tokens{AccessToken: access, RefreshToken: refresh}
}

// SaveClient writes id and tokens if they differ from what the request
// carried.
func (c *CookieStore) SaveClient(w http.ResponseWriter, r *http.Request, id string, t gateway.Tokens) error {
	s := c.get(r)
	curID, _ := s.Values[keyClientID].(string)
	access, _ := s.Values[keyAccessToken].(string)
	refresh, _ := s.Values[keyRefreshToken].(string)
	if curID == id && access == t.AccessToken && refresh == t.RefreshToken {
		return nil
	}
	s.Values[keyClientID] = id
	s.Values[keyAccessToken] = t.AccessToken
	s.Values[keyRefreshToken] = t.RefreshToken
	return s.Save(r, w)
}

// AddNotice queues a one-time notice for the next page.
func (c *CookieStore) AddNotice(w http.ResponseWriter, r *http.Request, notice string) error {
	s := c.get(r)
	s.AddFlash(notice)
	return s.Save(r, w)
}

// PopNotice returns and clears the queued notice, "" when there is none.
func (c *CookieStore) PopNotice(w http.ResponseWriter, r *http.Request) string {
	s := c.get(r)
	flashes := s.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	_ = s.Save(r, w)
	notice, _ := flashes[len(flashes)-1].(string)
	return notice
}
