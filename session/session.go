// Package session owns the authenticated identity for the admin area: the
// token set, its expiry, and group-based authorization, persisted locally
// between runs.
package session

import (
	"slices"
	"time"
)

// Session is the authenticated identity. A Session handed to a consumer is
// always fully populated; a missing or partial record is reported as no
// session at all.
type Session struct {
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Groups       []string `json:"groups"`
	AccessToken  string   `json:"accessToken"`
	IDToken      string   `json:"idToken"`
	RefreshToken string   `json:"refreshToken"`

	// ExpiresAt is the access token's expiry as epoch milliseconds. At or
	// past this instant the session is expired regardless of what is
	// still stored.
	ExpiresAt int64 `json:"expiresAt"`
}

// HasGroup reports membership in a named group.
func (s *Session) HasGroup(name string) bool {
	return s != nil && slices.Contains(s.Groups, name)
}

// ExpiredAt reports whether the session is expired at the given instant.
// The boundary counts as expired.
func (s *Session) ExpiredAt(now time.Time) bool {
	return s == nil || s.ExpiresAt <= now.UnixMilli()
}

// valid reports whether the record carries every required field. Username,
// access token, and expiry are the fields a snapshot cannot be trusted
// without.
func (s *Session) valid() bool {
	return s != nil && s.Username != "" && s.AccessToken != "" && s.ExpiresAt != 0
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Groups = slices.Clone(s.Groups)
	return &dup
}
