// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package auth

import (
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// User represents a registered account.
//
// PasswordHash only ever holds a hash once the user has been saved. A new or
// changed password is staged with SetPassword and hashed by Accounts.BeforeSave.
type User struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string
	Age          int
	Avatar       []byte
	Tokens       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	password         string
	passwordModified bool
}

// Profile holds the user-supplied fields for registration.
type Profile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
}

// NewUser creates an unsaved user from a profile. The profile is normalised
// but not validated; validation runs when the user is saved.
func NewUser(p Profile) *User {
	u := &User{
		ID:    ulid.Make(),
		Name:  NormalizeName(p.Name),
		Email: NormalizeEmail(p.Email),
		Age:   p.Age,
	}
	u.SetPassword(p.Password)
	return u
}

// NormalizeName trims surrounding whitespace from a display name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword stages a new plaintext password. It is validated and hashed on
// the next save.
func (u *User) SetPassword(plaintext string) {
	u.password = strings.TrimSpace(plaintext)
	u.passwordModified = true
}

// PasswordModified reports whether a new password is staged.
func (u *User) PasswordModified() bool {
	return u.passwordModified
}

// AddToken appends an active session token.
func (u *User) AddToken(token string) {
	u.Tokens = append(u.Tokens, token)
}

// RemoveToken removes the session token matching token exactly. It reports
// whether anything was removed.
func (u *User) RemoveToken(token string) bool {
	before := len(u.Tokens)
	u.Tokens = slices.DeleteFunc(u.Tokens, func(t string) bool { return t == token })
	return len(u.Tokens) != before
}

// ClearTokens revokes every session.
func (u *User) ClearTokens() {
	u.Tokens = []string{}
}

// HasToken reports whether token is one of the user's active sessions.
func (u *User) HasToken(token string) bool {
	return slices.Contains(u.Tokens, token)
}

// Clone returns a deep copy of u, including any staged password.
func (u *User) Clone() *User {
	c := *u
	c.Tokens = slices.Clone(u.Tokens)
	c.Avatar = slices.Clone(u.Avatar)
	return &c
}

// PublicUser is the representation of a User that crosses the API boundary.
// It never carries the password hash, session tokens or avatar bytes.
type PublicUser struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public returns the API representation of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
