// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskforge/taskforge/internal/apperr"
	"github.com/taskforge/taskforge/internal/notify"
)

// Notifier sends account notifications. Implementations must not block on
// delivery; failures are theirs to handle.
type Notifier interface {
	Notify(ctx context.Context, kind notify.Kind, email, name string)
}

// AllowedUpdates lists the profile fields a user may change.
var AllowedUpdates = []string{"name", "email", "password", "age"}

// ProfileUpdate holds the fields being changed. Nil fields are left alone.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Age      *int    `json:"age,omitempty"`
}

// ParseProfileUpdate decodes a JSON update document. Any key outside
// AllowedUpdates rejects the whole update.
func ParseProfileUpdate(data []byte) (ProfileUpdate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ProfileUpdate{}, apperr.Validation(CodeInvalidUpdates, "updates", "body must be a JSON object")
	}

	var invalid []string
	for key := range raw {
		if !slices.Contains(AllowedUpdates, key) {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return ProfileUpdate{}, oops.Code(CodeInvalidUpdates).
			In(string(apperr.KindValidation)).
			With(apperr.FieldsKey, map[string]string{"updates": "invalid updates"}).
			With("keys", strings.Join(invalid, ",")).
			Errorf("invalid updates")
	}

	var upd ProfileUpdate
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&upd); err != nil {
		return ProfileUpdate{}, apperr.Validation(CodeInvalidUpdates, "updates", "has a value of the wrong type")
	}
	return upd, nil
}

// Service provides account and session operations.
type Service struct {
	accounts *Accounts
	tokens   TokenIssuer
	notifier Notifier
	logger   *slog.Logger

	dummyHash func() string
}

// NewAuthService creates a new Service using the default logger.
func NewAuthService(accounts *Accounts, tokens TokenIssuer, notifier Notifier) (*Service, error) {
	return NewAuthServiceWithLogger(accounts, tokens, notifier, slog.Default())
}

// NewAuthServiceWithLogger creates a new Service.
func NewAuthServiceWithLogger(accounts *Accounts, tokens TokenIssuer, notifier Notifier, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts store is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	hasher := accounts.hasher
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		// dummyHash is verified against when the email is unknown so that
		// both login failures cost one hash comparison.
		dummyHash: sync.OnceValue(func() string {
			hash, err := hasher.Hash(ulid.Make().String())
			if err != nil {
				return ""
			}
			return hash
		}),
	}, nil
}

// Register creates an account and its first session.
// Returns the saved user and the session token.
func (s *Service) Register(ctx context.Context, profile Profile) (*User, string, error) {
	u := NewUser(profile)

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", oops.With("operation", "issue token").Wrap(err)
	}
	u.AddToken(token)

	if err := s.accounts.Save(ctx, u); err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID.String())
	s.notifier.Notify(ctx, notify.KindWelcome, u.Email, u.Name)
	return u, token, nil
}

// FindByCredentials resolves an email and password to a user. An unknown
// email and a wrong password fail with the same error.
func (s *Service) FindByCredentials(ctx context.Context, email, password string) (*User, error) {
	u, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, oops.With("operation", "find user by email").Wrap(err)
		}
		s.accounts.hasher.Verify(password, s.dummyHash())
		return nil, apperr.AuthenticationFailed(CodeInvalidCredentials)
	}

	if !s.accounts.hasher.Verify(password, u.PasswordHash) {
		return nil, apperr.AuthenticationFailed(CodeInvalidCredentials)
	}
	return u, nil
}

// Login verifies credentials and opens a new session.
// Returns the user and the new session token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	if s.accounts.hasher.NeedsUpgrade(u.PasswordHash) {
		if hash, hashErr := s.accounts.hasher.Hash(password); hashErr == nil {
			u.PasswordHash = hash
		}
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", oops.With("operation", "issue token").Wrap(err)
	}
	u.AddToken(token)

	if err := s.accounts.Save(ctx, u); err != nil {
		return nil, "", oops.With("operation", "persist session").Wrap(err)
	}
	return u, token, nil
}

// Logout revokes a single session of u.
func (s *Service) Logout(ctx context.Context, u *User, token string) error {
	if !u.RemoveToken(token) {
		return nil
	}
	if err := s.accounts.Save(ctx, u); err != nil {
		return oops.With("operation", "revoke session").Wrap(err)
	}
	return nil
}

// LogoutAll revokes every session of u.
func (s *Service) LogoutAll(ctx context.Context, u *User) error {
	u.ClearTokens()
	if err := s.accounts.Save(ctx, u); err != nil {
		return oops.With("operation", "revoke all sessions").Wrap(err)
	}
	return nil
}

// Update applies a profile update. On failure the stored record and u are
// left unchanged; on success the updated user is returned.
func (s *Service) Update(ctx context.Context, u *User, upd ProfileUpdate) (*User, error) {
	next := u.Clone()
	if upd.Name != nil {
		next.Name = NormalizeName(*upd.Name)
	}
	if upd.Email != nil {
		next.Email = NormalizeEmail(*upd.Email)
	}
	if upd.Password != nil {
		next.SetPassword(*upd.Password)
	}
	if upd.Age != nil {
		next.Age = *upd.Age
	}

	if err := s.accounts.Save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete removes the account and everything it owns.
func (s *Service) Delete(ctx context.Context, u *User) error {
	if err := s.accounts.Remove(ctx, u); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", u.ID.String())
	s.notifier.Notify(ctx, notify.KindCancellation, u.Email, u.Name)
	return nil
}

// SetAvatar stores an already normalised avatar image.
func (s *Service) SetAvatar(ctx context.Context, u *User, image []byte) (*User, error) {
	next := u.Clone()
	next.Avatar = image
	if err := s.accounts.Save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ClearAvatar removes the avatar of u.
func (s *Service) ClearAvatar(ctx context.Context, u *User) (*User, error) {
	next := u.Clone()
	next.Avatar = nil
	if err := s.accounts.Save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Avatar returns the avatar of the user with the given id.
func (s *Service) Avatar(ctx context.Context, id ulid.ULID) ([]byte, error) {
	u, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound(CodeAvatarNotFound, "avatar not found")
		}
		return nil, oops.With("operation", "load avatar").Wrap(err)
	}
	if len(u.Avatar) == 0 {
		return nil, apperr.NotFound(CodeAvatarNotFound, "avatar not found")
	}
	return u.Avatar, nil
}
