// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package auth implements the account and authentication lifecycle.
//
// # Domain Types
//
// A User owns its active session tokens: logging in appends a token, logging
// out removes it, and logging out everywhere clears the list. Users should be
// created with NewUser, which normalises the profile; the password is held as
// pending plaintext until the Accounts store hashes it before the first save.
//
// # Persistence
//
// Accounts wraps a UserRepository and runs the lifecycle hooks around every
// write regardless of the caller:
//   - BeforeSave validates the user and re-hashes the password only when it
//     was changed through SetPassword
//   - BeforeDelete removes the user's tasks before the user record
//
// # Services
//
//   - Service - register, login, logout, profile and avatar management
//   - Authenticator - resolves a bearer token to the user that owns it
//
// Services are created with New* constructors that validate dependencies.
package auth
