// Package store implements the persistence collaborators of the chat
// service: credential checks and message history, backed either by pooled
// Redis sessions or by process memory. Any replacement store must honor the
// same contract.
package store

import (
	"context"

	"github.com/cyberinferno/go-chat/protocol"
)

// MinPasswordLen is the minimum accepted password length for registration.
const MinPasswordLen = 3

// DefaultHistoryCount is used when a history request does not name a count.
const DefaultHistoryCount = 50

// Users is the credential store. Passwords are compared by plain equality;
// this mirrors the existing deployment's data and is a known security
// defect, not to be fixed here without a data migration.
type Users interface {
	// Register inserts the credential pair. It fails when the username is
	// empty, the password is shorter than MinPasswordLen, the username
	// already exists, or the backend errs.
	Register(ctx context.Context, username, password string) bool

	// CheckLogin reports whether a stored credential row exists for username
	// and its password matches exactly.
	CheckLogin(ctx context.Context, username, password string) bool
}

// Messages is the message history store.
type Messages interface {
	// Push persists one message, best-effort: a failure is logged and
	// swallowed, never surfaced to the caller.
	Push(ctx context.Context, msg protocol.ChatMsg)

	// Recent returns up to n most recent messages globally, in ascending
	// chronological order.
	Recent(ctx context.Context, n int) []protocol.ChatMsg

	// ForUser returns up to n most recent messages involving username (sent
	// by them, addressed to them, or broadcast), in ascending chronological
	// order.
	ForUser(ctx context.Context, username string, n int) []protocol.ChatMsg
}
