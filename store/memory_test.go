package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
)

func TestMemoryUsers_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts a valid credential pair", func(t *testing.T) {
		users := NewMemoryUsers(logger.Nop())
		assert.True(t, users.Register(ctx, "alice", "secret"))
	})

	t.Run("rejects empty username", func(t *testing.T) {
		users := NewMemoryUsers(logger.Nop())
		assert.False(t, users.Register(ctx, "", "secret"))
	})

	t.Run("rejects too short password", func(t *testing.T) {
		users := NewMemoryUsers(logger.Nop())
		assert.False(t, users.Register(ctx, "alice", "ab"))
	})

	t.Run("rejects duplicate username and keeps original password", func(t *testing.T) {
		users := NewMemoryUsers(logger.Nop())
		require.True(t, users.Register(ctx, "alice", "secret"))
		assert.False(t, users.Register(ctx, "alice", "other"))

		assert.True(t, users.CheckLogin(ctx, "alice", "secret"))
		assert.False(t, users.CheckLogin(ctx, "alice", "other"))
	})
}

func TestMemoryUsers_CheckLogin(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers(logger.Nop())
	require.True(t, users.Register(ctx, "alice", "secret"))

	t.Run("matches exact password", func(t *testing.T) {
		assert.True(t, users.CheckLogin(ctx, "alice", "secret"))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		assert.False(t, users.CheckLogin(ctx, "alice", "Secret"))
	})

	t.Run("rejects unknown user", func(t *testing.T) {
		assert.False(t, users.CheckLogin(ctx, "bob", "secret"))
	})
}

func TestMemoryMessages_Recent(t *testing.T) {
	ctx := context.Background()
	msgs := NewMemoryMessages(logger.Nop())

	msgs.Push(ctx, protocol.ChatMsg{From: "a", Text: "one", Ts: 1})
	msgs.Push(ctx, protocol.ChatMsg{From: "b", Text: "two", Ts: 2})
	msgs.Push(ctx, protocol.ChatMsg{From: "a", Text: "three", Ts: 3})

	t.Run("returns last n oldest first", func(t *testing.T) {
		got := msgs.Recent(ctx, 2)
		require.Len(t, got, 2)
		assert.Equal(t, "two", got[0].Text)
		assert.Equal(t, "three", got[1].Text)
	})

	t.Run("n larger than stored returns everything", func(t *testing.T) {
		assert.Len(t, msgs.Recent(ctx, 100), 3)
	})

	t.Run("non-positive n falls back to default", func(t *testing.T) {
		assert.Len(t, msgs.Recent(ctx, 0), 3)
	})
}

func TestMemoryMessages_ForUser(t *testing.T) {
	ctx := context.Background()
	msgs := NewMemoryMessages(logger.Nop())

	msgs.Push(ctx, protocol.ChatMsg{From: "alice", Text: "hello all", Ts: 1})
	msgs.Push(ctx, protocol.ChatMsg{From: "bob", To: "alice", Text: "hi alice", Ts: 2})
	msgs.Push(ctx, protocol.ChatMsg{From: "alice", To: "bob", Text: "hi bob", Ts: 3})
	msgs.Push(ctx, protocol.ChatMsg{From: "bob", To: "carol", Text: "psst carol", Ts: 4})

	t.Run("includes broadcasts, sent, and received", func(t *testing.T) {
		got := msgs.ForUser(ctx, "alice", 10)
		require.Len(t, got, 3)
		assert.Equal(t, "hello all", got[0].Text)
		assert.Equal(t, "hi alice", got[1].Text)
		assert.Equal(t, "hi bob", got[2].Text)
	})

	t.Run("excludes foreign private messages", func(t *testing.T) {
		for _, msg := range msgs.ForUser(ctx, "alice", 10) {
			assert.NotEqual(t, "psst carol", msg.Text)
		}
	})

	t.Run("caps at n keeping the newest", func(t *testing.T) {
		got := msgs.ForUser(ctx, "alice", 2)
		require.Len(t, got, 2)
		assert.Equal(t, "hi alice", got[0].Text)
		assert.Equal(t, "hi bob", got[1].Text)
	})

	t.Run("empty username sees only broadcasts", func(t *testing.T) {
		got := msgs.ForUser(ctx, "", 10)
		require.Len(t, got, 1)
		assert.Equal(t, "hello all", got[0].Text)
	})
}
