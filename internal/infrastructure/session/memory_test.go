package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge-relay-api/internal/domain/entity"
)

func newTestStore(now time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	return s
}

func TestWindowEmptyForNewUser(t *testing.T) {
	s := newTestStore(time.Now())
	assert.Nil(t, s.Window("whatsapp:+886900000001"))
}

func TestWindowAllRecent(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(now)

	for i := 0; i < 6; i++ {
		s.Append("u1", entity.NewChatTurn(entity.RoleUser, fmt.Sprintf("msg-%d", i), now.Add(-time.Minute)))
	}

	window := s.Window("u1")
	// 近期轮次不足 MinWindow，退回原始尾部（全部 6 条）
	require.Len(t, window, 6)
	assert.Equal(t, "msg-0", window[0].Text())
	assert.Equal(t, "msg-5", window[5].Text())
}

func TestWindowFallbackMixesStaleTurns(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(now)

	// 8 条过期 + 4 条近期：近期不足 MinWindow，取最近 10 条原始轮次
	for i := 0; i < 8; i++ {
		s.Append("u1", entity.NewChatTurn(entity.RoleUser, fmt.Sprintf("stale-%d", i), now.Add(-2*time.Hour)))
	}
	for i := 0; i < 4; i++ {
		s.Append("u1", entity.NewChatTurn(entity.RoleUser, fmt.Sprintf("recent-%d", i), now.Add(-time.Minute)))
	}

	window := s.Window("u1")
	require.Len(t, window, MinWindow)
	assert.Equal(t, "stale-2", window[0].Text())
	assert.Equal(t, "recent-3", window[9].Text())
}

func TestWindowCapsAtMaxOldestFirst(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(now)

	for i := 0; i < 25; i++ {
		s.Append("u1", entity.NewChatTurn(entity.RoleUser, fmt.Sprintf("msg-%d", i), now.Add(-time.Minute)))
	}

	window := s.Window("u1")
	require.Len(t, window, MaxWindow)
	// 丢最旧的 5 条，顺序保持旧到新
	assert.Equal(t, "msg-5", window[0].Text())
	assert.Equal(t, "msg-24", window[19].Text())
}

func TestWindowDropsStaleWhenEnoughRecent(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s := newTestStore(now)

	s.Append("u1", entity.NewChatTurn(entity.RoleUser, "stale", now.Add(-2*time.Hour)))
	for i := 0; i < MinWindow; i++ {
		s.Append("u1", entity.NewChatTurn(entity.RoleUser, fmt.Sprintf("recent-%d", i), now.Add(-time.Minute)))
	}

	window := s.Window("u1")
	require.Len(t, window, MinWindow)
	assert.Equal(t, "recent-0", window[0].Text())
}

func TestWindowIsolatesUsers(t *testing.T) {
	now := time.Now()
	s := newTestStore(now)

	s.Append("u1", entity.NewChatTurn(entity.RoleUser, "hello", now))
	assert.Nil(t, s.Window("u2"))
	assert.Len(t, s.Window("u1"), 1)
}

func TestWindowReturnsCopy(t *testing.T) {
	now := time.Now()
	s := newTestStore(now)
	s.Append("u1", entity.NewChatTurn(entity.RoleUser, "original", now))

	window := s.Window("u1")
	window[0] = entity.NewChatTurn(entity.RoleUser, "mutated", now)

	assert.Equal(t, "original", s.Window("u1")[0].Text())
}
