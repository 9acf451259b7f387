// Package session 提供进程内的会话日志存储
package session

import (
	"sync"
	"time"

	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/pkg/metrics"
)

// 滑动窗口参数
const (
	// SessionTTL 一轮会话的名义有效期
	SessionTTL = time.Hour
	// MinWindow 窗口下限：近期轮次不足此数时退回原始尾部
	MinWindow = 10
	// MaxWindow 发给模型的轮次上限，先丢最旧的
	MaxWindow = 20
)

// MemoryStore 按用户标识持有会话日志的内存实现。
// 锁粒度为整个映射，Window 与 Append 各自原子；同一用户的
// 并发请求之间仍存在读窗口-追加竞态，这是演示场景下被接受的
// 行为（各自可能看不到对方在途的轮次）。日志不主动回收，
// 存量通过 session_active_total 指标暴露。
type MemoryStore struct {
	mu   sync.Mutex
	logs map[string][]entity.ChatTurn
	now  func() time.Time
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs: make(map[string][]entity.ChatTurn),
		now:  time.Now,
	}
}

// Window 计算该用户当前的滑动窗口：
//  1. 取 SessionTTL 内的近期轮次
//  2. 近期轮次 >= MinWindow 时，窗口为近期轮次且上限 MaxWindow
//  3. 否则退回最近 MinWindow 条原始轮次，保证跨过期会话
//     也有最低限度的上下文连续性（代价是内容可能偏旧）
func (s *MemoryStore) Window(userID string) []entity.ChatTurn {
	s.mu.Lock()
	log := s.logs[userID]
	s.mu.Unlock()

	if len(log) == 0 {
		return nil
	}

	now := s.now()
	var recent []entity.ChatTurn
	for _, turn := range log {
		if now.Sub(turn.CreatedAt) < SessionTTL {
			recent = append(recent, turn)
		}
	}

	if len(recent) >= MinWindow {
		if len(recent) > MaxWindow {
			recent = recent[len(recent)-MaxWindow:]
		}
		return cloneTurns(recent)
	}

	// 会话过期或太短：取原始尾部
	tail := log
	if len(tail) > MinWindow {
		tail = tail[len(tail)-MinWindow:]
	}
	return cloneTurns(tail)
}

// Append 追加一条轮次。首次出现的用户标识即创建日志。
func (s *MemoryStore) Append(userID string, turn entity.ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[userID]; !ok {
		metrics.ActiveSessions.Inc()
	}
	s.logs[userID] = append(s.logs[userID], turn)
}

// cloneTurns 复制切片，避免调用方持有内部存储的别名
func cloneTurns(turns []entity.ChatTurn) []entity.ChatTurn {
	out := make([]entity.ChatTurn, len(turns))
	copy(out, turns)
	return out
}
