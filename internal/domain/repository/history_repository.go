// Package repository 定义数据访问层接口
package repository

import (
	"concierge-relay-api/internal/domain/entity"
)

// HistoryRepository 按用户标识持有会话日志。
// 日志仅追加，窗口裁剪在读取时进行；进程生命周期内不回收
// （参见 session.MemoryStore 的说明）。
type HistoryRepository interface {
	// Window 返回发给模型的滑动窗口，时间升序
	Window(userID string) []entity.ChatTurn
	// Append 追加一条轮次
	Append(userID string, turn entity.ChatTurn)
}
