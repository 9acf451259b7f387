// Package entity 定义领域实体
package entity

import (
	"time"
)

// ChatTurn 单条对话轮次。追加进会话日志后不可再修改。
// Parts 保序存放文本片段；当前的消息入口只产生单片段，
// 但适配器按多片段协议传给各家 SDK。
type ChatTurn struct {
	Role      Role      `json:"role"`
	Parts     []string  `json:"parts"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChatTurn 创建对话轮次
func NewChatTurn(role Role, text string, at time.Time) ChatTurn {
	return ChatTurn{
		Role:      role,
		Parts:     []string{text},
		CreatedAt: at,
	}
}

// Text 拼接全部文本片段
func (t ChatTurn) Text() string {
	switch len(t.Parts) {
	case 0:
		return ""
	case 1:
		return t.Parts[0]
	}
	out := t.Parts[0]
	for _, p := range t.Parts[1:] {
		out += p
	}
	return out
}
