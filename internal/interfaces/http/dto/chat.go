// Package dto 提供 HTTP 层数据传输对象
package dto

// ChatRequest 入站消息请求（Web 模拟器）
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
	UserID  string `json:"userId"`

	// 单次请求的临时覆盖项，不写回共享配置
	FolderOverride string `json:"folderOverride,omitempty"`
	ModelOverride  string `json:"modelOverride,omitempty"`
}

// ChatResponse 入站消息响应
type ChatResponse struct {
	Response string `json:"response"`
}

// DashboardConfigResponse 静态面板引导配置
type DashboardConfigResponse struct {
	ContextURL string `json:"context_url"`
}
