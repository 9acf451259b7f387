// Package entity 定义领域实体
package entity

// DocumentKind 知识文档类型
type DocumentKind string

const (
	DocumentKindText DocumentKind = "text"
	DocumentKindPDF  DocumentKind = "pdf"
)

// ContextDocument 知识库返回的单个文档。
// Kind 为 pdf 时 Content 是 base64 编码的二进制，需解码后抽取文本。
type ContextDocument struct {
	Name    string       `json:"name"`
	Kind    DocumentKind `json:"type"`
	Content string       `json:"content"`
}
