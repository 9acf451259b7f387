// Package knowledge 聚合租户知识库作为模型的接地上下文
package knowledge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/pkg/logger"
	"concierge-relay-api/pkg/metrics"
)

// Aggregator 从配置的地址抓取并归一化接地文本。
// 契约：任何失败都退化为空字符串，知识库故障不得阻断对话；
// 被吞掉的错误通过 knowledge_fetch_total{status} 指标暴露给运维。
type Aggregator struct {
	client *http.Client
}

// NewAggregator 创建知识聚合器
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Aggregator{
		client: &http.Client{Timeout: timeout},
	}
}

// contextResponse 结构化响应的两种形态：
// 旧式单字段 content，或 file_objects 文档集合。
type contextResponse struct {
	Content     string                   `json:"content"`
	FileObjects []entity.ContextDocument `json:"file_objects"`
}

// Fetch 抓取接地上下文。tenantFolder 非空时作为 folder
// 查询参数追加，用于按租户划分知识库。
func (a *Aggregator) Fetch(ctx context.Context, locationRef, tenantFolder string) string {
	if strings.TrimSpace(locationRef) == "" {
		metrics.ContextFetchTotal.WithLabelValues("no_location").Inc()
		return ""
	}

	target := locationRef
	if tenantFolder != "" {
		target = appendQueryParam(target, "folder", tenantFolder)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		a.degrade(ctx, "build context request", err)
		return ""
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.degrade(ctx, "fetch context", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.degrade(ctx, "fetch context", fmt.Errorf("status %d", resp.StatusCode))
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.degrade(ctx, "read context body", err)
		return ""
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		// 非结构化响应整体作为上下文
		metrics.ContextFetchTotal.WithLabelValues("ok").Inc()
		return string(body)
	}

	var parsed contextResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		a.degrade(ctx, "decode context json", err)
		return ""
	}

	metrics.ContextFetchTotal.WithLabelValues("ok").Inc()
	if len(parsed.FileObjects) == 0 {
		return parsed.Content
	}
	return a.concatDocuments(ctx, parsed.FileObjects)
}

// concatDocuments 按响应顺序拼接文档，带来源标头。
// 单个文档抽取失败只留下占位标记，不拖垮整个上下文。
func (a *Aggregator) concatDocuments(ctx context.Context, docs []entity.ContextDocument) string {
	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(fmt.Sprintf("\n--- SOURCE: %s ---\n", doc.Name))

		switch doc.Kind {
		case entity.DocumentKindPDF:
			text, err := extractPDFText(doc.Content)
			if err != nil {
				metrics.ContextExtractionFailures.WithLabelValues(string(doc.Kind)).Inc()
				logger.Warn(ctx, "document extraction failed",
					"document", doc.Name,
					"error", err.Error(),
				)
				sb.WriteString(fmt.Sprintf("[extraction failed for %s]\n", doc.Name))
				continue
			}
			sb.WriteString(text)
			sb.WriteString("\n")
		default:
			sb.WriteString(doc.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// extractPDFText 解码 base64 的 PDF 并抽取纯文本
func extractPDFText(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", pageNum, err)
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (a *Aggregator) degrade(ctx context.Context, msg string, err error) {
	metrics.ContextFetchTotal.WithLabelValues("error").Inc()
	logger.Warn(ctx, "context degraded to empty", "reason", msg, "error", err.Error())
}

// appendQueryParam 向 URL 追加查询参数，无法解析时退化为手工拼接
func appendQueryParam(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + key + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
