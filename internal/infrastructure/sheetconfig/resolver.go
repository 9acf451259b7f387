// Package sheetconfig 从远端表格资源解析租户配置
package sheetconfig

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/pkg/errors"
	"concierge-relay-api/pkg/logger"
	"concierge-relay-api/pkg/metrics"
)

// Resolver 抓取并解析两行 CSV 形式的租户配置。
// 每次解析都携带时间戳参数绕过上游缓存，保证观测到最新编辑。
type Resolver struct {
	client *http.Client
	now    func() time.Time
}

// NewResolver 创建配置解析器
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Resolver{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Resolve 抓取配置表并解析为 TenantConfig。
// 传输层或 HTTP 层失败统一包装为 CodeConfigUnavailable；
// 行数不足两行按空配置处理，不算失败。
func (r *Resolver) Resolve(ctx context.Context, sheetURL string) (*entity.TenantConfig, error) {
	if strings.TrimSpace(sheetURL) == "" {
		metrics.ConfigFetchTotal.WithLabelValues("missing_ref").Inc()
		return nil, errors.New(errors.CodeConfigUnavailable, "config sheet url not set")
	}

	bustURL := appendQueryParam(sheetURL, "t", fmt.Sprintf("%d", r.now().UnixMilli()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bustURL, nil)
	if err != nil {
		metrics.ConfigFetchTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, errors.CodeConfigUnavailable, "build config request")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		metrics.ConfigFetchTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, errors.CodeConfigUnavailable, "fetch config sheet")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ConfigFetchTotal.WithLabelValues("error").Inc()
		return nil, errors.New(errors.CodeConfigUnavailable, "fetch config sheet").
			WithDetail(fmt.Sprintf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ConfigFetchTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, errors.CodeConfigUnavailable, "read config sheet")
	}

	cfg := parseSheet(string(body))
	metrics.ConfigFetchTotal.WithLabelValues("ok").Inc()
	logger.Debug(ctx, "config sheet resolved",
		"model", cfg.ModelName(),
		"fields", !cfg.Empty(),
	)
	return cfg, nil
}

// parseSheet 解析两行 CSV：首行字段名，次行字段值，多余行忽略。
// 不足两行时返回空配置。
func parseSheet(csvText string) *entity.TenantConfig {
	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	if len(lines) < 2 {
		return entity.NewTenantConfig(nil)
	}

	headers := parseCSVLine(lines[0])
	values := parseCSVLine(lines[1])

	fields := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(values) {
			fields[h] = values[i]
		}
	}
	return entity.NewTenantConfig(fields)
}

// parseCSVLine 按逗号切分一行，引号内的逗号不切分，
// 并剥掉包裹值的一层引号。
func parseCSVLine(line string) []string {
	var values []string
	var current strings.Builder
	inQuote := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case ch == ',' && !inQuote:
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	values = append(values, strings.TrimSpace(current.String()))
	return values
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
