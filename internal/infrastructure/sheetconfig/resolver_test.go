package sheetconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/pkg/errors"
)

func TestParseCSVLineQuotedComma(t *testing.T) {
	values := parseCSVLine(`model_name,"a,b",plain`)
	assert.Equal(t, []string{"model_name", "a,b", "plain"}, values)
}

func TestParseSheet(t *testing.T) {
	cfg := parseSheet("model_name,model_provider,context_location\ngemini-1.5-pro,gemini,https://example.com/ctx\nextra,row,ignored")

	assert.Equal(t, "gemini-1.5-pro", cfg.ModelName())
	assert.Equal(t, "https://example.com/ctx", cfg.ContextLocation())

	provider, ok := cfg.Provider()
	require.True(t, ok)
	assert.Equal(t, entity.ProviderGemini, provider)
}

func TestParseSheetTooFewRows(t *testing.T) {
	cfg := parseSheet("model_name,model_provider")
	assert.True(t, cfg.Empty())
	assert.Equal(t, entity.DefaultModelName, cfg.ModelName())
}

func TestParseSheetShortValueRow(t *testing.T) {
	cfg := parseSheet("model_name,context_location\ngemini-1.5-pro")
	assert.Equal(t, "gemini-1.5-pro", cfg.ModelName())
	// 缺值字段退化为空
	assert.Empty(t, cfg.ContextLocation())
}

func TestResolveAppendsCacheBuster(t *testing.T) {
	fixed := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	var gotBust string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBust = r.URL.Query().Get("t")
		_, _ = w.Write([]byte("model_name\ngemini-1.5-flash"))
	}))
	defer srv.Close()

	r := NewResolver(time.Second)
	r.now = func() time.Time { return fixed }

	cfg, err := r.Resolve(context.Background(), srv.URL+"?output=csv")
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", cfg.ModelName())
	assert.Equal(t, "1787911200000", gotBust)
}

func TestResolveUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewResolver(time.Second).Resolve(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfigUnavailable))
}

func TestResolveEmptyURL(t *testing.T) {
	_, err := NewResolver(time.Second).Resolve(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfigUnavailable))
}

func TestAppendQueryParam(t *testing.T) {
	assert.Equal(t, "https://example.com/sheet?t=1",
		appendQueryParam("https://example.com/sheet", "t", "1"))
	assert.Equal(t, "https://example.com/sheet?output=csv&t=1",
		appendQueryParam("https://example.com/sheet?output=csv", "t", "1"))
}
