package knowledge

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newServer(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchEmptyLocation(t *testing.T) {
	a := NewAggregator(time.Second)
	assert.Empty(t, a.Fetch(context.Background(), "  ", ""))
}

func TestFetchPlainTextVerbatim(t *testing.T) {
	srv := newServer(t, "text/plain; charset=utf-8", "Menu:\n- Coffee $3\n- Tea $2")

	got := NewAggregator(time.Second).Fetch(context.Background(), srv.URL, "")
	assert.Equal(t, "Menu:\n- Coffee $3\n- Tea $2", got)
}

func TestFetchJSONContentField(t *testing.T) {
	srv := newServer(t, "application/json", `{"content":"Opening hours: 9-18"}`)

	got := NewAggregator(time.Second).Fetch(context.Background(), srv.URL, "")
	assert.Equal(t, "Opening hours: 9-18", got)
}

func TestFetchFileObjects(t *testing.T) {
	srv := newServer(t, "application/json",
		`{"file_objects":[{"name":"faq.txt","type":"text","content":"Q: hours? A: 9-18"}]}`)

	got := NewAggregator(time.Second).Fetch(context.Background(), srv.URL, "")
	assert.Contains(t, got, "--- SOURCE: faq.txt ---")
	assert.Contains(t, got, "Q: hours? A: 9-18")
}

func TestFetchBrokenPDFLeavesMarker(t *testing.T) {
	// 合法 base64 但不是 PDF，抽取失败只留下占位标记
	bogus := base64.StdEncoding.EncodeToString([]byte("not a pdf"))
	srv := newServer(t, "application/json",
		`{"file_objects":[`+
			`{"name":"menu.pdf","type":"pdf","content":"`+bogus+`"},`+
			`{"name":"faq.txt","type":"text","content":"still here"}]}`)

	got := NewAggregator(time.Second).Fetch(context.Background(), srv.URL, "")
	assert.Contains(t, got, "[extraction failed for menu.pdf]")
	// 后续文档不受影响
	assert.Contains(t, got, "still here")
}

func TestFetchAppendsFolderParam(t *testing.T) {
	var gotFolder string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFolder = r.URL.Query().Get("folder")
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	NewAggregator(time.Second).Fetch(context.Background(), srv.URL, "acme")
	assert.Equal(t, "acme", gotFolder)
}

func TestFetchDegradesOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	assert.Empty(t, NewAggregator(time.Second).Fetch(context.Background(), srv.URL, ""))
}

func TestFetchDegradesOnBadJSON(t *testing.T) {
	srv := newServer(t, "application/json", "{not json")
	assert.Empty(t, NewAggregator(time.Second).Fetch(context.Background(), srv.URL, ""))
}
