package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge-relay-api/internal/domain/entity"
	"concierge-relay-api/pkg/errors"
)

type stubResolver struct {
	cfg *entity.TenantConfig
	err error
}

func (s *stubResolver) Resolve(_ context.Context, _ string) (*entity.TenantConfig, error) {
	return s.cfg, s.err
}

type stubAggregator struct {
	text      string
	gotRef    string
	gotFolder string
}

func (s *stubAggregator) Fetch(_ context.Context, locationRef, tenantFolder string) string {
	s.gotRef = locationRef
	s.gotFolder = tenantFolder
	return s.text
}

type stubHistory struct {
	window   []entity.ChatTurn
	appended []entity.ChatTurn
}

func (s *stubHistory) Window(_ string) []entity.ChatTurn { return s.window }

func (s *stubHistory) Append(_ string, turn entity.ChatTurn) {
	s.appended = append(s.appended, turn)
}

type stubAdapter struct {
	reply      string
	err        error
	gotHistory []entity.ChatTurn
	gotQuery   string
	gotSystem  string
}

func (s *stubAdapter) Send(_ context.Context, history []entity.ChatTurn, query, systemInstruction string) (string, error) {
	s.gotHistory = history
	s.gotQuery = query
	s.gotSystem = systemInstruction
	return s.reply, s.err
}

type stubFactory struct{ adapter ChatAdapter }

func (s *stubFactory) Create(_ *entity.TenantConfig) ChatAdapter { return s.adapter }

func newTestOrchestrator(resolver ConfigResolver, agg ContextAggregator, hist *stubHistory, adapter ChatAdapter) *Orchestrator {
	o := NewOrchestrator(resolver, agg, hist, &stubFactory{adapter: adapter})
	o.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return o
}

func TestHandleSuccessAppendsBothTurns(t *testing.T) {
	cfg := entity.NewTenantConfig(map[string]string{
		entity.FieldContextLocation:  "https://example.com/ctx",
		entity.FieldClientFolderName: "acme",
	})
	agg := &stubAggregator{text: "Opening hours: 9-18"}
	hist := &stubHistory{}
	adapter := &stubAdapter{reply: "We open at 9."}

	o := newTestOrchestrator(&stubResolver{cfg: cfg}, agg, hist, adapter)
	reply := o.Handle(context.Background(), "when do you open?", "u1", "https://example.com/sheet", entity.Overrides{})

	assert.Equal(t, "We open at 9.", reply)
	assert.Equal(t, "https://example.com/ctx", agg.gotRef)
	assert.Equal(t, "acme", agg.gotFolder)
	assert.Equal(t, "when do you open?", adapter.gotQuery)
	assert.Contains(t, adapter.gotSystem, "Opening hours: 9-18")

	require.Len(t, hist.appended, 2)
	assert.Equal(t, entity.RoleUser, hist.appended[0].Role)
	assert.Equal(t, "when do you open?", hist.appended[0].Text())
	assert.Equal(t, entity.RoleAssistant, hist.appended[1].Role)
	assert.Equal(t, "We open at 9.", hist.appended[1].Text())
}

func TestHandleConfigFailure(t *testing.T) {
	hist := &stubHistory{}
	o := newTestOrchestrator(
		&stubResolver{err: errors.New(errors.CodeConfigUnavailable, "fetch config sheet")},
		&stubAggregator{}, hist, &stubAdapter{},
	)

	reply := o.Handle(context.Background(), "hello", "u1", "https://example.com/sheet", entity.Overrides{})

	assert.Equal(t, configMissingReply, reply)
	assert.Empty(t, hist.appended)
}

func TestHandleProviderFailureLeavesHistoryUntouched(t *testing.T) {
	hist := &stubHistory{}
	adapter := &stubAdapter{err: errors.New(errors.CodeProviderError, "gemini call failed").
		WithError(assert.AnError)}

	o := newTestOrchestrator(&stubResolver{cfg: entity.NewTenantConfig(nil)}, &stubAggregator{}, hist, adapter)
	reply := o.Handle(context.Background(), "hello", "u1", "https://example.com/sheet", entity.Overrides{})

	assert.Contains(t, reply, "Sorry, I could not process that right now")
	assert.Contains(t, reply, assert.AnError.Error())
	assert.Empty(t, hist.appended)
}

func TestHandlePassesWindowToAdapter(t *testing.T) {
	now := time.Now()
	hist := &stubHistory{window: []entity.ChatTurn{
		entity.NewChatTurn(entity.RoleUser, "earlier question", now),
		entity.NewChatTurn(entity.RoleAssistant, "earlier answer", now),
	}}
	adapter := &stubAdapter{reply: "ok"}

	o := newTestOrchestrator(&stubResolver{cfg: entity.NewTenantConfig(nil)}, &stubAggregator{}, hist, adapter)
	o.Handle(context.Background(), "follow-up", "u1", "https://example.com/sheet", entity.Overrides{})

	require.Len(t, adapter.gotHistory, 2)
	assert.Equal(t, "earlier question", adapter.gotHistory[0].Text())
}

func TestHandleAppliesOverrides(t *testing.T) {
	cfg := entity.NewTenantConfig(map[string]string{entity.FieldClientFolderName: "acme"})
	agg := &stubAggregator{}
	o := newTestOrchestrator(&stubResolver{cfg: cfg}, agg, &stubHistory{}, &stubAdapter{reply: "ok"})

	o.Handle(context.Background(), "hi", "u1", "https://example.com/sheet", entity.Overrides{Folder: "beta"})

	assert.Equal(t, "beta", agg.gotFolder)
	// 共享快照不被请求级覆盖污染
	assert.Equal(t, "acme", cfg.ClientFolderName())
}
