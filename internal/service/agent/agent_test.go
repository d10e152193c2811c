package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/command"
	"github.com/sandevgo/tuskagent/internal/service/order"
	"github.com/sandevgo/tuskagent/internal/service/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemory struct {
	mu       sync.Mutex
	appended []core.TurnPair
	ctxErrs  []error
}

func (m *fakeMemory) Append(ctx context.Context, key core.TenantKey, pair core.TurnPair) ([]core.MemoryTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, pair)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return nil, nil
}

func (m *fakeMemory) GetRecent(ctx context.Context, key core.TenantKey, limit int) ([]core.MemoryTurn, error) {
	return nil, nil
}

func (m *fakeMemory) PromptHistory(ctx context.Context, key core.TenantKey, limit, maxTokens int) ([]core.MemoryTurn, error) {
	return nil, nil
}

func (m *fakeMemory) WipeParticipant(ctx context.Context, key core.TenantKey) (int, error) {
	return 0, nil
}

type fakeProcessor struct {
	result   core.ExtractionResult
	err      error
	requests []order.Request
}

func (p *fakeProcessor) Process(ctx context.Context, req order.Request) (core.ExtractionResult, error) {
	p.requests = append(p.requests, req)
	return p.result, p.err
}

type fakeRetriever struct {
	hits []core.RawHit
}

func (r *fakeRetriever) Search(ctx context.Context, tenantID, query string, limit int) ([]core.RawHit, error) {
	return r.hits, nil
}

type agentFixture struct {
	agent     *Agent
	memory    *fakeMemory
	processor *fakeProcessor
	retriever *fakeRetriever
}

func newAgentFixture() *agentFixture {
	f := &agentFixture{
		memory: &fakeMemory{},
		processor: &fakeProcessor{result: core.ExtractionResult{
			Status:    core.StatusCollectingData,
			Response:  "أهلاً! ممكن اسمك؟",
			Intent:    "greeting",
			Sentiment: "neutral",
		}},
		retriever: &fakeRetriever{},
	}
	f.agent = NewAgent(
		f.memory,
		f.processor,
		f.retriever,
		rag.NewResolver(rag.DefaultMaxItemTokens),
		command.New(command.NewCommands(f.memory)),
		NewProcessedGuard(time.Minute),
		core.TenantProfile{TenantID: "shop-a", Language: "Egyptian Arabic"},
		time.Second,
	)
	return f
}

var inbound = Inbound{
	Key:  core.NewTenantKey("shop-a", "chat-1", "user-1"),
	Text: "مرحبا",
}

func TestAgent_Handle(t *testing.T) {
	f := newAgentFixture()

	reply, err := f.agent.Handle(context.Background(), inbound)
	require.NoError(t, err)
	assert.Equal(t, "أهلاً! ممكن اسمك؟", reply.Text)
	require.NotNil(t, reply.Result)
	assert.Equal(t, core.StatusCollectingData, reply.Result.Status)

	require.Len(t, f.memory.appended, 1)
	assert.Equal(t, core.TurnPair{
		UserText:  "مرحبا",
		AgentText: "أهلاً! ممكن اسمك؟",
		Intent:    "greeting",
		Sentiment: "neutral",
	}, f.memory.appended[0])

	require.Len(t, f.processor.requests, 1)
	assert.Equal(t, "shop-a", f.processor.requests[0].Tenant.TenantID)
}

func TestAgent_DuplicateSuppressed(t *testing.T) {
	f := newAgentFixture()

	first, err := f.agent.Handle(context.Background(), inbound)
	require.NoError(t, err)

	again := inbound
	again.Text = "  مرحبا "
	second, err := f.agent.Handle(context.Background(), again)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Text, second.Text)
	assert.Len(t, f.processor.requests, 1)
	assert.Len(t, f.memory.appended, 1)

	otherChat := inbound
	otherChat.Key = core.NewTenantKey("shop-a", "chat-2", "user-1")
	_, err = f.agent.Handle(context.Background(), otherChat)
	require.NoError(t, err)
	assert.Len(t, f.processor.requests, 2)
}

func TestAgent_Commands(t *testing.T) {
	f := newAgentFixture()
	msg := inbound
	msg.Text = "/help"

	for range 2 {
		reply, err := f.agent.Handle(context.Background(), msg)
		require.NoError(t, err)
		assert.True(t, reply.Command)
		assert.False(t, reply.Duplicate)
		assert.Contains(t, reply.Text, "/forget")
	}
	assert.Empty(t, f.processor.requests)
	assert.Empty(t, f.memory.appended)
}

func TestAgent_RemembersAfterCancellation(t *testing.T) {
	f := newAgentFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.agent.Handle(ctx, inbound)
	require.NoError(t, err)

	require.Len(t, f.memory.ctxErrs, 1)
	assert.NoError(t, f.memory.ctxErrs[0])
}

func TestAgent_FailedOrderCanBeRetried(t *testing.T) {
	f := newAgentFixture()
	f.processor.result = core.ExtractionResult{Status: core.StatusError, Response: "حصلت مشكلة"}
	f.processor.err = fmt.Errorf("create order: %w", core.ErrPersistence)

	msg := inbound
	msg.Text = "أكد"

	reply, err := f.agent.Handle(context.Background(), msg)
	assert.ErrorIs(t, err, core.ErrPersistence)
	assert.Equal(t, "حصلت مشكلة", reply.Text)

	_, _ = f.agent.Handle(context.Background(), msg)
	assert.Len(t, f.processor.requests, 2)
	assert.Len(t, f.memory.appended, 2)
}

func TestAgent_KnowledgeIsSanitized(t *testing.T) {
	f := newAgentFixture()
	f.retriever.hits = []core.RawHit{
		{Type: "product", Content: "Hoodie", Metadata: map[string]any{"price": 450.0, "costPrice": 200.0}},
		{Type: "internal_note", Content: "do not show"},
	}

	_, err := f.agent.Handle(context.Background(), inbound)
	require.NoError(t, err)

	require.Len(t, f.processor.requests, 1)
	kn := f.processor.requests[0].Knowledge
	require.Len(t, kn.Items, 1)
	assert.True(t, kn.HasProducts())
	assert.Equal(t, map[string]any{"price": 450.0}, kn.Items[0].Metadata)
}

func TestAgent_Validation(t *testing.T) {
	f := newAgentFixture()

	_, err := f.agent.Handle(context.Background(), Inbound{Key: core.NewTenantKey("", "c", "u"), Text: "hi"})
	assert.ErrorIs(t, err, core.ErrIsolation)

	_, err = f.agent.Handle(context.Background(), Inbound{Key: inbound.Key, Text: " "})
	assert.ErrorIs(t, err, core.ErrValidation)
}
