package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/command"
	"github.com/sandevgo/tuskagent/internal/service/order"
	"github.com/sandevgo/tuskagent/internal/service/rag"
	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/sandevgo/tuskagent/pkg/metrics"
)

const (
	DefaultStoreTimeout  = 5 * time.Second
	DefaultKnowledgeHits = 5
)

// Processor runs order extraction for one message.
type Processor interface {
	Process(ctx context.Context, req order.Request) (core.ExtractionResult, error)
}

// Retriever looks up knowledge-base records relevant to a message.
type Retriever interface {
	Search(ctx context.Context, tenantID, query string, limit int) ([]core.RawHit, error)
}

// Inbound is one customer message as delivered by a transport.
type Inbound struct {
	Key      core.TenantKey
	Text     string
	Customer core.CustomerProfile
}

// Reply is what the transport sends back.
type Reply struct {
	Text      string
	Result    *core.ExtractionResult
	Command   bool
	Duplicate bool
}

type Agent struct {
	memory       core.Memory
	engine       Processor
	retriever    Retriever
	resolver     *rag.Resolver
	router       *command.Router
	guard        *ProcessedGuard
	tenant       core.TenantProfile
	storeTimeout time.Duration
}

func NewAgent(
	memory core.Memory,
	engine Processor,
	retriever Retriever,
	resolver *rag.Resolver,
	router *command.Router,
	guard *ProcessedGuard,
	tenant core.TenantProfile,
	storeTimeout time.Duration,
) *Agent {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &Agent{
		memory:       memory,
		engine:       engine,
		retriever:    retriever,
		resolver:     resolver,
		router:       router,
		guard:        guard,
		tenant:       tenant,
		storeTimeout: storeTimeout,
	}
}

func (a *Agent) Tenant() core.TenantProfile {
	return a.tenant
}

// Handle processes one inbound message end to end. A non-nil error with a
// non-empty Reply means the reply should still be delivered.
func (a *Agent) Handle(ctx context.Context, in Inbound) (Reply, error) {
	if err := in.Key.Validate(); err != nil {
		return Reply{}, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Reply{}, fmt.Errorf("empty message: %w", core.ErrValidation)
	}

	ctx = log.WithScope(ctx, in.Key)
	logger := log.FromCtx(ctx)

	fp, prior, dup := a.guard.Claim(in.Key, text)
	if dup {
		metrics.DuplicateMessages.Inc()
		logger.Debug().Msg("duplicate message suppressed")
		if prior == nil {
			return Reply{Duplicate: true}, nil
		}
		reply := *prior
		reply.Duplicate = true
		return reply, nil
	}

	if out, ok := a.router.Execute(ctx, in.Key, text); ok {
		// commands change state; a repeat must run again
		a.guard.Release(fp)
		return Reply{Text: out, Command: true}, nil
	}

	result, procErr := a.engine.Process(ctx, order.Request{
		Key:       in.Key,
		Message:   text,
		Customer:  in.Customer,
		Tenant:    a.tenant,
		Knowledge: a.knowledge(ctx, in.Key.TenantID, text),
	})
	if result.Status == "" {
		a.guard.Release(fp)
		return Reply{}, procErr
	}

	a.remember(ctx, in.Key, text, result)

	reply := Reply{Text: result.Response, Result: &result}
	if procErr != nil {
		// a failed order must be retryable with the same words
		a.guard.Release(fp)
	} else {
		a.guard.Complete(fp, reply)
	}
	return reply, procErr
}

func (a *Agent) knowledge(ctx context.Context, tenantID, text string) core.RagContext {
	if a.retriever == nil {
		return core.RagContext{}
	}
	hits, err := a.retriever.Search(ctx, tenantID, text, DefaultKnowledgeHits)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("knowledge search failed")
		return core.RagContext{}
	}
	return a.resolver.Resolve(hits)
}

// remember writes the exchange even when the request context is already
// cancelled, so a slow model call does not lose history.
func (a *Agent) remember(ctx context.Context, key core.TenantKey, text string, result core.ExtractionResult) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.storeTimeout)
	defer cancel()

	_, err := a.memory.Append(storeCtx, key, core.TurnPair{
		UserText:  text,
		AgentText: result.Response,
		Intent:    result.Intent,
		Sentiment: result.Sentiment,
	})
	if err != nil && !errors.Is(err, core.ErrValidation) {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to persist conversation turn")
	}
}
