package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/rag"
	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/sandevgo/tuskagent/pkg/metrics"
)

const (
	DefaultLLMTimeout    = 45 * time.Second
	DefaultStoreTimeout  = 5 * time.Second
	DefaultHistoryTurns  = 10
	DefaultHistoryTokens = 1500
)

// HistorySource supplies the recent conversation for a key.
type HistorySource interface {
	PromptHistory(ctx context.Context, key core.TenantKey, limit, maxTokens int) ([]core.MemoryTurn, error)
}

type Config struct {
	LLMTimeout    time.Duration
	StoreTimeout  time.Duration
	HistoryTurns  int
	HistoryTokens int
	// ContentLimit caps the current message in the prompt, in runes.
	ContentLimit int
	Temperature  float64
	MaxTokens    int
}

func DefaultConfig() Config {
	return Config{
		LLMTimeout:    DefaultLLMTimeout,
		StoreTimeout:  DefaultStoreTimeout,
		HistoryTurns:  DefaultHistoryTurns,
		HistoryTokens: DefaultHistoryTokens,
		ContentLimit:  core.DefaultContentLimit,
		Temperature:   0.2,
		MaxTokens:     1024,
	}
}

// Request is one inbound customer message.
type Request struct {
	Key       core.TenantKey
	Message   string
	Customer  core.CustomerProfile
	Tenant    core.TenantProfile
	Knowledge core.RagContext
}

// Engine turns customer messages into order state.
type Engine struct {
	llm      core.LanguageModel
	history  HistorySource
	orders   core.OrderRepository
	shipping core.ShippingLookup
	cfg      Config
}

func NewEngine(
	llm core.LanguageModel,
	history HistorySource,
	orders core.OrderRepository,
	shipping core.ShippingLookup,
	cfg Config,
) *Engine {
	return &Engine{
		llm:      llm,
		history:  history,
		orders:   orders,
		shipping: shipping,
		cfg:      cfg,
	}
}

// Process evaluates one message from scratch. Model and parse failures
// come back as a StatusError result with a nil error; a failed order write
// returns the StatusError result together with an ErrPersistence error.
func (e *Engine) Process(ctx context.Context, req Request) (core.ExtractionResult, error) {
	if err := req.Key.Validate(); err != nil {
		return core.ExtractionResult{}, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return core.ExtractionResult{}, fmt.Errorf("empty message: %w", core.ErrValidation)
	}

	ctx = log.WithScope(ctx, req.Key)
	logger := log.FromCtx(ctx)
	texts := repliesFor(req.Tenant.Language)

	history, err := e.history.PromptHistory(ctx, req.Key, e.cfg.HistoryTurns, e.cfg.HistoryTokens)
	if err != nil {
		if errors.Is(err, core.ErrIsolation) {
			return core.ExtractionResult{}, err
		}
		logger.Warn().Err(err).Msg("history unavailable, continuing without it")
		history = nil
	}

	// hints see the whole message; the model only gets the capped text
	hints := ExtractHints(req.Message)
	prompt := BuildPrompt(PromptInput{
		Message:   core.TruncateContent(req.Message, e.contentLimit()),
		History:   history,
		Hints:     hints,
		Customer:  req.Customer,
		Tenant:    req.Tenant,
		Knowledge: rag.Render(req.Knowledge),
	})

	result := e.extract(ctx, prompt, req.Key.TenantID)
	if result == nil {
		return e.finish(ctx, core.ExtractionResult{
			Status:        core.StatusError,
			Response:      texts.generic,
			MissingFields: (*core.OrderDraft)(nil).MissingFields(),
		}), nil
	}

	Reconcile(result, hints)
	enforceTransitions(result, req.Message, texts)

	if result.Status != core.StatusConfirmed {
		return e.finish(ctx, *result), nil
	}

	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Msg("request ended before order creation")
		result.Status = core.StatusError
		result.Response = texts.persistFailed
		return e.finish(ctx, *result), err
	}

	record, err := e.placeOrder(ctx, req.Key.TenantID, *result.Order)
	if err != nil {
		logger.Error().Err(err).Msg("order creation failed")
		result.Status = core.StatusError
		result.Response = texts.persistFailed
		return e.finish(ctx, *result), fmt.Errorf("create order: %w: %w", core.ErrPersistence, err)
	}

	record.EstimatedDelivery = e.estimateDelivery(ctx, req.Key.TenantID, record.Draft.City)
	result.OrderCreated = record
	result.Response = texts.Confirmed(record.OrderNumber, record.EstimatedDelivery)
	metrics.OrdersCreated.Inc()
	logger.Info().Str("order_number", record.OrderNumber).Msg("order created")

	return e.finish(ctx, *result), nil
}

func (e *Engine) contentLimit() int {
	if e.cfg.ContentLimit > 0 {
		return e.cfg.ContentLimit
	}
	return core.DefaultContentLimit
}

func (e *Engine) extract(ctx context.Context, prompt, tenantID string) *core.ExtractionResult {
	logger := log.FromCtx(ctx)

	llmCtx, cancel := context.WithTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	gen, err := e.llm.Generate(llmCtx, prompt, tenantID, core.GenerateOptions{
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		logger.Error().Err(err).Msg("language model request failed")
		return nil
	}

	result := Parse(gen.Content)
	if result == nil {
		logger.Warn().Err(core.ErrParse).Int("output_len", len(gen.Content)).Msg("unusable model output")
	}
	return result
}

func (e *Engine) placeOrder(ctx context.Context, tenantID string, draft core.OrderDraft) (*core.OrderRecord, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	return e.orders.CreateOrder(opCtx, tenantID, draft)
}

// estimateDelivery returns "" when no estimate is available; the reply
// template substitutes the static fallback.
func (e *Engine) estimateDelivery(ctx context.Context, tenantID, city string) string {
	if e.shipping == nil {
		return ""
	}

	opCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	estimate, err := e.shipping.EstimateDeliveryTime(opCtx, tenantID, city)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("city", city).Msg("delivery estimate unavailable")
		return ""
	}
	return estimate
}

func (e *Engine) finish(ctx context.Context, result core.ExtractionResult) core.ExtractionResult {
	metrics.ExtractionResults.WithLabelValues(string(result.Status)).Inc()
	log.FromCtx(ctx).Debug().
		Str("status", string(result.Status)).
		Strs("missing", result.MissingFields).
		Msg("message processed")
	return result
}

// Reconcile merges regex hints into the model's draft. A phone found in
// the current message always wins; other hints only fill gaps.
func Reconcile(result *core.ExtractionResult, hints Hints) {
	if result.Order == nil {
		if hints.Empty() {
			return
		}
		result.Order = &core.OrderDraft{}
	}
	d := result.Order

	if hints.Phone != "" {
		d.CustomerPhone = hints.Phone
	} else if p := NormalizePhone(d.CustomerPhone); p != "" {
		d.CustomerPhone = p
	}
	if strings.TrimSpace(d.CustomerName) == "" {
		d.CustomerName = hints.Name
	}
	if strings.TrimSpace(d.CustomerAddress) == "" {
		d.CustomerAddress = hints.Address
	}
	if strings.TrimSpace(d.City) == "" {
		d.City = hints.City
	}
	d.City = core.NormalizeCity(d.City)

	if hints.Size != "" || hints.Color != "" {
		if len(d.Items) == 0 {
			d.Items = []core.OrderItem{{}}
		}
		last := &d.Items[len(d.Items)-1]
		if last.Size == "" {
			last.Size = hints.Size
		}
		if last.Color == "" {
			last.Color = hints.Color
		}
	}
	for i := range d.Items {
		if d.Items[i].Quantity <= 0 {
			d.Items[i].Quantity = 1
		}
	}
}

// enforceTransitions recomputes missing fields from the draft and keeps the
// status consistent with them. Only the current message can confirm.
func enforceTransitions(result *core.ExtractionResult, message string, texts replies) {
	result.MissingFields = result.Order.MissingFields()
	missing := len(result.MissingFields) > 0

	if !result.Status.Valid() || result.Status == core.StatusError {
		result.Status = core.StatusClarificationNeeded
		if !missing {
			result.Status = core.StatusComplete
		}
	}

	switch result.Status {
	case core.StatusComplete, core.StatusConfirmed:
		if missing {
			result.Status = core.StatusCollectingData
			result.Response = texts.AskFields(result.MissingFields)
			return
		}
		if result.Status == core.StatusConfirmed && !IsAffirmation(message) {
			result.Status = core.StatusComplete
			result.Response = texts.AskConfirm(result.Order)
			return
		}
	case core.StatusCollectingData:
		if !missing {
			result.Status = core.StatusComplete
			result.Response = texts.AskConfirm(result.Order)
			return
		}
	}

	if result.Response == "" {
		if missing {
			result.Response = texts.AskFields(result.MissingFields)
		} else {
			result.Response = texts.AskConfirm(result.Order)
		}
	}
}
