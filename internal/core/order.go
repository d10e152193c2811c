package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusCollectingData      OrderStatus = "collecting_data"
	StatusComplete            OrderStatus = "complete"
	StatusConfirmed           OrderStatus = "confirmed"
	StatusClarificationNeeded OrderStatus = "clarification_needed"
	StatusError               OrderStatus = "error"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCollectingData, StatusComplete, StatusConfirmed, StatusClarificationNeeded, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the status ends the current evaluation.
func (s OrderStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusError
}

type OrderItem struct {
	Product  string `json:"product"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// OrderDraft is built turn by turn and never persisted before confirmation.
type OrderDraft struct {
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerAddress string      `json:"customerAddress"`
	City            string      `json:"city"`
	Items           []OrderItem `json:"items"`
}

const (
	FieldName    = "customerName"
	FieldPhone   = "customerPhone"
	FieldAddress = "customerAddress"
	FieldCity    = "city"
	FieldProduct = "product"
)

// MissingFields lists the required fields the draft has not resolved, in a
// stable order.
func (d *OrderDraft) MissingFields() []string {
	if d == nil {
		return []string{FieldName, FieldPhone, FieldAddress, FieldCity, FieldProduct}
	}
	var missing []string
	if isBlank(d.CustomerName) {
		missing = append(missing, FieldName)
	}
	if isBlank(d.CustomerPhone) {
		missing = append(missing, FieldPhone)
	}
	if isBlank(d.CustomerAddress) {
		missing = append(missing, FieldAddress)
	}
	if isBlank(d.City) {
		missing = append(missing, FieldCity)
	}
	if !d.hasProduct() {
		missing = append(missing, FieldProduct)
	}
	return missing
}

func (d *OrderDraft) hasProduct() bool {
	for _, it := range d.Items {
		if !isBlank(it.Product) {
			return true
		}
	}
	return false
}

type OrderRecord struct {
	ID                string     `json:"id"`
	OrderNumber       string     `json:"orderNumber"`
	TenantID          string     `json:"tenantId"`
	Draft             OrderDraft `json:"draft"`
	EstimatedDelivery string     `json:"estimatedDelivery,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// ExtractionResult is returned to the caller for every inbound message.
type ExtractionResult struct {
	Order         *OrderDraft  `json:"order"`
	MissingFields []string     `json:"missingFields"`
	Status        OrderStatus  `json:"status"`
	Response      string       `json:"response"`
	Intent        string       `json:"intent,omitempty"`
	Sentiment     string       `json:"sentiment,omitempty"`
	OrderCreated  *OrderRecord `json:"orderCreated,omitempty"`
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, tenantID string, draft OrderDraft) (*OrderRecord, error)
}

type ShippingLookup interface {
	// EstimateDeliveryTime returns "" when the tenant has no estimate for the city.
	EstimateDeliveryTime(ctx context.Context, tenantID, city string) (string, error)
}

// LanguageModel is the outbound LLM collaborator.
type LanguageModel interface {
	Generate(ctx context.Context, prompt, tenantID string, opts GenerateOptions) (Generation, error)
}

// AIProvider is implemented by the concrete chat-completion providers.
type AIProvider interface {
	Chat(ctx context.Context, history []Message, opts GenerateOptions) (Message, error)
	Models(ctx context.Context) ([]Model, error)
}

// CustomerProfile is what the caller knows about the participant up front.
type CustomerProfile struct {
	Name  string
	Phone string
}

// TenantProfile carries per-tenant prompt settings.
type TenantProfile struct {
	TenantID    string
	StoreName   string
	Personality string
	Language    string
}

// NewOrderNumber renders ORD-<date>-<6 hex> from a fresh uuid.
func NewOrderNumber(at time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(id[:6]))
}

// ShippingZones is the write side of ShippingLookup.
type ShippingZones interface {
	ShippingLookup
	UpsertZone(ctx context.Context, tenantID, city, estimate string) error
}
