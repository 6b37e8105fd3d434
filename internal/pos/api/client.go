// Package api is the REST client for the POS backend: order submission and
// catalog bootstrap.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Smarticus81/bevpro-sync/internal/platform/timeouts"
	"github.com/Smarticus81/bevpro-sync/internal/pos/domain"
)

const tracerName = "github.com/Smarticus81/bevpro-sync/internal/pos/api"

// RejectionError is a terminal synchronous rejection of an order request:
// the server processed the request and said no. The order coordinator
// resolves it immediately without waiting for a push.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Message)
}

// OrderItem is one line of an order submission.
type OrderItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// OrderRequest is the POST /orders body.
type OrderRequest struct {
	Items     []OrderItem `json:"items"`
	Total     int64       `json:"total"`
	Reference string      `json:"reference,omitempty"`
}

// Client calls the POS backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewClient creates an API client rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.HTTPRequest}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tracer:     otel.Tracer(tracerName),
	}
}

type submitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SubmitOrder posts an order. A nil return means the server accepted the
// request for processing; acceptance is not completion, which arrives
// asynchronously on the event channel. A *RejectionError return is a
// terminal rejection; any other error is a local or transport failure.
func (c *Client) SubmitOrder(ctx context.Context, order OrderRequest) error {
	ctx, span := c.tracer.Start(ctx, "pos.SubmitOrder", trace.WithAttributes(
		attribute.Int("order.items", len(order.Items)),
		attribute.Int64("order.total_cents", order.Total),
		attribute.String("order.reference", order.Reference),
	))
	defer span.End()

	body, err := json.Marshal(order)
	if err != nil {
		span.SetStatus(codes.Error, "encode")
		return fmt.Errorf("encode order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		span.SetStatus(codes.Error, "build request")
		return fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "transport")
		return fmt.Errorf("post order: %w", err)
	}
	defer resp.Body.Close()

	var payload submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		span.SetStatus(codes.Error, "decode")
		return fmt.Errorf("decode order response: %w", err)
	}
	if !payload.Success {
		message := payload.Error
		if message == "" {
			message = payload.Message
		}
		if message == "" {
			message = fmt.Sprintf("order request status %d", resp.StatusCode)
		}
		span.SetStatus(codes.Error, "rejected")
		return &RejectionError{Message: message}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		span.SetStatus(codes.Error, "status")
		return fmt.Errorf("order request status %d", resp.StatusCode)
	}
	return nil
}

type catalogDrink struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Inventory int    `json:"inventory"`
	Sales     int    `json:"sales"`
}

// FetchCatalog retrieves the drink catalog used to seed the inventory
// cache at session start.
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.InventoryRecord, error) {
	ctx, span := c.tracer.Start(ctx, "pos.FetchCatalog")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/drinks", nil)
	if err != nil {
		span.SetStatus(codes.Error, "build request")
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "transport")
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "status")
		return nil, fmt.Errorf("catalog status %d", resp.StatusCode)
	}

	var drinks []catalogDrink
	if err := json.NewDecoder(resp.Body).Decode(&drinks); err != nil {
		span.SetStatus(codes.Error, "decode")
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	records := make([]domain.InventoryRecord, 0, len(drinks))
	for _, drink := range drinks {
		if drink.ID == "" {
			continue
		}
		records = append(records, domain.InventoryRecord{
			DrinkID:   drink.ID,
			Name:      drink.Name,
			UnitPrice: drink.Price,
			Available: drink.Inventory,
			Sales:     drink.Sales,
		})
	}
	span.SetAttributes(attribute.Int("catalog.drinks", len(records)))
	return records, nil
}
