// Package orderapi is the terminal's HTTP client for the order persistence backend and its
// catalog reads.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

const (
	defaultTimeout              = 10 * time.Second
	idempotencyHeader           = "Idempotency-Key"
	terminalHeader              = "X-Terminal-Id"
	responseBodyReadLimit int64 = 1 << 20
)

var errBaseURLRequired = errors.New("order api base url is required")

// Client talks to the order backend's REST surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	terminalID string
	newKey     func() string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the default HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithTerminalID identifies the terminal on every request. The backend scopes idempotent
// replays per terminal.
func WithTerminalID(id string) Option {
	return func(c *Client) {
		c.terminalID = strings.TrimSpace(id)
	}
}

// NewClient builds a backend client rooted at baseURL, e.g. "http://localhost:8080".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse order api base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		newKey:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) EnsureOrder(ctx context.Context, slot string) (*types.OrderHandle, error) {
	var handle types.OrderHandle
	if err := c.do(ctx, http.MethodPost, slotPath(slot, ""), nil, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

func (c *Client) GetOrder(ctx context.Context, slot string) (*types.OrderSnapshot, error) {
	var snapshot types.OrderSnapshot
	if err := c.do(ctx, http.MethodGet, slotPath(slot, ""), nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) ReplaceItems(ctx context.Context, slot string, req types.ReplaceItemsRequest) error {
	return c.do(ctx, http.MethodPut, slotPath(slot, "/items"), req, nil)
}

func (c *Client) SetDiscount(ctx context.Context, slot string, amount decimal.Decimal) error {
	return c.do(ctx, http.MethodPut, slotPath(slot, "/discount"), types.AmountRequest{Amount: amount}, nil)
}

func (c *Client) SetSurcharge(ctx context.Context, slot string, amount decimal.Decimal) error {
	return c.do(ctx, http.MethodPut, slotPath(slot, "/surcharge"), types.AmountRequest{Amount: amount}, nil)
}

func (c *Client) SetClient(ctx context.Context, slot string, clientID *uuid.UUID) error {
	return c.do(ctx, http.MethodPut, slotPath(slot, "/client"), types.ClientRequest{ClientID: clientID}, nil)
}

func (c *Client) ListPayments(ctx context.Context, orderID uuid.UUID) ([]types.PaymentRow, error) {
	var rows []types.PaymentRow
	if err := c.do(ctx, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/payments", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) CreateCompositePaymentMethod(ctx context.Context, methodIDs []uuid.UUID) (uuid.UUID, error) {
	var method types.PaymentMethod
	err := c.do(ctx, http.MethodPost, "/api/v1/payment-methods/composite", types.CompositeMethodRequest{MethodIDs: methodIDs}, &method)
	if err != nil {
		return uuid.Nil, err
	}
	return method.ID, nil
}

func (c *Client) RecordPayment(ctx context.Context, slot string, req types.RecordPaymentRequest) ([]types.PaymentRow, error) {
	var rows []types.PaymentRow
	if err := c.do(ctx, http.MethodPost, slotPath(slot, "/payments"), req, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) UpdatePayment(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/payments/"+paymentID.String(), types.AmountRequest{Amount: amount}, nil)
}

func (c *Client) DeletePayment(ctx context.Context, orderID, methodID uuid.UUID) error {
	path := fmt.Sprintf("/api/v1/orders/%s/payments/methods/%s", orderID, methodID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) FinalizeOrder(ctx context.Context, slot string) error {
	return c.do(ctx, http.MethodPost, slotPath(slot, "/finalize"), nil, nil)
}

func (c *Client) DeleteOrder(ctx context.Context, slot string) error {
	return c.do(ctx, http.MethodDelete, slotPath(slot, ""), nil, nil)
}

func (c *Client) Product(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	var product types.Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog/products/"+id.String(), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ComplementCategories(ctx context.Context, productID uuid.UUID) ([]types.ComplementCategory, error) {
	var categories []types.ComplementCategory
	path := "/api/v1/catalog/products/" + productID.String() + "/complements"
	if err := c.do(ctx, http.MethodGet, path, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) PaymentMethods(ctx context.Context) ([]types.PaymentMethod, error) {
	var methods []types.PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/api/v1/catalog/payment-methods", nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

func slotPath(slot, suffix string) string {
	return "/api/v1/slots/" + url.PathEscape(slot) + "/order" + suffix
}

// do sends one request and decodes the {"data": ...} envelope into out. Error envelopes keep
// the backend's code when it is one we know; anything else is classified by status.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodePersistence, "order api client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.terminalID != "" {
		req.Header.Set(terminalHeader, c.terminalID)
	}
	if method != http.MethodGet {
		req.Header.Set(idempotencyHeader, c.newKey())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var envelope types.Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "decode response envelope")
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "decode response data")
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var envelope types.ErrorEnvelope
	code := pkgerrors.CodeForStatus(status)
	message := fmt.Sprintf("backend returned status %d", status)
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		switch remote := pkgerrors.Code(envelope.Error.Code); {
		case pkgerrors.Known(remote):
			code = remote
		case envelope.Error.Retryable:
			// codes from a newer backend still keep their retry hint
			code = pkgerrors.CodePersistence
		}
		if envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
	}
	typed := pkgerrors.New(code, message)
	if envelope.Error.Details != nil {
		typed = typed.WithDetails(envelope.Error.Details)
	}
	return typed
}
