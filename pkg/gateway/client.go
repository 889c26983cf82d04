package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

const responseBodyReadLimit int64 = 1 << 20

var errAPIKeyRequired = errors.New("gateway api key is required")

// Client wraps the hosted-invoice payment gateway API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	invoiceExpiry time.Duration
	logger        *logger.Logger
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

// NewClient builds the gateway client from configuration.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("gateway base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		apiKey:        apiKey,
		invoiceExpiry: cfg.InvoiceExpiry,
		logger:        logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// CreateInvoiceParams describes a new hosted invoice.
type CreateInvoiceParams struct {
	OrderID     string
	AmountCents int64
	Description string
	CustomerRef string
}

// Invoice is the gateway's view of one payment attempt.
type Invoice struct {
	ID        string
	PayURL    string
	QRString  string
	Status    enums.IntentStatus
	ExpiresAt time.Time
}

type createInvoiceRequest struct {
	ExternalID    string `json:"external_id"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
	CustomerRef   string `json:"customer_ref,omitempty"`
	ExpirySeconds int64  `json:"expiry_seconds,omitempty"`
}

type invoiceResponse struct {
	ID        string    `json:"id"`
	PayURL    string    `json:"invoice_url"`
	QRString  string    `json:"qr_string"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiry_date"`
}

// CreateInvoice registers a hosted invoice for the order and returns the
// presentation artifacts the customer needs to pay.
func (c *Client) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error) {
	if strings.TrimSpace(params.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	body := createInvoiceRequest{
		ExternalID:  params.OrderID,
		Amount:      params.AmountCents,
		Description: params.Description,
		CustomerRef: params.CustomerRef,
	}
	if c.invoiceExpiry > 0 {
		body.ExpirySeconds = int64(c.invoiceExpiry.Seconds())
	}

	var resp invoiceResponse
	if err := c.do(ctx, http.MethodPost, "/v2/invoices", body, &resp); err != nil {
		return nil, err
	}
	return c.mapInvoice(resp)
}

// GetInvoice fetches the current status of an invoice.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	var resp invoiceResponse
	if err := c.do(ctx, http.MethodGet, "/v2/invoices/"+invoiceID, nil, &resp); err != nil {
		return nil, err
	}
	return c.mapInvoice(resp)
}

func (c *Client) mapInvoice(resp invoiceResponse) (*Invoice, error) {
	status, err := mapStatus(resp.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "map invoice status")
	}
	return &Invoice{
		ID:        resp.ID,
		PayURL:    resp.PayURL,
		QRString:  resp.QRString,
		Status:    status,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// mapStatus folds the gateway's status vocabulary into the internal one.
func mapStatus(raw string) (enums.IntentStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING", "ACTIVE":
		return enums.IntentStatusPending, nil
	case "PAID", "SETTLED", "COMPLETED":
		return enums.IntentStatusSucceeded, nil
	case "EXPIRED":
		return enums.IntentStatusExpired, nil
	case "FAILED", "VOIDED":
		return enums.IntentStatusFailed, nil
	default:
		return "", fmt.Errorf("unknown gateway status %q", raw)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "call payment gateway")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if c.logger != nil {
			logCtx := c.logger.WithFields(ctx, map[string]any{
				"gateway_status": resp.StatusCode,
				"gateway_path":   path,
			})
			c.logger.Warn(logCtx, "gateway request rejected")
		}
		return pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("gateway returned %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode gateway response")
	}
	return nil
}
