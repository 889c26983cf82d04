package transport

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
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
)

// HTTPSender posts outbound messages to the chat gateway sidecar.
type HTTPSender struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewHTTPSender builds a sender from transport configuration.
func NewHTTPSender(cfg config.TransportConfig) (*HTTPSender, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("transport base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
	}, nil
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send posts one text message to the customer.
func (s *HTTPSender) Send(ctx context.Context, customerID, text string) error {
	if strings.TrimSpace(customerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	encoded, err := json.Marshal(sendRequest{To: customerID, Text: text})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode send request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(encoded))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build send request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call chat transport")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("transport returned %d", resp.StatusCode))
	}
	return nil
}
