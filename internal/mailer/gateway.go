package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway is a thin client for the transactional email service. Sends are
// best-effort: the caller logs failures and moves on, there is no retry.
type Gateway struct {
	apiURL     string
	apiKey     string
	senderName string
	senderAddr string
	httpClient *http.Client
}

// emailRequest is the wire format of the email service.
type emailRequest struct {
	Sender      emailParty   `json:"sender"`
	To          []emailParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
}

type emailParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// NewGateway creates an email gateway. The timeout bounds the complete
// request; a timed-out send counts as a failure.
func NewGateway(apiURL, apiKey, senderName, senderAddr string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Gateway{
		apiURL:     apiURL,
		apiKey:     apiKey,
		senderName: senderName,
		senderAddr: senderAddr,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendLowStockAlert sends the low-stock restock request to a supplier.
// Any transport error or non-2xx response is a failure.
func (g *Gateway) SendLowStockAlert(ctx context.Context, supplierEmail, productName string, quantity int) error {
	payload := emailRequest{
		Sender:  emailParty{Name: g.senderName, Email: g.senderAddr},
		To:      []emailParty{{Email: supplierEmail}},
		Subject: fmt.Sprintf("⚠️ Low Stock Alert: %s", productName),
		HTMLContent: fmt.Sprintf(
			"<p>Dear Supplier,</p>"+
				"<p>The product <strong>%s</strong> is running low on stock. Only %d units are left.</p>"+
				"<p>Please restock as soon as possible.</p>"+
				"<p>Thank you!</p>",
			productName, quantity),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
