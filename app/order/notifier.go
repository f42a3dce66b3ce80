package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPNotifier delivers order write-backs to the order service over HTTP.
type HTTPNotifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPNotifier(baseURL, apiKey string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNotifier{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: timeout},
	}
}

func (n *HTTPNotifier) UpdateStatus(ctx context.Context, orderID int64, status, note string) error {
	return n.post(ctx, orderID, "status", map[string]string{"status": status, "note": note})
}

func (n *HTTPNotifier) PaymentComplete(ctx context.Context, orderID int64, reference string) error {
	return n.post(ctx, orderID, "payment-complete", map[string]string{"reference": reference})
}

func (n *HTTPNotifier) CancelOrder(ctx context.Context, orderID int64, reason string) error {
	return n.post(ctx, orderID, "cancel", map[string]string{"reason": reason})
}

func (n *HTTPNotifier) post(ctx context.Context, orderID int64, action string, payload map[string]string) error {
	if n.baseURL == "" {
		return fmt.Errorf("order service base url is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := n.baseURL + "/orders/" + strconv.FormatInt(orderID, 10) + "/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if n.apiKey != "" {
		req.Header.Set("X-API-Key", n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("order service returned status=%d for %s", resp.StatusCode, action)
	}
	return nil
}
