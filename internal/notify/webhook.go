package notify

import (
	"bytes"
	"complaintbot/backend/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// DeliveryHeader carries a unique id per webhook delivery so the sink can deduplicate retries.
const DeliveryHeader = "X-Delivery-ID"

// WebhookClient posts filed complaints to the external sink. With an empty URL it is disabled.
type WebhookClient struct {
	URL        string
	HTTPClient *http.Client
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{URL: url, HTTPClient: &http.Client{}}
}

func (c *WebhookClient) Enabled() bool { return c != nil && c.URL != "" }

// Post sends the record as JSON. Any non-2xx response is an error.
func (c *WebhookClient) Post(ctx context.Context, rec *models.ComplaintRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal complaint %d: %w", rec.ID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryHeader, uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook answered %d for complaint %d", resp.StatusCode, rec.ID)
	}
	return nil
}
