package utils

import (
	"fmt"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

type CompletionEvent struct {
	Event       string     `json:"event"`
	UserID      uint       `json:"user_id"`
	CourseID    uint       `json:"course_id"`
	Progress    float64    `json:"progress"`
	CompletedAt *time.Time `json:"completed_at"`
}

// WebhookClient posts course events to an external endpoint.
type WebhookClient struct {
	client *resty.Client
	url    string
}

// NewWebhookClient returns nil when url is empty.
func NewWebhookClient(url string) *WebhookClient {
	if url == "" {
		return nil
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json")
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal
	return &WebhookClient{client: client, url: url}
}

func (w *WebhookClient) PostCompletion(event CompletionEvent) error {
	if w == nil {
		return nil
	}
	resp, err := w.client.R().SetBody(event).Post(w.url)
	if err != nil {
		return fmt.Errorf("post completion webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("completion webhook responded %d: %s", resp.StatusCode(), resp.String())
	}
	log.Printf("[WEBHOOK] Delivered %s for user %d course %d", event.Event, event.UserID, event.CourseID)
	return nil
}
