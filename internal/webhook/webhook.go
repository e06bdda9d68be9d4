package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/replicate/go/logging"

	"github.com/regionatlas/atlasd/internal/util"
)

var logger = logging.New("atlas-webhook")

// Sender delivers reload notifications.
type Sender interface {
	Send(url string, payload any) error
}

// Build time assertion that DefaultSender implements the Sender interface
var _ Sender = (*DefaultSender)(nil)

// DefaultSender posts JSON payloads with the retrying HTTP client.
type DefaultSender struct {
	client *http.Client
}

func NewSender() *DefaultSender {
	return &DefaultSender{client: util.HTTPClientWithRetry()}
}

func (s *DefaultSender) Send(url string, payload any) error {
	log := logger.Sugar()
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	log.Debugw("sending webhook", "url", url)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
