// Package mailer is the HTTP client for the external mail gateway. The
// gateway owns actual mail transport; this client only submits messages
// with a bounded timeout.
package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/apperr"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send submits a message to the gateway. Gateway-side failures come back
// as Unavailable so callers can retry; rejected payloads come back as
// Validation and should not be retried.
func (c *Client) Send(msg Message) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal mail message: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/send", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "mail gateway unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		c.logger.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
			"status":  resp.StatusCode,
		}).Info("Mail submitted to gateway")
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperr.Newf(apperr.KindValidation, "mail gateway rejected message: status %d", resp.StatusCode)
	default:
		return apperr.Newf(apperr.KindUnavailable, "mail gateway returned status %d", resp.StatusCode)
	}
}
