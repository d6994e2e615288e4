// Package whatsapp integrates with a Twilio-compatible WhatsApp messaging
// gateway: outbound sends, inbound media download, TwiML replies.
package whatsapp

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxMediaBytes = 10 << 20 // gateway images top out well below this

type Client struct {
	AccountSID string
	AuthToken  string
	From       string // e.g. "whatsapp:+14155238886"
	BaseURL    string
	HTTP       *http.Client
}

func NewClient(accountSID, authToken, from string) *Client {
	return &Client{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    "https://api.twilio.com",
		HTTP:       &http.Client{Timeout: 15 * time.Second},
	}
}

// SendMessage pushes an outbound WhatsApp message through the gateway.
func (c *Client) SendMessage(ctx context.Context, to, body string) error {
	if c.AccountSID == "" || c.AuthToken == "" {
		return errors.New("whatsapp: gateway credentials not configured")
	}
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(c.BaseURL, "/"), c.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.AccountSID, c.AuthToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("whatsapp: send failed: %s", msg)
	}
	return nil
}

// DownloadMedia fetches inbound media (gateway URLs require basic auth).
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("whatsapp: media download status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// TwiML renders the webhook reply document the gateway expects.
func TwiML(message string) string {
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		// Marshal of a flat struct cannot realistically fail; keep the
		// webhook response well-formed regardless.
		return `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>` + string(out)
}
