package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultPlunkURL is the Plunk transactional send endpoint.
const DefaultPlunkURL = "https://api.useplunk.com/v1/send"

// PlunkSender delivers mail through the Plunk HTTP API.
type PlunkSender struct {
	APIKey  string
	From    string
	APIURL  string
	ReplyTo string
	Client  *http.Client
}

type plunkSendBody struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

func (p PlunkSender) Send(ctx context.Context, to, subject, body string) error {
	if p.APIKey == "" {
		return fmt.Errorf("plunk: %w", ErrNotConfigured)
	}
	endpoint := p.APIURL
	if endpoint == "" {
		endpoint = DefaultPlunkURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	b, err := json.Marshal(plunkSendBody{To: to, Subject: subject, Body: body, From: p.From, Reply: p.ReplyTo})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg, readErr := io.ReadAll(resp.Body); readErr == nil && len(msg) > 0 {
			return fmt.Errorf("plunk send failed: status=%d body=%s", resp.StatusCode, msg)
		}
		return fmt.Errorf("plunk send failed: status=%d", resp.StatusCode)
	}
	return nil
}
