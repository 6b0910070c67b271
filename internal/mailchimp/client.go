// Package mailchimp registers addresses with Mailchimp audience lists.
package mailchimp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Client struct {
	baseURL string
	apiKey  string
	lists   map[string]string
	http    *http.Client
}

// Config holds the API credentials and the list-name to list-id mapping.
// BaseURL overrides the region endpoint.
type Config struct {
	APIKey  string
	Region  string
	Lists   map[string]string
	BaseURL string
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", cfg.Region)
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		lists:   cfg.Lists,
		http:    httpClient,
	}
}

type member struct {
	EmailAddress string `json:"email_address"`
	Status       string `json:"status"`
}

// AddToList subscribes email to the list registered under listName.
func (c *Client) AddToList(ctx context.Context, email, listName string) error {
	listID, ok := c.lists[listName]
	if !ok || listID == "" {
		return fmt.Errorf("mailchimp: unknown list %q", listName)
	}

	body, err := json.Marshal(member{EmailAddress: email, Status: "subscribed"})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lists/"+listID+"/members/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailchimp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mailchimp: add %s to %s: status %d: %s", email, listName, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
