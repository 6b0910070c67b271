package mailchimp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAddToList(t *testing.T) {
	var (
		gotPath string
		gotUser string
		gotPass string
		gotBody member
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:  "key-123",
		Lists:   map[string]string{"signups": "list-1"},
		BaseURL: srv.URL + "/",
	}, srv.Client())

	if err := c.AddToList(context.Background(), "jane@example.com", "signups"); err != nil {
		t.Fatalf("add to list: %v", err)
	}
	if gotPath != "/lists/list-1/members/" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUser != "apikey" || gotPass != "key-123" {
		t.Fatalf("unexpected basic auth %q:%q", gotUser, gotPass)
	}
	if gotBody.EmailAddress != "jane@example.com" || gotBody.Status != "subscribed" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestAddToListUnknownList(t *testing.T) {
	c := NewClient(Config{Lists: map[string]string{}}, nil)
	err := c.AddToList(context.Background(), "jane@example.com", "signups")
	if err == nil || !strings.Contains(err.Error(), "unknown list") {
		t.Fatalf("expected unknown list error, got %v", err)
	}
}

func TestAddToListErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Member Exists"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Lists: map[string]string{"signups": "l"}, BaseURL: srv.URL}, srv.Client())
	err := c.AddToList(context.Background(), "jane@example.com", "signups")
	if err == nil || !strings.Contains(err.Error(), "Member Exists") {
		t.Fatalf("expected status error with detail, got %v", err)
	}
}

func TestNewClientRegionURL(t *testing.T) {
	c := NewClient(Config{Region: "us4"}, nil)
	if c.baseURL != "https://us4.api.mailchimp.com/3.0" {
		t.Fatalf("unexpected base url %q", c.baseURL)
	}
}
