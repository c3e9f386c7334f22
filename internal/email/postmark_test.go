package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-token", "noreply@example.com", "https://motiveme.test/")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}
	return client
}

func TestSendWitnessInvite(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	})

	err := client.SendWitnessInvite(context.Background(), "bob@example.com", "Alice", "Run daily", "Pay for <pizza>", "tok123")
	if err != nil {
		t.Fatalf("send witness invite: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "bob@example.com" {
		t.Errorf("To = %q, want %q", received.To, "bob@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if received.Subject != `Alice named you witness of "Run daily"` {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "https://motiveme.test/witness/tok123") {
		t.Errorf("TextBody missing witness link: %q", received.TextBody)
	}
	if !strings.Contains(received.HtmlBody, "Pay for &lt;pizza&gt;") {
		t.Errorf("HtmlBody not escaped: %q", received.HtmlBody)
	}
}

func TestSendChallengeFailedIncludesGage(t *testing.T) {
	var received postmarkEmail
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	})

	err := client.SendChallengeFailed(context.Background(), "bob@example.com", "Alice", "Run daily", "Wash the car", 43, "tok")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !strings.Contains(received.TextBody, "Wash the car") || !strings.Contains(received.TextBody, "43%") {
		t.Errorf("TextBody = %q", received.TextBody)
	}
	if received.Tag != "challenge-failed" {
		t.Errorf("Tag = %q", received.Tag)
	}
}

func TestSendChallengeCompleted(t *testing.T) {
	var received postmarkEmail
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	})

	if err := client.SendChallengeCompleted(context.Background(), "bob@example.com", "Alice", "Run daily", "tok"); err != nil {
		t.Fatalf("send completed: %v", err)
	}
	if received.Subject != `Alice completed "Run daily"` {
		t.Errorf("Subject = %q", received.Subject)
	}
}

func TestSendDailyReminder(t *testing.T) {
	var received postmarkEmail
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	})

	if err := client.SendDailyReminder(context.Background(), "alice@example.com", "Alice", nil); err != nil {
		t.Fatalf("empty reminder: %v", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 for empty reminder", calls)
	}

	err := client.SendDailyReminder(context.Background(), "alice@example.com", "Alice", []string{"Run daily", "Read"})
	if err != nil {
		t.Fatalf("send reminder: %v", err)
	}
	if received.Subject != "2 check-ins waiting for today" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.HtmlBody, "<li>Read</li>") {
		t.Errorf("HtmlBody = %q", received.HtmlBody)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://motiveme.test")

	err := client.SendChallengeCompleted(context.Background(), "bob@example.com", "Alice", "Run", "tok")
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	err := client.SendChallengeCompleted(context.Background(), "bob@example.com", "Alice", "Run", "tok")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	c1 := NewClient("token", "from@test.com", "https://test.com")
	if !c1.Configured() {
		t.Error("expected Configured() = true")
	}

	c2 := NewClient("", "from@test.com", "https://test.com")
	if c2.Configured() {
		t.Error("expected Configured() = false")
	}
}

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
