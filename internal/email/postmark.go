package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
)

const postmarkURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

// WitnessURL is the public progress page for a witness token.
func (c *Client) WitnessURL(token string) string {
	return fmt.Sprintf("%s/witness/%s", c.baseURL, token)
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

// SendWitnessInvite tells the witness they have been named on a challenge.
func (c *Client) SendWitnessInvite(ctx context.Context, to, ownerName, title, gage, witnessToken string) error {
	link := c.WitnessURL(witnessToken)
	subject := fmt.Sprintf("%s named you witness of \"%s\"", ownerName, title)
	text := fmt.Sprintf(
		"%s started the challenge \"%s\" and chose you as witness.\n\nIf they fail, the gage is: %s\n\nFollow their progress:\n%s",
		ownerName, title, gage, link,
	)
	body := fmt.Sprintf(
		`<p><strong>%s</strong> started the challenge <strong>%s</strong> and chose you as witness.</p><p>If they fail, the gage is: <em>%s</em></p><p><a href="%s">Follow their progress</a></p>`,
		html.EscapeString(ownerName), html.EscapeString(title), html.EscapeString(gage), link,
	)
	return c.send(ctx, to, subject, body, text, "witness-invite")
}

// SendChallengeCompleted tells the witness the challenge was completed.
func (c *Client) SendChallengeCompleted(ctx context.Context, to, ownerName, title, witnessToken string) error {
	link := c.WitnessURL(witnessToken)
	subject := fmt.Sprintf("%s completed \"%s\"", ownerName, title)
	text := fmt.Sprintf("%s checked in every day of \"%s\". No gage this time.\n\n%s", ownerName, title, link)
	body := fmt.Sprintf(
		`<p><strong>%s</strong> checked in every day of <strong>%s</strong>. No gage this time.</p><p><a href="%s">See the results</a></p>`,
		html.EscapeString(ownerName), html.EscapeString(title), link,
	)
	return c.send(ctx, to, subject, body, text, "challenge-completed")
}

// SendChallengeFailed tells the witness the challenge failed and which gage is owed.
func (c *Client) SendChallengeFailed(ctx context.Context, to, ownerName, title, gage string, completionRate int, witnessToken string) error {
	link := c.WitnessURL(witnessToken)
	subject := fmt.Sprintf("%s failed \"%s\"", ownerName, title)
	text := fmt.Sprintf(
		"%s finished \"%s\" at %d%%. The gage is due: %s\n\n%s",
		ownerName, title, completionRate, gage, link,
	)
	body := fmt.Sprintf(
		`<p><strong>%s</strong> finished <strong>%s</strong> at %d%%.</p><p>The gage is due: <em>%s</em></p><p><a href="%s">See the results</a></p>`,
		html.EscapeString(ownerName), html.EscapeString(title), completionRate, html.EscapeString(gage), link,
	)
	return c.send(ctx, to, subject, body, text, "challenge-failed")
}

// SendDailyReminder lists the challenges still waiting for today's check-in.
func (c *Client) SendDailyReminder(ctx context.Context, to, name string, titles []string) error {
	if len(titles) == 0 {
		return nil
	}
	subject := "Don't forget today's check-in"
	if len(titles) > 1 {
		subject = fmt.Sprintf("%d check-ins waiting for today", len(titles))
	}

	var text, items strings.Builder
	fmt.Fprintf(&text, "Hi %s, you have not checked in today on:\n\n", name)
	for _, t := range titles {
		fmt.Fprintf(&text, "- %s\n", t)
		fmt.Fprintf(&items, "<li>%s</li>", html.EscapeString(t))
	}
	fmt.Fprintf(&text, "\n%s", c.baseURL)
	body := fmt.Sprintf(
		`<p>Hi %s, you have not checked in today on:</p><ul>%s</ul><p><a href="%s">Check in now</a></p>`,
		html.EscapeString(name), items.String(), c.baseURL,
	)
	return c.send(ctx, to, subject, body, text.String(), "daily-reminder")
}

func (c *Client) send(ctx context.Context, to, subject, htmlBody, textBody, tag string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       to,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
		Tag:      tag,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
