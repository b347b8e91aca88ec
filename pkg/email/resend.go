package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const resendAPIURL = "https://api.resend.com/emails"

// Client is an email client using Resend
type Client struct {
	apiKey    string
	from      string
	portalURL string
	client    *http.Client
}

// NewClient creates a new email client
func NewClient(apiKey, from, portalURL string) *Client {
	return &Client{
		apiKey:    apiKey,
		from:      from,
		portalURL: portalURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Email represents an email to send
type Email struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// resendRequest is the request body for Resend API
type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// resendResponse is the response from Resend API
type resendResponse struct {
	ID string `json:"id"`
}

// resendError is an error response from Resend API
type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// Send sends an email
func (c *Client) Send(ctx context.Context, email Email) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("email not configured: missing RESEND_API_KEY")
	}

	reqBody := resendRequest{
		From:    c.from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", resendAPIURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp resendError
		if err := json.Unmarshal(body, &errResp); err == nil {
			return "", fmt.Errorf("resend error: %s - %s", errResp.Name, errResp.Message)
		}
		return "", fmt.Errorf("resend error: status %d - %s", resp.StatusCode, string(body))
	}

	var result resendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return result.ID, nil
}

const baseStyle = `
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .highlight { background: #f3f4f6; border-radius: 12px; padding: 24px; margin: 24px 0; }
        .button { display: inline-block; background: #4f46e5; color: #fff; padding: 12px 24px; border-radius: 8px; text-decoration: none; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }`

// SendStageChanged notifies a project participant that the delivery stage moved
func (c *Client) SendStageChanged(ctx context.Context, toEmail, projectName, fromStage, toStage string) error {
	html := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>%s</style>
</head>
<body>
    <div class="container">
        <h2>Project stage updated</h2>
        <p>Your implementation project <strong>%s</strong> has moved to a new stage:</p>
        <div class="highlight">
            <p style="margin:0"><strong>%s</strong> &rarr; <strong>%s</strong></p>
        </div>
        <p><a class="button" href="%s">Open the portal</a></p>
        <div class="footer">
            <p>BobBridge<br>This is an automated message, please do not reply.</p>
        </div>
    </div>
</body>
</html>`, baseStyle, projectName, fromStage, toStage, c.portalURL)

	text := fmt.Sprintf(`Project stage updated

Your implementation project %s has moved from %s to %s.

Open the portal: %s

BobBridge`, projectName, fromStage, toStage, c.portalURL)

	_, err := c.Send(ctx, Email{
		To:      []string{toEmail},
		Subject: fmt.Sprintf("%s moved to %s", projectName, toStage),
		HTML:    html,
		Text:    text,
	})
	return err
}

// SendTicketUpdated notifies a participant about a ticket status change
func (c *Client) SendTicketUpdated(ctx context.Context, toEmail, projectName, ticketTitle, status string) error {
	html := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>%s</style>
</head>
<body>
    <div class="container">
        <h2>Ticket updated</h2>
        <p>A ticket on <strong>%s</strong> changed status:</p>
        <div class="highlight">
            <p style="margin:0"><strong>%s</strong><br>Status: %s</p>
        </div>
        <p><a class="button" href="%s">View in portal</a></p>
        <div class="footer">
            <p>BobBridge<br>This is an automated message, please do not reply.</p>
        </div>
    </div>
</body>
</html>`, baseStyle, projectName, ticketTitle, status, c.portalURL)

	text := fmt.Sprintf(`Ticket updated

%s: "%s" is now %s.

View in portal: %s

BobBridge`, projectName, ticketTitle, status, c.portalURL)

	_, err := c.Send(ctx, Email{
		To:      []string{toEmail},
		Subject: fmt.Sprintf("Ticket update on %s", projectName),
		HTML:    html,
		Text:    text,
	})
	return err
}

// SendNewMessage notifies a participant about a new project message
func (c *Client) SendNewMessage(ctx context.Context, toEmail, projectName, authorName, preview string) error {
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>%s</style>
</head>
<body>
    <div class="container">
        <h2>New message on %s</h2>
        <p><strong>%s</strong> wrote:</p>
        <div class="highlight">
            <p style="margin:0">%s</p>
        </div>
        <p><a class="button" href="%s">Reply in portal</a></p>
        <div class="footer">
            <p>BobBridge<br>This is an automated message, please do not reply.</p>
        </div>
    </div>
</body>
</html>`, baseStyle, projectName, authorName, preview, c.portalURL)

	text := fmt.Sprintf(`New message on %s

%s wrote:

%s

Reply in portal: %s

BobBridge`, projectName, authorName, preview, c.portalURL)

	_, err := c.Send(ctx, Email{
		To:      []string{toEmail},
		Subject: fmt.Sprintf("New message on %s", projectName),
		HTML:    html,
		Text:    text,
	})
	return err
}
