package sources

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const gmailBaseURL = "https://gmail.googleapis.com/gmail/v1"

// GmailClient retrieves email context through the Gmail REST API using a
// stored OAuth2 refresh token.
type GmailClient struct {
	httpClient *http.Client
	baseURL    string
	configured bool
}

// NewGmailClientFromEnv builds a Gmail client from GMAIL_CLIENT_ID,
// GMAIL_CLIENT_SECRET and GMAIL_REFRESH_TOKEN. The oauth2 transport
// refreshes the access token automatically.
func NewGmailClientFromEnv() *GmailClient {
	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	refreshToken := os.Getenv("GMAIL_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		log.Printf("gmail: credentials not fully configured, source disabled")
		return &GmailClient{baseURL: gmailBaseURL}
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
		Endpoint:     google.Endpoint,
	}
	ts := conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refreshToken})

	return &GmailClient{
		httpClient: oauth2.NewClient(context.Background(), ts),
		baseURL:    gmailBaseURL,
		configured: true,
	}
}

// RecentEmails fetches emails received in the past daysBack days.
func (c *GmailClient) RecentEmails(ctx context.Context, daysBack, limit int) ([]Email, error) {
	after := time.Now().AddDate(0, 0, -daysBack).Format("2006/01/02")
	return c.fetch(ctx, "after:"+after, limit)
}

// SearchEmails fetches emails matching the given search term.
func (c *GmailClient) SearchEmails(ctx context.Context, term string, limit int) ([]Email, error) {
	return c.fetch(ctx, term, limit)
}

type gmailListResponse struct {
	Messages []struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	} `json:"messages"`
}

type gmailMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet"`
	Payload  struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		Body struct {
			Data string `json:"data"`
		} `json:"body"`
		Parts []struct {
			MimeType string `json:"mimeType"`
			Body     struct {
				Data string `json:"data"`
			} `json:"body"`
		} `json:"parts"`
	} `json:"payload"`
}

func (c *GmailClient) fetch(ctx context.Context, query string, limit int) ([]Email, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	listURL := fmt.Sprintf("%s/users/me/messages?q=%s&maxResults=%d",
		c.baseURL, url.QueryEscape(query), limit)

	var list gmailListResponse
	if err := c.getJSON(ctx, listURL, &list); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	emails := make([]Email, 0, len(list.Messages))
	for _, m := range list.Messages {
		// Detail fetches are sequential within the source; one failed
		// message is skipped, not fatal for the batch.
		msgURL := fmt.Sprintf("%s/users/me/messages/%s?format=full", c.baseURL, m.ID)
		var msg gmailMessage
		if err := c.getJSON(ctx, msgURL, &msg); err != nil {
			log.Printf("gmail: fetching message %s: %v", m.ID, err)
			continue
		}
		emails = append(emails, emailFromMessage(msg))
	}
	return emails, nil
}

func (c *GmailClient) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gmail API error (%d): %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func emailFromMessage(msg gmailMessage) Email {
	header := func(name string) string {
		for _, h := range msg.Payload.Headers {
			if strings.EqualFold(h.Name, name) {
				return h.Value
			}
		}
		return ""
	}

	// Prefer text/plain parts; single-part messages carry the body directly.
	var body strings.Builder
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			body.WriteString(decodeBody(part.Body.Data))
		}
	}
	if body.Len() == 0 && msg.Payload.Body.Data != "" {
		body.WriteString(decodeBody(msg.Payload.Body.Data))
	}

	return Email{
		ID:       msg.ID,
		ThreadID: msg.ThreadID,
		Subject:  header("Subject"),
		From:     header("From"),
		To:       header("To"),
		Date:     header("Date"),
		Body:     body.String(),
		Snippet:  msg.Snippet,
	}
}

// decodeBody decodes the base64url message body; the API is inconsistent
// about padding.
func decodeBody(data string) string {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return ""
}
