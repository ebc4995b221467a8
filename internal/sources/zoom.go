package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	zoomBaseURL  = "https://api.zoom.us/v2"
	zoomTokenURL = "https://zoom.us/oauth/token"
)

// ZoomClient retrieves meeting transcripts through the Zoom REST API using
// server-to-server OAuth (account_credentials grant).
type ZoomClient struct {
	clientID     string
	clientSecret string
	accountID    string
	httpClient   *http.Client
	baseURL      string
	tokenURL     string
	configured   bool

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewZoomClientFromEnv builds a Zoom client from ZOOM_CLIENT_ID,
// ZOOM_CLIENT_SECRET and ZOOM_ACCOUNT_ID.
func NewZoomClientFromEnv() *ZoomClient {
	c := &ZoomClient{
		clientID:     os.Getenv("ZOOM_CLIENT_ID"),
		clientSecret: os.Getenv("ZOOM_CLIENT_SECRET"),
		accountID:    os.Getenv("ZOOM_ACCOUNT_ID"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      zoomBaseURL,
		tokenURL:     zoomTokenURL,
	}
	c.configured = c.clientID != "" && c.clientSecret != "" && c.accountID != ""
	if !c.configured {
		log.Printf("zoom: credentials not fully configured, source disabled")
	}
	return c
}

// accessToken returns a cached account token, fetching a new one when the
// cached token is within five minutes of expiry.
func (c *ZoomClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"account_credentials"},
		"account_id": {c.accountID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("zoom token error (%d): %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn-300) * time.Second)
	return c.token, nil
}

type zoomMeetingList struct {
	Meetings []struct {
		ID    json.Number `json:"id"`
		Topic string      `json:"topic"`
	} `json:"meetings"`
}

type zoomRecording struct {
	Topic          string `json:"topic"`
	StartTime      string `json:"start_time"`
	Duration       int    `json:"duration"`
	RecordingFiles []struct {
		FileType    string `json:"file_type"`
		DownloadURL string `json:"download_url"`
	} `json:"recording_files"`
}

// RecentTranscripts fetches transcripts of recent meetings. Meetings with no
// cloud recording transcript yield a placeholder transcript rather than an
// error.
func (c *ZoomClient) RecentTranscripts(ctx context.Context, daysBack, limit int) ([]Transcript, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var list zoomMeetingList
	listURL := fmt.Sprintf("%s/users/me/meetings?type=scheduled&page_size=%d", c.baseURL, limit)
	if err := c.getJSON(ctx, token, listURL, &list); err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}

	transcripts := make([]Transcript, 0, len(list.Meetings))
	for _, m := range list.Meetings {
		if len(transcripts) >= limit {
			break
		}
		t, err := c.meetingTranscript(ctx, token, m.ID.String())
		if err != nil {
			log.Printf("zoom: transcript for meeting %s: %v", m.ID, err)
			continue
		}
		transcripts = append(transcripts, t)
	}
	_ = daysBack // the meetings listing endpoint has no lookback filter
	return transcripts, nil
}

func (c *ZoomClient) meetingTranscript(ctx context.Context, token, meetingID string) (Transcript, error) {
	var rec zoomRecording
	recURL := fmt.Sprintf("%s/meetings/%s/recordings", c.baseURL, meetingID)
	if err := c.getJSON(ctx, token, recURL, &rec); err != nil {
		return Transcript{}, err
	}

	text := "No transcript available"
	for _, f := range rec.RecordingFiles {
		if f.FileType != "TRANSCRIPT" || f.DownloadURL == "" {
			continue
		}
		if body, err := c.download(ctx, token, f.DownloadURL); err == nil {
			text = body
		} else {
			log.Printf("zoom: downloading transcript for meeting %s: %v", meetingID, err)
		}
		break
	}

	return Transcript{
		MeetingID:  meetingID,
		Topic:      rec.Topic,
		StartTime:  rec.StartTime,
		Duration:   rec.Duration,
		Transcript: text,
	}, nil
}

func (c *ZoomClient) getJSON(ctx context.Context, token, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("zoom API error (%d): %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *ZoomClient) download(ctx context.Context, token, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download error (%d)", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
