package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const (
	notionBaseURL    = "https://api.notion.com/v1"
	notionAPIVersion = "2022-06-28"
)

// NotionClient retrieves document context through the Notion REST API.
type NotionClient struct {
	apiKey     string
	databaseID string
	httpClient *http.Client
	baseURL    string
	configured bool
}

// NewNotionClientFromEnv builds a Notion client from NOTION_API_KEY and
// NOTION_DATABASE_ID.
func NewNotionClientFromEnv() *NotionClient {
	c := &NotionClient{
		apiKey:     os.Getenv("NOTION_API_KEY"),
		databaseID: os.Getenv("NOTION_DATABASE_ID"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    notionBaseURL,
	}
	c.configured = c.apiKey != "" && c.databaseID != ""
	if !c.configured {
		log.Printf("notion: credentials not fully configured, source disabled")
	}
	return c
}

// notionObject is the subset of a page object shared by query and search
// responses.
type notionObject struct {
	ID             string                    `json:"id"`
	CreatedTime    string                    `json:"created_time"`
	LastEditedTime string                    `json:"last_edited_time"`
	URL            string                    `json:"url"`
	Properties     map[string]notionProperty `json:"properties"`
}

type notionProperty struct {
	Type  string       `json:"type"`
	Title []notionText `json:"title"`
}

type notionText struct {
	PlainText string `json:"plain_text"`
}

type notionListResponse struct {
	Results []notionObject `json:"results"`
}

// RecentPages queries the configured database for its most recent pages.
func (c *NotionClient) RecentPages(ctx context.Context, limit int) ([]Page, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	body := map[string]any{"page_size": limit}
	var resp notionListResponse
	endpoint := fmt.Sprintf("%s/databases/%s/query", c.baseURL, c.databaseID)
	if err := c.postJSON(ctx, endpoint, body, &resp); err != nil {
		return nil, fmt.Errorf("querying database: %w", err)
	}
	return pagesFromObjects(resp.Results), nil
}

// SearchPages searches the workspace for pages matching the query.
func (c *NotionClient) SearchPages(ctx context.Context, query string, limit int) ([]Page, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	body := map[string]any{
		"query":     query,
		"page_size": limit,
		"filter":    map[string]string{"property": "object", "value": "page"},
	}
	var resp notionListResponse
	if err := c.postJSON(ctx, c.baseURL+"/search", body, &resp); err != nil {
		return nil, fmt.Errorf("searching pages: %w", err)
	}
	return pagesFromObjects(resp.Results), nil
}

type notionBlockList struct {
	Results []struct {
		Type string `json:"type"`
		// Typed block payloads share a rich_text field; capture them all.
		Paragraph *notionRichText `json:"paragraph"`
		Heading1  *notionRichText `json:"heading_1"`
		Heading2  *notionRichText `json:"heading_2"`
		Heading3  *notionRichText `json:"heading_3"`
		Bulleted  *notionRichText `json:"bulleted_list_item"`
		Numbered  *notionRichText `json:"numbered_list_item"`
	} `json:"results"`
}

type notionRichText struct {
	RichText []notionText `json:"rich_text"`
}

// PageBlocks fetches the text-bearing content blocks of a page.
func (c *NotionClient) PageBlocks(ctx context.Context, pageID string) ([]Block, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	var resp notionBlockList
	endpoint := fmt.Sprintf("%s/blocks/%s/children?page_size=100", c.baseURL, pageID)
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetching blocks for page %s: %w", pageID, err)
	}

	var blocks []Block
	for _, b := range resp.Results {
		var rt *notionRichText
		switch b.Type {
		case "paragraph":
			rt = b.Paragraph
		case "heading_1":
			rt = b.Heading1
		case "heading_2":
			rt = b.Heading2
		case "heading_3":
			rt = b.Heading3
		case "bulleted_list_item":
			rt = b.Bulleted
		case "numbered_list_item":
			rt = b.Numbered
		}
		if rt == nil {
			continue
		}
		var text string
		for _, t := range rt.RichText {
			text += t.PlainText
		}
		blocks = append(blocks, Block{Type: b.Type, Text: text})
	}
	return blocks, nil
}

func pagesFromObjects(objects []notionObject) []Page {
	pages := make([]Page, 0, len(objects))
	for _, obj := range objects {
		pages = append(pages, Page{
			ID:             obj.ID,
			Title:          titleOf(obj),
			CreatedTime:    obj.CreatedTime,
			LastEditedTime: obj.LastEditedTime,
			URL:            obj.URL,
		})
	}
	return pages
}

// titleOf finds the title property; its name varies per database schema.
func titleOf(obj notionObject) string {
	for _, prop := range obj.Properties {
		if prop.Type != "title" {
			continue
		}
		var title string
		for _, t := range prop.Title {
			title += t.PlainText
		}
		return title
	}
	return ""
}

func (c *NotionClient) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *NotionClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *NotionClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", notionAPIVersion)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notion API error (%d): %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
