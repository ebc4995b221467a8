// Package normalize converts raw source records into typed context items.
// Conversion is per-record: a record whose required fields cannot be derived
// yields an error, which callers log and skip so one malformed record never
// aborts a batch. Unparsable dates fall back to the current time instead of
// failing the record.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/vibecoding/mcp-server/internal/schema"
	"github.com/vibecoding/mcp-server/internal/sources"
)

// gmailDateLayouts are tried in order against the Date header.
var gmailDateLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// parseTime tries each layout, falling back to the current time. The
// fallback is deliberate: a bad date must not drop the record.
func parseTime(value string, layouts ...string) time.Time {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now()
}

// EmailItem converts a raw Gmail record. The full body is preferred as
// content, falling back to the snippet.
func EmailItem(e sources.Email) (schema.ContextItem, error) {
	content := e.Body
	if content == "" {
		content = e.Snippet
	}

	date := parseTime(e.Date, gmailDateLayouts...)

	return schema.NewItem(content, map[string]any{
		"source": string(schema.SourceGmail),
		"id":     e.ID,
	}, date, schema.EmailDetail{
		Subject:    e.Subject,
		Sender:     e.From,
		Recipients: []string{e.To},
		Date:       date,
		ThreadID:   e.ThreadID,
	}), nil
}

// MeetingItem converts a raw Zoom transcript record.
func MeetingItem(t sources.Transcript) (schema.ContextItem, error) {
	if t.MeetingID == "" {
		return schema.ContextItem{}, fmt.Errorf("transcript has no meeting id")
	}

	topic := t.Topic
	if topic == "" {
		topic = "Unknown Meeting"
	}
	date := parseTime(t.StartTime, time.RFC3339)

	return schema.NewItem(t.Transcript, map[string]any{
		"source": string(schema.SourceZoom),
		"date":   t.StartTime,
	}, date, schema.MeetingDetail{
		Title:        topic,
		Participants: []string{"Unknown"}, // participant extraction needs the reports API
		Date:         date,
		Duration:     t.Duration,
		MeetingID:    t.MeetingID,
	}), nil
}

// DocumentItem converts a raw Notion page plus its content blocks.
func DocumentItem(p sources.Page, blocks []sources.Block) (schema.ContextItem, error) {
	if p.ID == "" {
		return schema.ContextItem{}, fmt.Errorf("page has no id")
	}

	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, b.Text)
	}

	title := p.Title
	if title == "" {
		title = "Untitled"
	}
	lastEdited := parseTime(p.LastEditedTime, time.RFC3339)

	return schema.NewItem(strings.Join(texts, "\n"), map[string]any{
		"source":       string(schema.SourceNotion),
		"url":          p.URL,
		"created_time": p.CreatedTime,
	}, lastEdited, schema.DocumentDetail{
		Title:      title,
		Authors:    []string{"Unknown"},
		LastEdited: lastEdited,
		PageID:     p.ID,
	}), nil
}

// OpportunityItem converts a raw Salesforce opportunity record.
func OpportunityItem(o sources.Opportunity) (schema.ContextItem, error) {
	if o.ID == "" {
		return schema.ContextItem{}, fmt.Errorf("opportunity has no id")
	}

	name := o.Name
	if name == "" {
		name = "Unknown Opportunity"
	}
	stage := o.StageName
	if stage == "" {
		stage = "Unknown Stage"
	}
	accountName := o.AccountName
	if accountName == "" {
		accountName = "Unknown Account"
	}
	ownerName := o.OwnerName
	if ownerName == "" {
		ownerName = "Unknown Owner"
	}

	var closeDate *time.Time
	if o.CloseDate != "" {
		if t, err := time.Parse("2006-01-02", o.CloseDate); err == nil {
			closeDate = &t
		}
	}

	amountText := "unknown"
	if o.Amount != nil {
		amountText = fmt.Sprintf("%.2f", *o.Amount)
	}
	content := fmt.Sprintf("Opportunity: %s, Stage: %s, Amount: %s", name, stage, amountText)

	return schema.NewItem(content, map[string]any{
		"source":        string(schema.SourceSalesforce),
		"account_id":    o.AccountID,
		"owner_id":      o.OwnerID,
		"last_modified": o.LastModifiedDate,
	}, parseTime(o.LastModifiedDate, time.RFC3339), schema.OpportunityDetail{
		Name:          name,
		Stage:         stage,
		Amount:        o.Amount,
		CloseDate:     closeDate,
		AccountName:   accountName,
		OwnerName:     ownerName,
		OpportunityID: o.ID,
	}), nil
}

// AccountItem converts a raw Salesforce account record.
func AccountItem(a sources.Account) (schema.ContextItem, error) {
	if a.ID == "" {
		return schema.ContextItem{}, fmt.Errorf("account has no id")
	}

	content := a.Description
	if content == "" {
		content = "No description available"
	}
	name := a.Name
	if name == "" {
		name = "Unknown Account"
	}

	return schema.NewItem(content, map[string]any{
		"source":        string(schema.SourceSalesforce),
		"type":          a.Type,
		"phone":         a.Phone,
		"last_modified": a.LastModifiedDate,
	}, parseTime(a.LastModifiedDate, time.RFC3339), schema.AccountDetail{
		Name:        name,
		Industry:    a.Industry,
		Website:     a.Website,
		AccountID:   a.ID,
		Description: a.Description,
	}), nil
}

// ContactItem converts a raw Salesforce contact record.
func ContactItem(c sources.Contact) (schema.ContextItem, error) {
	if c.ID == "" {
		return schema.ContextItem{}, fmt.Errorf("contact has no id")
	}

	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	title := c.Title
	if title == "" {
		title = "No title"
	}
	email := c.Email
	if email == "" {
		email = "No email"
	}
	content := fmt.Sprintf("Contact: %s, %s, %s", name, title, email)

	return schema.NewItem(content, map[string]any{
		"source":        string(schema.SourceSalesforce),
		"department":    c.Department,
		"account_id":    c.AccountID,
		"last_modified": c.LastModifiedDate,
	}, parseTime(c.LastModifiedDate, time.RFC3339), schema.ContactDetail{
		Name:        name,
		Email:       c.Email,
		Phone:       c.Phone,
		Title:       c.Title,
		AccountName: c.AccountName,
		ContactID:   c.ID,
	}), nil
}
