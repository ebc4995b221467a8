// Package schema defines the common context item model shared by the
// aggregation, indexing and retrieval layers, plus the request/response
// envelopes of the context API.
package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// ItemType identifies the kind of context item.
type ItemType string

const (
	TypeEmail       ItemType = "email"
	TypeMeeting     ItemType = "meeting"
	TypeDocument    ItemType = "document"
	TypeOpportunity ItemType = "opportunity"
	TypeAccount     ItemType = "account"
	TypeContact     ItemType = "contact"
)

// SourceID identifies one of the integrated data sources.
type SourceID string

const (
	SourceGmail      SourceID = "gmail"
	SourceZoom       SourceID = "zoom"
	SourceNotion     SourceID = "notion"
	SourceSalesforce SourceID = "salesforce"
)

// AllSources lists every integrated source in fan-out order.
var AllSources = []SourceID{SourceZoom, SourceGmail, SourceNotion, SourceSalesforce}

// ValidSource reports whether s names a known source.
func ValidSource(s string) bool {
	switch SourceID(s) {
	case SourceGmail, SourceZoom, SourceNotion, SourceSalesforce:
		return true
	}
	return false
}

// Detail carries the type-specific payload of a context item. The set of
// implementations is closed; the item type and source are derived from the
// payload so they cannot disagree with it.
type Detail interface {
	ItemType() ItemType
	SourceID() SourceID
}

// EmailDetail is the payload of an email item from Gmail.
type EmailDetail struct {
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Recipients []string  `json:"recipients"`
	Date       time.Time `json:"date"`
	ThreadID   string    `json:"thread_id,omitempty"`
}

func (EmailDetail) ItemType() ItemType { return TypeEmail }
func (EmailDetail) SourceID() SourceID { return SourceGmail }

// MeetingDetail is the payload of a meeting item from Zoom.
type MeetingDetail struct {
	Title        string    `json:"title"`
	Participants []string  `json:"participants"`
	Date         time.Time `json:"date"`
	Duration     int       `json:"duration"`
	MeetingID    string    `json:"meeting_id"`
}

func (MeetingDetail) ItemType() ItemType { return TypeMeeting }
func (MeetingDetail) SourceID() SourceID { return SourceZoom }

// DocumentDetail is the payload of a document item from Notion.
type DocumentDetail struct {
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	LastEdited time.Time `json:"last_edited"`
	PageID     string    `json:"page_id"`
}

func (DocumentDetail) ItemType() ItemType { return TypeDocument }
func (DocumentDetail) SourceID() SourceID { return SourceNotion }

// OpportunityDetail is the payload of a Salesforce opportunity item.
type OpportunityDetail struct {
	Name          string     `json:"name"`
	Stage         string     `json:"stage"`
	Amount        *float64   `json:"amount,omitempty"`
	CloseDate     *time.Time `json:"close_date,omitempty"`
	AccountName   string     `json:"account_name"`
	OwnerName     string     `json:"owner_name"`
	OpportunityID string     `json:"opportunity_id"`
}

func (OpportunityDetail) ItemType() ItemType { return TypeOpportunity }
func (OpportunityDetail) SourceID() SourceID { return SourceSalesforce }

// AccountDetail is the payload of a Salesforce account item.
type AccountDetail struct {
	Name        string `json:"name"`
	Industry    string `json:"industry,omitempty"`
	Website     string `json:"website,omitempty"`
	AccountID   string `json:"account_id"`
	Description string `json:"description,omitempty"`
}

func (AccountDetail) ItemType() ItemType { return TypeAccount }
func (AccountDetail) SourceID() SourceID { return SourceSalesforce }

// ContactDetail is the payload of a Salesforce contact item.
type ContactDetail struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Title       string `json:"title,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	ContactID   string `json:"contact_id"`
}

func (ContactDetail) ItemType() ItemType { return TypeContact }
func (ContactDetail) SourceID() SourceID { return SourceSalesforce }

// ContextItem is one normalized unit of retrieved information. Items are
// immutable after creation. Detail is nil for generic items reconstructed
// from the vector index, where only the base fields survive.
type ContextItem struct {
	Type      ItemType
	Source    SourceID
	Content   string
	Metadata  map[string]any
	Timestamp time.Time
	Detail    Detail
}

// NewItem builds a typed context item. Type and source are taken from the
// payload, so the two can never disagree with the concrete detail type.
func NewItem(content string, metadata map[string]any, ts time.Time, detail Detail) ContextItem {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ContextItem{
		Type:      detail.ItemType(),
		Source:    detail.SourceID(),
		Content:   content,
		Metadata:  metadata,
		Timestamp: ts,
		Detail:    detail,
	}
}

// GenericItem builds an untyped item, used when reconstructing results from
// the vector index where only base fields are known.
func GenericItem(itemType ItemType, source SourceID, content string, metadata map[string]any, ts time.Time) ContextItem {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ContextItem{
		Type:      itemType,
		Source:    source,
		Content:   content,
		Metadata:  metadata,
		Timestamp: ts,
	}
}

// NaturalID returns the item's stable source-assigned identifier, used for
// deduplication when merging fresh and indexed results. CRM item types carry
// their ids in the payload but are deliberately not deduplicated, matching
// the merge policy of the retrieval layer.
func (it ContextItem) NaturalID() string {
	switch d := it.Detail.(type) {
	case EmailDetail:
		return d.ThreadID
	case MeetingDetail:
		return d.MeetingID
	case DocumentDetail:
		return d.PageID
	}
	return ""
}

// Title returns the primary display text of the item's payload, used by the
// coarse substring filters of the aggregation layer.
func (it ContextItem) Title() string {
	switch d := it.Detail.(type) {
	case EmailDetail:
		return d.Subject
	case MeetingDetail:
		return d.Title
	case DocumentDetail:
		return d.Title
	case OpportunityDetail:
		return d.Name
	case AccountDetail:
		return d.Name
	case ContactDetail:
		return d.Name
	}
	return ""
}

// MarshalJSON flattens the type-specific payload into the base object, so
// items serialize as heterogeneous JSON objects discriminated by type and
// source.
func (it ContextItem) MarshalJSON() ([]byte, error) {
	obj := map[string]any{
		"type":      it.Type,
		"source":    it.Source,
		"content":   it.Content,
		"metadata":  it.Metadata,
		"timestamp": it.Timestamp,
	}
	if it.Metadata == nil {
		obj["metadata"] = map[string]any{}
	}

	if it.Detail != nil {
		raw, err := json.Marshal(it.Detail)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", it.Type, err)
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("flatten %s payload: %w", it.Type, err)
		}
		for k, v := range fields {
			obj[k] = v
		}
	}

	return json.Marshal(obj)
}
