package schema

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewItem_TypeSourceFromPayload(t *testing.T) {
	cases := []struct {
		detail Detail
		typ    ItemType
		source SourceID
	}{
		{EmailDetail{Subject: "hi"}, TypeEmail, SourceGmail},
		{MeetingDetail{Title: "standup"}, TypeMeeting, SourceZoom},
		{DocumentDetail{Title: "notes"}, TypeDocument, SourceNotion},
		{OpportunityDetail{Name: "deal"}, TypeOpportunity, SourceSalesforce},
		{AccountDetail{Name: "acme"}, TypeAccount, SourceSalesforce},
		{ContactDetail{Name: "jo"}, TypeContact, SourceSalesforce},
	}

	for _, tc := range cases {
		item := NewItem("content", nil, time.Now(), tc.detail)
		if item.Type != tc.typ {
			t.Errorf("type: got %s, want %s", item.Type, tc.typ)
		}
		if item.Source != tc.source {
			t.Errorf("source: got %s, want %s", item.Source, tc.source)
		}
		if item.Metadata == nil {
			t.Error("metadata should never be nil")
		}
	}
}

func TestContextItem_MarshalFlattensPayload(t *testing.T) {
	date := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	item := NewItem("body text", map[string]any{"id": "m1"}, date, EmailDetail{
		Subject:    "Q2 forecast",
		Sender:     "alice@example.com",
		Recipients: []string{"bob@example.com"},
		Date:       date,
		ThreadID:   "t-42",
	})

	raw, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if obj["type"] != "email" || obj["source"] != "gmail" {
		t.Errorf("discriminators: got type=%v source=%v", obj["type"], obj["source"])
	}
	if obj["subject"] != "Q2 forecast" {
		t.Errorf("payload not flattened: subject=%v", obj["subject"])
	}
	if obj["thread_id"] != "t-42" {
		t.Errorf("thread_id: got %v", obj["thread_id"])
	}
	if obj["content"] != "body text" {
		t.Errorf("content: got %v", obj["content"])
	}
}

func TestContextItem_NaturalID(t *testing.T) {
	if got := NewItem("", nil, time.Now(), EmailDetail{ThreadID: "t1"}).NaturalID(); got != "t1" {
		t.Errorf("email natural id: got %q", got)
	}
	if got := NewItem("", nil, time.Now(), MeetingDetail{MeetingID: "m1"}).NaturalID(); got != "m1" {
		t.Errorf("meeting natural id: got %q", got)
	}
	if got := NewItem("", nil, time.Now(), DocumentDetail{PageID: "p1"}).NaturalID(); got != "p1" {
		t.Errorf("document natural id: got %q", got)
	}
	// CRM types have no natural id for dedup purposes.
	if got := NewItem("", nil, time.Now(), AccountDetail{AccountID: "a1"}).NaturalID(); got != "" {
		t.Errorf("account natural id: got %q, want empty", got)
	}
}

func TestContextRequest_Defaults(t *testing.T) {
	req := &ContextRequest{}
	if got := req.DaysBack(); got != 7 {
		t.Errorf("DaysBack default: got %d", got)
	}
	if got := req.EffectiveLimit(); got != 10 {
		t.Errorf("EffectiveLimit default: got %d", got)
	}
	if req.IncludeFresh() {
		t.Error("IncludeFresh default should be false")
	}
	if got := len(req.EnabledSources()); got != 4 {
		t.Errorf("EnabledSources default: got %d sources", got)
	}
}

func TestContextRequest_TimeRangeCoercion(t *testing.T) {
	// JSON numbers decode to float64; strings show up from raw clients.
	req := &ContextRequest{TimeRange: map[string]any{"days_back": float64(14)}}
	if got := req.DaysBack(); got != 14 {
		t.Errorf("float days_back: got %d", got)
	}
	req = &ContextRequest{TimeRange: map[string]any{"days_back": "30", "include_fresh": true}}
	if got := req.DaysBack(); got != 30 {
		t.Errorf("string days_back: got %d", got)
	}
	if !req.IncludeFresh() {
		t.Error("include_fresh should be true")
	}
}

func TestContextRequest_Validate(t *testing.T) {
	if err := (&ContextRequest{Sources: []string{"gmail", "zoom"}}).Validate(); err != nil {
		t.Errorf("valid sources rejected: %v", err)
	}
	if err := (&ContextRequest{Sources: []string{"dropbox"}}).Validate(); err == nil {
		t.Error("unknown source accepted")
	}
	if err := (&ContextRequest{Limit: -1}).Validate(); err == nil {
		t.Error("negative limit accepted")
	}
}
