// Package sources contains the thin HTTP clients for the four integrated
// systems. Each client reads its credentials from conventional environment
// variables at construction; missing credentials never fail construction,
// the client just reports ErrNotConfigured from every fetch so the caller
// degrades that source to empty results.
package sources

import "errors"

// ErrNotConfigured is returned by every fetch operation of a client whose
// credentials were absent at construction time.
var ErrNotConfigured = errors.New("source credentials not configured")

// Email is a raw Gmail message record.
type Email struct {
	ID       string
	ThreadID string
	Subject  string
	From     string
	To       string
	Date     string // vendor-formatted, parsed by the normalizer
	Body     string
	Snippet  string
}

// Transcript is a raw Zoom meeting transcript record.
type Transcript struct {
	MeetingID  string
	Topic      string
	StartTime  string // RFC3339 from the vendor, parsed by the normalizer
	Duration   int
	Transcript string
}

// Page is a raw Notion page record, without block content.
type Page struct {
	ID             string
	Title          string
	CreatedTime    string
	LastEditedTime string
	URL            string
}

// Block is one text-bearing content block of a Notion page.
type Block struct {
	Type string
	Text string
}

// Opportunity is a raw Salesforce opportunity record.
type Opportunity struct {
	ID               string
	Name             string
	StageName        string
	Amount           *float64
	CloseDate        string // 2006-01-02, parsed by the normalizer
	AccountID        string
	AccountName      string
	OwnerID          string
	OwnerName        string
	LastModifiedDate string
}

// Account is a raw Salesforce account record.
type Account struct {
	ID               string
	Name             string
	Type             string
	Industry         string
	Website          string
	Phone            string
	Description      string
	LastModifiedDate string
}

// Contact is a raw Salesforce contact record.
type Contact struct {
	ID               string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Title            string
	Department       string
	AccountID        string
	AccountName      string
	LastModifiedDate string
}
