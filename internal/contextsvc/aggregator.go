// Package contextsvc implements the aggregation engine: it fans out to the
// enabled sources, normalizes their records, merges everything by recency
// and truncates to the requested limit. One failing source contributes zero
// items and is logged; it never fails the request.
package contextsvc

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vibecoding/mcp-server/internal/normalize"
	"github.com/vibecoding/mcp-server/internal/schema"
	"github.com/vibecoding/mcp-server/internal/sources"
)

// Per-source fetch caps applied when the request sets no limit.
const (
	defaultZoomLimit       = 5
	defaultGmailLimit      = 10
	defaultNotionLimit     = 10
	defaultSalesforceLimit = 5
)

// GmailAPI is the slice of the Gmail client the aggregator needs.
type GmailAPI interface {
	RecentEmails(ctx context.Context, daysBack, limit int) ([]sources.Email, error)
	SearchEmails(ctx context.Context, term string, limit int) ([]sources.Email, error)
}

// ZoomAPI is the slice of the Zoom client the aggregator needs.
type ZoomAPI interface {
	RecentTranscripts(ctx context.Context, daysBack, limit int) ([]sources.Transcript, error)
}

// NotionAPI is the slice of the Notion client the aggregator needs.
type NotionAPI interface {
	RecentPages(ctx context.Context, limit int) ([]sources.Page, error)
	SearchPages(ctx context.Context, query string, limit int) ([]sources.Page, error)
	PageBlocks(ctx context.Context, pageID string) ([]sources.Block, error)
}

// SalesforceAPI is the slice of the Salesforce client the aggregator needs.
type SalesforceAPI interface {
	RecentOpportunities(ctx context.Context, daysBack, limit int) ([]sources.Opportunity, error)
	AccountByID(ctx context.Context, accountID string) (*sources.Account, error)
	ContactsForAccount(ctx context.Context, accountID string, limit int) ([]sources.Contact, error)
}

// Aggregator gathers context from the integrated sources.
type Aggregator struct {
	gmail      GmailAPI
	zoom       ZoomAPI
	notion     NotionAPI
	salesforce SalesforceAPI
}

// New creates an aggregator over the given source clients.
func New(gmail GmailAPI, zoom ZoomAPI, notion NotionAPI, salesforce SalesforceAPI) *Aggregator {
	return &Aggregator{gmail: gmail, zoom: zoom, notion: notion, salesforce: salesforce}
}

// GetContext fans out to the enabled sources concurrently, merges the
// normalized items newest-first and truncates to the request limit. Source
// order is fixed so that equal timestamps keep a deterministic order.
func (a *Aggregator) GetContext(ctx context.Context, req *schema.ContextRequest) (*schema.ContextResponse, error) {
	enabled := map[schema.SourceID]bool{}
	for _, s := range req.EnabledSources() {
		enabled[s] = true
	}

	buckets := make([][]schema.ContextItem, len(schema.AllSources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range schema.AllSources {
		if !enabled[src] {
			continue
		}
		i, src := i, src
		g.Go(func() error {
			items, err := a.fetchSource(gctx, src, req)
			if err != nil {
				// Absorbed: a failing source yields zero items.
				log.Printf("contextsvc: %s: %v", src, err)
				return nil
			}
			buckets[i] = items
			return nil
		})
	}
	// Goroutines never return errors; Wait only synchronizes the fan-out.
	_ = g.Wait()

	var items []schema.ContextItem
	for _, bucket := range buckets {
		items = append(items, bucket...)
	}

	// Newest first; items without a timestamp sort as oldest. The stable
	// sort keeps fan-out order for ties.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	if limit := req.EffectiveLimit(); len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []schema.ContextItem{}
	}

	return &schema.ContextResponse{
		Source:       schema.ResponseSourceAggregation,
		ContextItems: items,
		Query:        req.Query,
		Timestamp:    time.Now(),
	}, nil
}

func (a *Aggregator) fetchSource(ctx context.Context, src schema.SourceID, req *schema.ContextRequest) ([]schema.ContextItem, error) {
	switch src {
	case schema.SourceZoom:
		return a.zoomContext(ctx, req)
	case schema.SourceGmail:
		return a.gmailContext(ctx, req)
	case schema.SourceNotion:
		return a.notionContext(ctx, req)
	case schema.SourceSalesforce:
		return a.salesforceContext(ctx, req)
	}
	return nil, nil
}

// zoomContext fetches recent transcripts. When a query is present it is
// applied as a case-insensitive substring check on the transcript text — a
// coarse fallback filter, not a semantic one.
func (a *Aggregator) zoomContext(ctx context.Context, req *schema.ContextRequest) ([]schema.ContextItem, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultZoomLimit
	}
	transcripts, err := a.zoom.RecentTranscripts(ctx, req.DaysBack(), limit)
	if err != nil {
		return nil, err
	}

	var items []schema.ContextItem
	for _, t := range transcripts {
		if req.Query != "" && !containsFold(t.Transcript, req.Query) {
			continue
		}
		item, err := normalize.MeetingItem(t)
		if err != nil {
			log.Printf("contextsvc: skipping transcript: %v", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (a *Aggregator) gmailContext(ctx context.Context, req *schema.ContextRequest) ([]schema.ContextItem, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultGmailLimit
	}

	var (
		emails []sources.Email
		err    error
	)
	if req.Query != "" {
		emails, err = a.gmail.SearchEmails(ctx, req.Query, limit)
	} else {
		emails, err = a.gmail.RecentEmails(ctx, req.DaysBack(), limit)
	}
	if err != nil {
		return nil, err
	}

	var items []schema.ContextItem
	for _, e := range emails {
		item, err := normalize.EmailItem(e)
		if err != nil {
			log.Printf("contextsvc: skipping email: %v", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (a *Aggregator) notionContext(ctx context.Context, req *schema.ContextRequest) ([]schema.ContextItem, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultNotionLimit
	}

	var (
		pages []sources.Page
		err   error
	)
	if req.Query != "" {
		pages, err = a.notion.SearchPages(ctx, req.Query, limit)
	} else {
		pages, err = a.notion.RecentPages(ctx, limit)
	}
	if err != nil {
		return nil, err
	}

	var items []schema.ContextItem
	for _, p := range pages {
		// Per-page content fetch is sequential within the source; a
		// failing page is skipped, not fatal.
		blocks, err := a.notion.PageBlocks(ctx, p.ID)
		if err != nil {
			log.Printf("contextsvc: skipping page %s: %v", p.ID, err)
			continue
		}
		item, err := normalize.DocumentItem(p, blocks)
		if err != nil {
			log.Printf("contextsvc: skipping page: %v", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// salesforceContext pivots on entity focus: with an account_id it fetches
// that account plus its contacts; otherwise recent opportunities, filtered
// by a case-insensitive substring match of the query against the name.
func (a *Aggregator) salesforceContext(ctx context.Context, req *schema.ContextRequest) ([]schema.ContextItem, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSalesforceLimit
	}

	if accountID := req.AccountID(); accountID != "" {
		return a.accountContext(ctx, accountID, limit)
	}

	opportunities, err := a.salesforce.RecentOpportunities(ctx, req.DaysBack(), limit)
	if err != nil {
		return nil, err
	}

	var items []schema.ContextItem
	for _, opp := range opportunities {
		if req.Query != "" && !containsFold(opp.Name, req.Query) {
			continue
		}
		item, err := normalize.OpportunityItem(opp)
		if err != nil {
			log.Printf("contextsvc: skipping opportunity: %v", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (a *Aggregator) accountContext(ctx context.Context, accountID string, limit int) ([]schema.ContextItem, error) {
	var items []schema.ContextItem

	account, err := a.salesforce.AccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		item, err := normalize.AccountItem(*account)
		if err != nil {
			log.Printf("contextsvc: skipping account: %v", err)
		} else {
			items = append(items, item)
		}
	}

	contacts, err := a.salesforce.ContactsForAccount(ctx, accountID, limit)
	if err != nil {
		// The account item alone is still useful context.
		log.Printf("contextsvc: contacts for account %s: %v", accountID, err)
		return items, nil
	}
	for _, c := range contacts {
		item, err := normalize.ContactItem(c)
		if err != nil {
			log.Printf("contextsvc: skipping contact: %v", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
