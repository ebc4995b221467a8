package schema

import (
	"fmt"
	"strconv"
	"time"
)

// Defaults applied when the corresponding request field is absent.
const (
	DefaultDaysBack = 7
	DefaultLimit    = 10
)

// Response source identifiers, echoed in ContextResponse.Source so callers
// can tell which retrieval path produced the result.
const (
	ResponseSourceAggregation = "vibecoding-mcp"
	ResponseSourceVector      = "vibecoding-mcp-vector"
)

// ContextRequest is the body of a context query. A non-empty Query selects
// vector-ranked retrieval; without one the request is served by plain
// recency aggregation.
type ContextRequest struct {
	Query       string         `json:"query,omitempty"`
	TimeRange   map[string]any `json:"time_range,omitempty"`
	Sources     []string       `json:"sources,omitempty"`
	Limit       int            `json:"limit,omitempty"`
	EntityFocus map[string]any `json:"entity_focus,omitempty"`
}

// DaysBack returns the time_range.days_back value, defaulting to 7.
func (r *ContextRequest) DaysBack() int {
	if n, ok := intValue(r.TimeRange["days_back"]); ok && n > 0 {
		return n
	}
	return DefaultDaysBack
}

// IncludeFresh reports whether time_range.include_fresh is set.
func (r *ContextRequest) IncludeFresh() bool {
	b, _ := r.TimeRange["include_fresh"].(bool)
	return b
}

// AccountID returns entity_focus.account_id, or "" when no entity focus is
// requested.
func (r *ContextRequest) AccountID() string {
	s, _ := r.EntityFocus["account_id"].(string)
	return s
}

// EffectiveLimit returns the post-merge item cap, defaulting to 10.
func (r *ContextRequest) EffectiveLimit() int {
	if r.Limit > 0 {
		return r.Limit
	}
	return DefaultLimit
}

// EnabledSources returns the sources the request enables, all four when the
// request names none.
func (r *ContextRequest) EnabledSources() []SourceID {
	if len(r.Sources) == 0 {
		return AllSources
	}
	out := make([]SourceID, 0, len(r.Sources))
	for _, s := range r.Sources {
		out = append(out, SourceID(s))
	}
	return out
}

// Validate rejects requests that are structurally well-formed JSON but name
// unknown sources or carry a negative limit.
func (r *ContextRequest) Validate() error {
	if r.Limit < 0 {
		return fmt.Errorf("limit must be positive, got %d", r.Limit)
	}
	for _, s := range r.Sources {
		if !ValidSource(s) {
			return fmt.Errorf("unknown source %q", s)
		}
	}
	return nil
}

// intValue coerces the loosely typed time_range values into an int. JSON
// numbers arrive as float64; clients occasionally send strings.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// ContextResponse is the envelope returned by every retrieval path.
type ContextResponse struct {
	Source       string        `json:"source"`
	ContextItems []ContextItem `json:"context_items"`
	Query        string        `json:"query,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
