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
	salesforceTokenURL   = "https://login.salesforce.com/services/oauth2/token"
	salesforceAPIVersion = "v56.0"
)

// SalesforceClient retrieves CRM records through the Salesforce REST API
// using the username-password OAuth flow.
type SalesforceClient struct {
	clientID      string
	clientSecret  string
	username      string
	password      string
	securityToken string
	httpClient    *http.Client
	tokenURL      string
	configured    bool

	mu          sync.Mutex
	accessToken string
	instanceURL string
	tokenExpiry time.Time
}

// NewSalesforceClientFromEnv builds a Salesforce client from
// SALESFORCE_CLIENT_ID, SALESFORCE_CLIENT_SECRET, SALESFORCE_USERNAME,
// SALESFORCE_PASSWORD and the optional SALESFORCE_SECURITY_TOKEN.
func NewSalesforceClientFromEnv() *SalesforceClient {
	c := &SalesforceClient{
		clientID:      os.Getenv("SALESFORCE_CLIENT_ID"),
		clientSecret:  os.Getenv("SALESFORCE_CLIENT_SECRET"),
		username:      os.Getenv("SALESFORCE_USERNAME"),
		password:      os.Getenv("SALESFORCE_PASSWORD"),
		securityToken: os.Getenv("SALESFORCE_SECURITY_TOKEN"),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		tokenURL:      salesforceTokenURL,
	}
	c.configured = c.clientID != "" && c.clientSecret != "" && c.username != "" && c.password != ""
	if !c.configured {
		log.Printf("salesforce: credentials not fully configured, source disabled")
	}
	return c
}

func (c *SalesforceClient) authenticate(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, c.instanceURL, nil
	}

	password := c.password + c.securityToken
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"username":      {c.username},
		"password":      {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("salesforce token error (%d): %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", "", fmt.Errorf("decoding token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.instanceURL = tok.InstanceURL
	c.tokenExpiry = time.Now().Add(55 * time.Minute) // tokens typically last an hour
	return c.accessToken, c.instanceURL, nil
}

// sfRecord is the loosely typed record shape returned by SOQL queries.
type sfRecord struct {
	ID               string    `json:"Id"`
	Name             string    `json:"Name"`
	StageName        string    `json:"StageName"`
	Amount           *float64  `json:"Amount"`
	CloseDate        string    `json:"CloseDate"`
	AccountID        string    `json:"AccountId"`
	OwnerID          string    `json:"OwnerId"`
	Type             string    `json:"Type"`
	Industry         string    `json:"Industry"`
	Website          string    `json:"Website"`
	Phone            string    `json:"Phone"`
	Description      string    `json:"Description"`
	FirstName        string    `json:"FirstName"`
	LastName         string    `json:"LastName"`
	Email            string    `json:"Email"`
	Title            string    `json:"Title"`
	Department       string    `json:"Department"`
	LastModifiedDate string    `json:"LastModifiedDate"`
	Account          *sfRelRef `json:"Account"`
	Owner            *sfRelRef `json:"Owner"`
}

type sfRelRef struct {
	Name string `json:"Name"`
}

// RecentOpportunities fetches opportunities modified in the past daysBack
// days, most recently modified first.
func (c *SalesforceClient) RecentOpportunities(ctx context.Context, daysBack, limit int) ([]Opportunity, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	since := time.Now().AddDate(0, 0, -daysBack).UTC().Format("2006-01-02T15:04:05Z")
	soql := fmt.Sprintf("SELECT Id, Name, StageName, Amount, CloseDate, AccountId, Account.Name, "+
		"LastModifiedDate, OwnerId, Owner.Name FROM Opportunity "+
		"WHERE LastModifiedDate >= %s ORDER BY LastModifiedDate DESC LIMIT %d", since, limit)

	records, err := c.query(ctx, soql)
	if err != nil {
		return nil, fmt.Errorf("querying opportunities: %w", err)
	}

	opps := make([]Opportunity, 0, len(records))
	for _, r := range records {
		opp := Opportunity{
			ID:               r.ID,
			Name:             r.Name,
			StageName:        r.StageName,
			Amount:           r.Amount,
			CloseDate:        r.CloseDate,
			AccountID:        r.AccountID,
			OwnerID:          r.OwnerID,
			LastModifiedDate: r.LastModifiedDate,
		}
		if r.Account != nil {
			opp.AccountName = r.Account.Name
		}
		if r.Owner != nil {
			opp.OwnerName = r.Owner.Name
		}
		opps = append(opps, opp)
	}
	return opps, nil
}

// AccountByID fetches a single account. Returns nil without error when the
// id matches nothing.
func (c *SalesforceClient) AccountByID(ctx context.Context, accountID string) (*Account, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	soql := fmt.Sprintf("SELECT Id, Name, Type, Industry, Website, Phone, Description, "+
		"LastModifiedDate FROM Account WHERE Id = '%s' LIMIT 1", soqlEscape(accountID))

	records, err := c.query(ctx, soql)
	if err != nil {
		return nil, fmt.Errorf("querying account %s: %w", accountID, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	r := records[0]
	return &Account{
		ID:               r.ID,
		Name:             r.Name,
		Type:             r.Type,
		Industry:         r.Industry,
		Website:          r.Website,
		Phone:            r.Phone,
		Description:      r.Description,
		LastModifiedDate: r.LastModifiedDate,
	}, nil
}

// ContactsForAccount fetches the contacts attached to an account, most
// recently modified first.
func (c *SalesforceClient) ContactsForAccount(ctx context.Context, accountID string, limit int) ([]Contact, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	soql := fmt.Sprintf("SELECT Id, FirstName, LastName, Email, Phone, AccountId, Account.Name, "+
		"Title, Department, LastModifiedDate FROM Contact "+
		"WHERE AccountId = '%s' ORDER BY LastModifiedDate DESC LIMIT %d", soqlEscape(accountID), limit)

	records, err := c.query(ctx, soql)
	if err != nil {
		return nil, fmt.Errorf("querying contacts for account %s: %w", accountID, err)
	}

	contacts := make([]Contact, 0, len(records))
	for _, r := range records {
		contact := Contact{
			ID:               r.ID,
			FirstName:        r.FirstName,
			LastName:         r.LastName,
			Email:            r.Email,
			Phone:            r.Phone,
			Title:            r.Title,
			Department:       r.Department,
			AccountID:        r.AccountID,
			LastModifiedDate: r.LastModifiedDate,
		}
		if r.Account != nil {
			contact.AccountName = r.Account.Name
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

func (c *SalesforceClient) query(ctx context.Context, soql string) ([]sfRecord, error) {
	token, instance, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/query?q=%s",
		instance, salesforceAPIVersion, url.QueryEscape(soql))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("salesforce API error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Records []sfRecord `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}
	return result.Records, nil
}

// soqlEscape prevents SOQL injection through id parameters.
func soqlEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
