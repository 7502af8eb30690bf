// Package gradebook reads grades and feedback held by an external LMS
// gradebook over LTI Assignment and Grade Services.
package gradebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	mediaLineItems = "application/vnd.ims.lis.v2.lineitemcontainer+json"
	mediaResults   = "application/vnd.ims.lis.v2.resultcontainer+json"

	scopeLineItemRO = "https://purl.imsglobal.org/spec/lti-ags/scope/lineitem.readonly"
	scopeResultRO   = "https://purl.imsglobal.org/spec/lti-ags/scope/result.readonly"
)

type LineItem struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	ScoreMaximum float64 `json:"scoreMaximum"`
	ResourceID   string  `json:"resourceId"`
}

type Result struct {
	UserID        string   `json:"userId"`
	ResultScore   *float64 `json:"resultScore"`
	ResultMaximum float64  `json:"resultMaximum"`
	Comment       string   `json:"comment"`
}

type Client struct {
	http *http.Client
}

type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

func NewClient(cfg Config) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{scopeLineItemRO, scopeResultRO},
	}
	h := cc.Client(context.Background())
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{http: h}
}

// ListLineItems GETs the container, filtered by q.
func (c *Client) ListLineItems(ctx context.Context, lineItemsURL string, q map[string]string) ([]LineItem, error) {
	u, err := url.Parse(lineItemsURL)
	if err != nil {
		return nil, err
	}
	p := u.Query()
	for k, v := range q {
		p.Set(k, v)
	}
	u.RawQuery = p.Encode()

	var items []LineItem
	if err := c.get(ctx, u.String(), mediaLineItems, &items); err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	return items, nil
}

// Results GETs {lineItemURL}/results for one platform user.
func (c *Client) Results(ctx context.Context, lineItemURL, userID string) ([]Result, error) {
	u, err := url.Parse(lineItemURL)
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/results"
	p := u.Query()
	p.Set("user_id", userID)
	u.RawQuery = p.Encode()

	var out []Result
	if err := c.get(ctx, u.String(), mediaResults, &out); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, u, accept string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", accept)
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("%s", res.Status)
	}
	return json.NewDecoder(res.Body).Decode(v)
}
