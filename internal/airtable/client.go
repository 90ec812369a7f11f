package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"atexport/internal/datasource/httpds"
)

// DefaultBaseURL is the public Airtable API endpoint.
const DefaultBaseURL = "https://api.airtable.com"

// pageSize is the maximum page size the records endpoint accepts.
const pageSize = 100

// ClientConfig configures a Client. APIKey is a personal access token.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	HTTP    httpds.Config
}

// Client reads metadata and records from the Airtable Web API.
type Client struct {
	http    *httpds.Client
	baseURL string
}

// NewClient validates cfg and builds a Client. 429 responses are common
// (5 requests/s per base) so at least three retries are always configured.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("airtable: API key must not be empty")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("airtable: base url: %w", err)
	}

	hc := cfg.HTTP
	if hc.MaxRetries < 3 {
		hc.MaxRetries = 3
	}
	hdr := hc.BaseHeaders.Clone()
	if hdr == nil {
		hdr = http.Header{}
	}
	hdr.Set("Authorization", "Bearer "+cfg.APIKey)
	hdr.Set("Accept", "application/json")
	hc.BaseHeaders = hdr

	return &Client{http: httpds.NewClient(hc), baseURL: base}, nil
}

// APIError is a non-2xx answer from Airtable. Airtable sends either
// {"error": "TYPE"} or {"error": {"type": ..., "message": ...}}.
type APIError struct {
	Status  int
	Type    string
	Message string
	URL     string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable: %d %s: %s (%s)", e.Status, e.Type, e.Message, e.URL)
	}
	return fmt.Sprintf("airtable: %d %s (%s)", e.Status, e.Type, e.URL)
}

// ListBases returns every base the token can see.
func (c *Client) ListBases(ctx context.Context) ([]Base, error) {
	var out []Base
	offset := ""
	for {
		q := url.Values{}
		if offset != "" {
			q.Set("offset", offset)
		}
		var page struct {
			Bases  []Base `json:"bases"`
			Offset string `json:"offset"`
		}
		if err := c.get(ctx, "/v0/meta/bases", q, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Bases...)
		if page.Offset == "" {
			return out, nil
		}
		offset = page.Offset
	}
}

// BaseSchema returns the tables and fields of one base.
func (c *Client) BaseSchema(ctx context.Context, baseID string) (BaseSchema, error) {
	if baseID == "" {
		return BaseSchema{}, errors.New("airtable: base id must not be empty")
	}
	var s BaseSchema
	if err := c.get(ctx, "/v0/meta/bases/"+url.PathEscape(baseID)+"/tables", nil, &s); err != nil {
		return BaseSchema{}, err
	}
	return s, nil
}

// ListRecords returns all records of a table, following pagination. table is
// a table name or id; view optionally restricts and orders the records.
func (c *Client) ListRecords(ctx context.Context, baseID, table, view string) ([]Record, error) {
	if baseID == "" || table == "" {
		return nil, errors.New("airtable: base id and table must not be empty")
	}
	path := "/v0/" + url.PathEscape(baseID) + "/" + url.PathEscape(table)

	var out []Record
	offset := ""
	for {
		q := url.Values{}
		q.Set("pageSize", fmt.Sprint(pageSize))
		if view != "" {
			q.Set("view", view)
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		var page struct {
			Records []Record `json:"records"`
			Offset  string   `json:"offset"`
		}
		if err := c.get(ctx, path, q, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
		if page.Offset == "" {
			return out, nil
		}
		offset = page.Offset
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	err := c.http.GetJSON(ctx, u, nil, out)
	var se *httpds.StatusError
	if errors.As(err, &se) {
		return decodeAPIError(se)
	}
	return err
}

func decodeAPIError(se *httpds.StatusError) error {
	apiErr := &APIError{Status: se.Status, Type: http.StatusText(se.Status), URL: se.URL}

	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(se.Body, &body) != nil || len(body.Error) == 0 {
		return apiErr
	}
	var typ string
	if json.Unmarshal(body.Error, &typ) == nil {
		apiErr.Type = typ
		return apiErr
	}
	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body.Error, &detail) == nil {
		if detail.Type != "" {
			apiErr.Type = detail.Type
		}
		apiErr.Message = detail.Message
	}
	return apiErr
}
