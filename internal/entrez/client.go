// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entrez is a minimal client for the NCBI E-utilities history
// server: EPost registers a list of identifiers and EFetch pages through
// them as FASTA text.
package entrez

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/seqfetch/internal/accession"
	"github.com/pdiddy/seqfetch/pkg/types"
)

// maxErrorBody caps how much of an error response is quoted in messages.
const maxErrorBody = 200

// Session is the history-server handle returned by Register. It is valid
// for paging through the registered identifiers only.
type Session struct {
	WebEnv   string
	QueryKey string
	// InvalidIDs lists identifiers the service reported as unknown.
	InvalidIDs []string
}

// Client talks to the E-utilities endpoints described by its EntrezConfig.
type Client struct {
	http *http.Client
	cfg  types.EntrezConfig
}

// NewClient returns a Client. A nil hc gets a client with cfg.Timeout.
func NewClient(hc *http.Client, cfg types.EntrezConfig) *Client {
	cfg = cfg.WithDefaults()
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{http: hc, cfg: cfg}
}

// Config returns the effective configuration.
func (c *Client) Config() types.EntrezConfig { return c.cfg }

type ePostResult struct {
	XMLName    xml.Name `xml:"ePostResult"`
	QueryKey   string   `xml:"QueryKey"`
	WebEnv     string   `xml:"WebEnv"`
	ErrorMsg   string   `xml:"ERROR"`
	InvalidIDs []string `xml:"InvalidIdList>Id"`
}

// Register posts ids to the history server and returns the session handle.
func (c *Client) Register(ctx context.Context, ids []string) (Session, error) {
	form := c.params()
	form.Set("id", strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("epost.fcgi"), strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("creating epost request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req, "epost")
	if err != nil {
		return Session{}, err
	}

	var res ePostResult
	if err := xml.Unmarshal(body, &res); err != nil {
		return Session{}, &Error{Op: "epost", Kind: KindDecode, Err: err}
	}
	if msg := strings.TrimSpace(res.ErrorMsg); msg != "" {
		return Session{}, &Error{Op: "epost", Kind: KindService, Message: msg}
	}
	s := Session{
		WebEnv:     strings.TrimSpace(res.WebEnv),
		QueryKey:   strings.TrimSpace(res.QueryKey),
		InvalidIDs: res.InvalidIDs,
	}
	if s.WebEnv == "" || s.QueryKey == "" {
		return Session{}, &Error{Op: "epost", Kind: KindService, Message: "reply carries no WebEnv/QueryKey"}
	}
	return s, nil
}

// FetchPage retrieves the FASTA text for page p of the session's records.
func (c *Client) FetchPage(ctx context.Context, s Session, p accession.Page) (string, error) {
	q := c.params()
	q.Set("rettype", "fasta")
	q.Set("retmode", "text")
	q.Set("retstart", strconv.Itoa(p.Start))
	q.Set("retmax", strconv.Itoa(p.Count))
	q.Set("WebEnv", s.WebEnv)
	q.Set("query_key", s.QueryKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("efetch.fcgi")+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating efetch request: %w", err)
	}

	body, err := c.do(req, "efetch")
	if err != nil {
		return "", err
	}
	if msg, ok := fetchError(body); ok {
		return "", &Error{Op: "efetch", Kind: KindService, Message: msg}
	}
	return string(body), nil
}

// params returns the query values sent with every request.
func (c *Client) params() url.Values {
	v := url.Values{}
	v.Set("db", c.cfg.Database)
	v.Set("tool", c.cfg.Tool)
	if c.cfg.Email != "" {
		v.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		v.Set("api_key", c.cfg.APIKey)
	}
	return v
}

func (c *Client) endpoint(name string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + name
}

// do executes req and returns the full body of a 200 response.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := KindNetwork
		if errors.Is(err, io.ErrUnexpectedEOF) {
			kind = KindTruncated
		}
		return nil, &Error{Op: op, Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Op: op, Kind: KindHTTP, StatusCode: resp.StatusCode, Message: snippet(body)}
	}
	return body, nil
}

type eFetchResult struct {
	ErrorMsg string `xml:"ERROR"`
}

// fetchError reports whether an efetch body is an error document rather
// than sequence text.
func fetchError(body []byte) (string, bool) {
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "<ERROR>") {
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "<ERROR>"), "</ERROR>")), true
	}
	if !strings.HasPrefix(text, "<?xml") && !strings.HasPrefix(text, "<eFetchResult") {
		return "", false
	}
	var res eFetchResult
	if err := xml.Unmarshal([]byte(text), &res); err != nil {
		return "", false
	}
	if msg := strings.TrimSpace(res.ErrorMsg); msg != "" {
		return msg, true
	}
	return "", false
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
