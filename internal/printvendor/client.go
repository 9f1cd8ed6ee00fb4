// Package printvendor submits print jobs to the Lulu print API.
package printvendor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrToken is returned when no access token could be obtained.
var ErrToken = errors.New("failed to get access token")

type Config struct {
	ClientKey    string
	ClientSecret string
	AuthURL      string
	PrintJobURL  string
	HTTPClient   *http.Client
}

type Client struct {
	printJobURL string
	http        *http.Client
	tokens      oauth2.TokenSource
}

// New returns a client that authenticates with the client-credentials grant,
// sending the key and secret as HTTP Basic credentials. Tokens are reused
// until they expire.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientKey,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.AuthURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
	return &Client{printJobURL: cfg.PrintJobURL, http: hc, tokens: cc.TokenSource(ctx)}
}

type Source struct {
	SourceURL string `json:"source_url"`
}

type Printable struct {
	Cover        Source `json:"cover"`
	Interior     Source `json:"interior"`
	PodPackageID string `json:"pod_package_id"`
}

type LineItem struct {
	ExternalID             string    `json:"external_id"`
	PrintableNormalization Printable `json:"printable_normalization"`
	Quantity               int       `json:"quantity"`
	Title                  string    `json:"title"`
}

// PrintJob is the request body of a print-job submission.
type PrintJob struct {
	ContactEmail    string     `json:"contact_email"`
	ExternalID      string     `json:"external_id"`
	LineItems       []LineItem `json:"line_items"`
	ProductionDelay int        `json:"production_delay"`
	ShippingAddress Address    `json:"shipping_address"`
	ShippingLevel   string     `json:"shipping_level"`
}

// NewPrintJob builds a job with one line item for a journal's PDFs.
func NewPrintJob(tpl Template, title, coverURL, interiorURL string) PrintJob {
	return PrintJob{
		ContactEmail: tpl.ContactEmail,
		ExternalID:   tpl.ExternalID,
		LineItems: []LineItem{{
			ExternalID: tpl.LineItemExternalID,
			PrintableNormalization: Printable{
				Cover:        Source{SourceURL: coverURL},
				Interior:     Source{SourceURL: interiorURL},
				PodPackageID: tpl.PodPackageID,
			},
			Quantity: tpl.Quantity,
			Title:    title,
		}},
		ProductionDelay: tpl.ProductionDelay,
		ShippingAddress: tpl.ShippingAddress,
		ShippingLevel:   tpl.ShippingLevel,
	}
}

// Response is the vendor's answer, passed through as received.
type Response struct {
	Status int
	Body   json.RawMessage
}

// CreatePrintJob posts job and returns the vendor's JSON whatever its status.
// Only transport and token failures are errors.
func (c *Client) CreatePrintJob(ctx context.Context, job PrintJob) (*Response, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToken, err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.printJobURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post print job: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read print job response: %w", err)
	}
	if !json.Valid(body) {
		// keep the reply usable as JSON
		body, _ = json.Marshal(map[string]string{"error": string(body)})
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}
