package jail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	requestTimeout = 30 * time.Second
	emptyJSONBody  = "{}"
)

var errMissingBaseURL = errors.New("jail: base url is required")

// TransportError wraps any network, HTTP-status, or decode failure from the
// upstream records service so callers can recover at the call site.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("jail: %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(operation string, err error) error {
	return &TransportError{Operation: operation, Err: err}
}

// SearchRow is one row of a search-by-filter response.
type SearchRow struct {
	BookingNumber string `json:"bookingNumber"`
	InmateName    string `json:"inmateName"`
}

// Details carries the subset of the details payload the pipeline reads. The
// upstream keys are inconsistent across records, so both image spellings are
// accepted.
type Details struct {
	Birth      string `json:"BIRTH"`
	ImageUpper string `json:"IMAGE"`
	ImageMixed string `json:"Image"`
}

// ImageField returns the image payload regardless of which key spelling the
// upstream used.
func (d Details) ImageField() string {
	if d.ImageUpper != "" {
		return d.ImageUpper
	}
	return d.ImageMixed
}

// ChargeRow is one row of a charges-by-booking response.
type ChargeRow struct {
	Charge          string `json:"Charge"`
	BondAmount      string `json:"BondAmount"`
	CourtCaseNumber string `json:"CourtCaseNumber"`
	CourtLocation   string `json:"CourtLocation"`
	Note            string `json:"Note"`
}

// ClientConfig configures the upstream records client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the three upstream record endpoints. All calls are empty-body
// POSTs with a fixed XHR-style header set, matching what the upstream
// service expects.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Client with the fixed request timeout applied when
// no HTTP client is supplied.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// SearchInmates returns the booking rows matching a single filter token.
func (c *Client) SearchInmates(ctx context.Context, filter string) ([]SearchRow, error) {
	var rows []SearchRow
	if err := c.postJSON(ctx, "getInmates/"+filter, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InmateDetails returns the details record for a booking number. The
// upstream wraps the record in a one-element array; an absent or malformed
// wrapper degrades to the zero Details rather than failing, because one
// inmate's missing detail must not abort a whole scrape batch.
func (c *Client) InmateDetails(ctx context.Context, bookingNumber string) (Details, error) {
	var wrapper []Details
	if err := c.postJSON(ctx, "getInmateDetails/"+bookingNumber, &wrapper); err != nil {
		return Details{}, err
	}
	if len(wrapper) == 0 {
		c.logger.Debug("details response empty", zap.String("booking_number", bookingNumber))
		return Details{}, nil
	}
	return wrapper[0], nil
}

// InmateCharges returns the charge rows for a booking number.
func (c *Client) InmateCharges(ctx context.Context, bookingNumber string) ([]ChargeRow, error) {
	var rows []ChargeRow
	if err := c.postJSON(ctx, "getCharges/"+bookingNumber, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) postJSON(ctx context.Context, path string, out interface{}) error {
	requestURL := c.baseURL + "/" + path
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader([]byte(emptyJSONBody)))
	if err != nil {
		return newTransportError(path, err)
	}
	c.applyHeaders(request)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return newTransportError(path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return newTransportError(path, fmt.Errorf("unexpected status %d", response.StatusCode))
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return newTransportError(path, err)
	}
	return nil
}

func (c *Client) applyHeaders(request *http.Request) {
	request.Header.Set("User-Agent", "Mozilla/5.0")
	request.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	request.Header.Set("X-Requested-With", "XMLHttpRequest")
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	request.Header.Set("Origin", c.baseURL)
	request.Header.Set("Referer", c.baseURL+"/Inmates")
}
