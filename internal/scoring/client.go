// Package scoring talks to the remote credit-scoring backend.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/domain"
	"github.com/secondlook/secondlook/internal/form"
)

const (
	// DefaultBaseURL is where the backend listens during local development.
	DefaultBaseURL = "http://localhost:5000"

	PredictPath = "/api/predict"
	HealthPath  = "/api/health"
)

// Multipart field names expected by the backend.
const (
	fieldFullName  = "full_name"
	fieldAmount    = "amount_requested"
	fieldTerm      = "term_months"
	fieldConsent   = "consent_for_data"
	fieldStatement = "mpesa_statement"
)

// ServerError is a non-2xx answer from the backend. Message is the response
// body as text, or "Server error: <code>" when the body was blank.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Client posts statements for scoring. It sets no timeout of its own; use
// the context or WithHTTPClient to bound a call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Predict submits the statement and returns the normalized assessment.
// A non-2xx response yields *ServerError.
func (c *Client) Predict(ctx context.Context, sub form.Submission) (*domain.Assessment, error) {
	body, contentType, err := EncodeSubmission(sub)
	if err != nil {
		return nil, fmt.Errorf("Predict: encoding submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PredictPath, body)
	if err != nil {
		return nil, fmt.Errorf("Predict: building request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.log.With().Str("request_id", requestID).Str("filename", sub.Statement.Name).Logger()
	log.Debug().
		Int64("bytes", sub.Statement.Size).
		Int("selected_files", sub.Selected).
		Msg("Sending statement for scoring")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Predict: sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Predict: reading response: %w", err)
	}

	log.Debug().Int("status", resp.StatusCode).Int("bytes", len(data)).Msg("Scoring response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newServerError(resp.StatusCode, data)
	}

	assessment, err := Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("Predict: %w", err)
	}

	log.Debug().
		Str("decision_status", string(assessment.Decision.Status)).
		Float64("alt_score", assessment.Decision.Score).
		Int("transactions", len(assessment.Transactions)).
		Msg("Scoring response normalized")

	return assessment, nil
}

// Health is the backend's self-reported state.
type Health struct {
	Status      string `json:"status"`
	ModelStatus string `json:"model_status"`
	ModelType   string `json:"model_type"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
}

// Health asks the backend whether it is up and has its model loaded.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("Health: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Health: sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Health: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newServerError(resp.StatusCode, data)
	}

	var h Health
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("Health: decoding response: %w", err)
	}
	return &h, nil
}

// EncodeSubmission builds the multipart body. Only the statement file is
// attached, never the other selections.
func EncodeSubmission(sub form.Submission) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := []struct{ name, value string }{
		{fieldFullName, sub.FullName},
		{fieldAmount, sub.Amount.String()},
		{fieldTerm, strconv.Itoa(sub.TermMonths)},
		{fieldConsent, "true"},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.name, err)
		}
	}

	contentType := sub.Statement.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		fieldStatement, quoteEscaper.Replace(sub.Statement.Name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, sub.Statement.Reader()); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func newServerError(status int, body []byte) *ServerError {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("Server error: %d", status)
	}
	return &ServerError{StatusCode: status, Message: msg}
}
