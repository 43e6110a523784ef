// internal/inference/client.go
// Package inference talks to the remote service that hosts both intrusion classifiers.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/nidsbench/internal/appconfig"
	"github.com/mwiater/nidsbench/internal/comparison"
	"github.com/mwiater/nidsbench/internal/logging"
)

const serviceName = "inference"

// maxResponseBytes bounds a single prediction response; 1000 samples fit comfortably.
const maxResponseBytes = 16 << 20

// Client posts dataset samples to the inference service and decodes the predictions.
type Client struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// HealthStatus is the answer of one health endpoint.
type HealthStatus struct {
	Target  string `json:"target"`
	Status  string `json:"status"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// New constructs a Client configured with the service URL and request timeout.
func New(cfg *appconfig.Config) *Client {
	timeout := cfg.RequestTimeout()
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.Service.BaseURL), "/"),
		timeout: timeout,
	}
}

// FetchRun uploads the CSV sample to the model's endpoint and returns its predictions.
// When the service does not report processing time, the request's wall-clock time is used.
func (c *Client) FetchRun(ctx context.Context, model appconfig.ModelEndpoint, filename string, csvData []byte) (comparison.ModelRun, error) {
	body, contentType, err := multipartBody(filename, csvData)
	if err != nil {
		return comparison.ModelRun{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + model.Endpoint
	if logging.DebugEnabled() {
		logging.LogExchange("NIDSBENCH->MODEL", serviceName, model.Name, model.Endpoint, fmt.Sprintf("%s (%d bytes)", filename, len(csvData)))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return comparison.ModelRun{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return comparison.ModelRun{}, fmt.Errorf("inference: %s: %w", model.Name, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return comparison.ModelRun{}, fmt.Errorf("inference: %s: read response: %w", model.Name, err)
	}
	elapsed := time.Since(start)
	logging.LogExchange("MODEL->NIDSBENCH", serviceName, model.Name, model.Endpoint, respBody)

	if resp.StatusCode >= 400 {
		return comparison.ModelRun{}, fmt.Errorf("inference: %s returned %s: %s", endpoint, resp.Status, strings.TrimSpace(string(respBody)))
	}

	run, err := DecodeRun(model.Name, respBody)
	if err != nil {
		return comparison.ModelRun{}, fmt.Errorf("inference: %s: %w", model.Name, err)
	}
	if run.ProcessingTime == 0 {
		run.ProcessingTime = elapsed
	}
	return run, nil
}

// Health queries a health endpoint. Transport failures are reported in the status,
// not as an error, so that one unreachable model does not hide the other.
func (c *Client) Health(ctx context.Context, path string) HealthStatus {
	status := HealthStatus{Target: path, Status: "unreachable"}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	resp, err := c.client.Do(req)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	logging.LogExchange("MODEL->NIDSBENCH", serviceName, "", path, respBody)

	var payload struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(respBody, &payload)
	status.Status = strings.TrimSpace(payload.Status)
	if status.Status == "" {
		status.Status = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	status.Healthy = resp.StatusCode < 400 && (payload.Status == "" || strings.EqualFold(status.Status, "healthy") || strings.EqualFold(status.Status, "ok"))
	if resp.StatusCode >= 400 {
		status.Error = resp.Status
	}
	return status
}

func multipartBody(filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
