package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPGateway talks to the scoring service over HTTP. The client timeout is
// the only retry/backoff policy here: a failed call surfaces a GatewayError
// and re-invocation is the caller's decision.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) (*HTTPGateway, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("missing SCORING_URL")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// DisabledGateway stands in when no scoring endpoint is configured. Every
// call fails with a retryable GatewayError, so the rest of the API serves
// normally and evaluate() answers 502 until SCORING_URL is set.
type DisabledGateway struct{}

func (DisabledGateway) Score(_ context.Context, _ Request) (*Evaluation, error) {
	return nil, &GatewayError{Op: "call", Err: fmt.Errorf("scoring gateway not configured")}
}

func (g *HTTPGateway) Score(ctx context.Context, in Request) (*Evaluation, error) {
	body, _ := json.Marshal(in)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, &GatewayError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", in.CorrelationID)
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: "call", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{Op: "call", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var payload struct {
		Decision        string   `json:"decision"`
		Score           int32    `json:"score"`
		Confidence      float64  `json:"confidence"`
		RiskLevel       string   `json:"risk_level"`
		SuggestedAmount *float64 `json:"suggested_amount"`
		SuggestedTerm   *int32   `json:"suggested_term"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &GatewayError{Op: "decode", Err: err}
	}

	decision, err := parseDecision(payload.Decision)
	if err != nil {
		return nil, &GatewayError{Op: "decode", Err: err}
	}
	if payload.Score < 0 || payload.Score > 100 {
		return nil, &GatewayError{Op: "decode", Err: fmt.Errorf("score %d out of range", payload.Score)}
	}
	if payload.Confidence < 0 || payload.Confidence > 1 {
		return nil, &GatewayError{Op: "decode", Err: fmt.Errorf("confidence %f out of range", payload.Confidence)}
	}

	return &Evaluation{
		Decision:        decision,
		Score:           payload.Score,
		Confidence:      payload.Confidence,
		RiskLevel:       RiskLevel(payload.RiskLevel),
		SuggestedAmount: payload.SuggestedAmount,
		SuggestedTerm:   payload.SuggestedTerm,
	}, nil
}
