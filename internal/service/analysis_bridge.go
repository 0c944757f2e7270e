package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/smartcity/trafficsim/internal/domain"
)

// AnalysisBridge proxies a completed run's metrics to an external
// narrative-analysis service and falls back to a deterministic summary
// built from the metrics themselves when that service is unreachable,
// following an HTTP-proxy-with-mock-on-error shape.
type AnalysisBridge struct {
	serviceURL string
	httpClient *http.Client
}

// NewAnalysisBridge creates a new analysis bridge. An empty serviceURL
// always uses the deterministic fallback.
func NewAnalysisBridge(serviceURL string) *AnalysisBridge {
	return &AnalysisBridge{
		serviceURL: serviceURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Analyze requests a narrative summary of the run's metrics.
func (b *AnalysisBridge) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	if b.serviceURL == "" {
		return b.fallback(req), nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analysis_bridge: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/analyze", b.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analysis_bridge: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return b.fallback(req), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return b.fallback(req), nil
	}

	var result domain.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analysis_bridge: failed to decode response: %w", err)
	}
	return result, nil
}

// Health checks analysis-service connectivity.
func (b *AnalysisBridge) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("analysis_bridge: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis_bridge: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis_bridge: health check returned status %d", resp.StatusCode)
	}
	return nil
}

// fallback builds a deterministic narrative purely from the metrics
// already computed, so /simulate never blocks on an unreachable
// analysis service.
func (b *AnalysisBridge) fallback(req domain.AnalysisRequest) domain.AnalysisResult {
	m := req.Metrics
	risk := "Low"
	switch {
	case m.CongestionLengthKm >= 2.0 || m.AffectedEdges >= 20:
		risk = "High"
	case m.CongestionLengthKm >= 0.8 || m.AffectedEdges >= 8:
		risk = "Moderate"
	}

	recommendations := []string{
		"Stagger construction windows outside morning and evening peaks.",
	}
	if len(m.ConstructionImpacts) > 0 {
		recommendations = append(recommendations, fmt.Sprintf("Review %d construction-affected segments for alternate routing.", len(m.ConstructionImpacts)))
	}
	if m.CO2EmissionsKg > 0 {
		recommendations = append(recommendations, "Encourage off-peak travel to reduce stop-and-go emissions.")
	}

	summary := fmt.Sprintf(
		"Over the simulated window, vehicles covered %s while %s of road experienced heavy congestion, emitting an estimated %s of CO2.",
		m.DrivingDistanceLabel, m.CongestionLengthLabel, m.CO2EmissionsLabel,
	)

	return domain.AnalysisResult{
		AISummary:       summary,
		RiskAssessment:  risk,
		Recommendations: recommendations,
		IsMock:          true,
	}
}
