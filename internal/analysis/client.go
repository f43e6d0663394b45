// Package analysis sends property photos to the external image analysis
// service and records its verdict on the verification record.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

// DefaultTimeout bounds a single analysis request
const DefaultTimeout = 2 * time.Minute

// Completer records analysis results. Implemented by *verification.Service.
type Completer interface {
	CompleteAnalysis(ctx context.Context, id uuid.UUID, actor auth.Actor, attempt int, metrics verification.AIMetrics) (*verification.Outcome, error)
	FailAnalysis(ctx context.Context, id uuid.UUID, actor auth.Actor, attempt int, reason string) (*verification.Outcome, error)
}

// URLSigner turns a photo storage key into a URL the analysis service can fetch
type URLSigner interface {
	PresignGet(ctx context.Context, key string, expiration time.Duration) (string, error)
}

// Client dispatches analysis jobs over HTTP. The service may answer
// synchronously with a result, or with 202 Accepted and report back later
// through the system analysis callback.
type Client struct {
	url        string
	httpClient *http.Client
	completer  Completer
	signer     URLSigner
	logger     *zap.Logger
	actor      auth.Actor
	wg         sync.WaitGroup
}

func NewClient(url string, timeout time.Duration, completer Completer, signer URLSigner, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		completer:  completer,
		signer:     signer,
		logger:     logger,
		actor:      auth.System("analysis"),
	}
}

type analyzeRequest struct {
	PropertyID  uuid.UUID `json:"property_id"`
	Photos      []string  `json:"photos"`
	ClaimedArea *float64  `json:"claimed_area,omitempty"`
	Attempt     int       `json:"attempt"`
}

type analyzeResponse struct {
	Success bool                    `json:"success"`
	Error   string                  `json:"error,omitempty"`
	Result  *verification.AIMetrics `json:"result,omitempty"`
}

// Dispatch implements verification.AnalysisDispatcher. The request runs in
// the background; Dispatch only prepares the payload.
func (c *Client) Dispatch(ctx context.Context, rec *verification.Record) error {
	payload := analyzeRequest{
		PropertyID:  rec.PropertyID,
		ClaimedArea: rec.Claimed.Area,
		Attempt:     rec.AnalysisAttempts,
	}
	for _, p := range rec.Photos {
		ref := p.Key
		if c.signer != nil {
			url, err := c.signer.PresignGet(ctx, p.Key, time.Hour)
			if err != nil {
				return fmt.Errorf("failed to sign photo %s: %w", p.Key, err)
			}
			ref = url
		}
		payload.Photos = append(payload.Photos, ref)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		runCtx := context.WithoutCancel(ctx)
		if err := c.run(runCtx, payload); err != nil {
			c.logger.Warn("analysis failed",
				zap.String("property_id", payload.PropertyID.String()),
				zap.Int("attempt", payload.Attempt),
				zap.Error(err))
			if _, ferr := c.completer.FailAnalysis(runCtx, payload.PropertyID, c.actor, payload.Attempt, err.Error()); ferr != nil {
				c.logger.Error("failed to record analysis failure",
					zap.String("property_id", payload.PropertyID.String()), zap.Error(ferr))
			}
		}
	}()
	return nil
}

func (c *Client) run(ctx context.Context, payload analyzeRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		c.logger.Info("analysis accepted for async processing", zap.String("property_id", payload.PropertyID.String()))
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode analysis response: %w", err)
	}
	if !out.Success || out.Result == nil {
		if out.Error == "" {
			out.Error = "analysis service returned no result"
		}
		return fmt.Errorf("%s", out.Error)
	}

	if _, err := c.completer.CompleteAnalysis(ctx, payload.PropertyID, c.actor, payload.Attempt, *out.Result); err != nil {
		// a late result for a record that moved on is not an analysis failure
		c.logger.Warn("analysis result not recorded",
			zap.String("property_id", payload.PropertyID.String()), zap.Error(err))
	}
	return nil
}

// Wait blocks until in-flight requests have finished
func (c *Client) Wait() {
	c.wg.Wait()
}
