package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/metrics"
	"github.com/serviteq/fieldops-backend/pkg/logger"
)

const errNoMeaningfulResponse = "No se pudo generar una respuesta significativa."

const (
	bridgeMaxAttempts = 5
	bridgeBackoffStep = time.Second
)

type webhookClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// agentBridge is the alternate integration path: the user's request goes to an
// external no-code webhook instead of the model tool loop. The webhook's
// output format has drifted across versions, so every response is pushed
// through an ordered list of shape recognizers before it reaches the surface.
type agentBridge struct {
	client      webhookClient
	webhookURL  string
	metrics     *metrics.Metrics
	maxAttempts int
	backoffStep time.Duration
}

func NewAgentBridge(client webhookClient, webhookURL string, m *metrics.Metrics) *agentBridge {
	return &agentBridge{
		client:      client,
		webhookURL:  webhookURL,
		metrics:     m,
		maxAttempts: bridgeMaxAttempts,
		backoffStep: bridgeBackoffStep,
	}
}

type bridgeEnvelope struct {
	Service string        `json:"service"`
	Content bridgeContent `json:"content"`
}

type bridgeContent struct {
	Action string       `json:"action"`
	Params bridgeParams `json:"params"`
}

type bridgeParams struct {
	Query    string `json:"query"`
	UserName string `json:"userName"`
	File     string `json:"file"`
}

// Consult sends the query to the webhook and normalizes whatever comes back.
// It never returns a Go error: exhausted retries degrade to an error-tagged
// AIResponse.
func (b *agentBridge) Consult(ctx context.Context, query, userName, file string) dto.AIResponse {
	log := logger.FromContext(ctx)

	requestURL, err := b.buildURL(query, userName, file)
	if err != nil {
		log.Error("failed to build webhook request", "error", err)
		return errorResponse(errNoMeaningfulResponse)
	}

	var lastErr error
	var lastRaw string
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, time.Duration(attempt-1)*b.backoffStep); err != nil {
				lastErr = err
				break
			}
		}

		response, ok, err := b.attempt(ctx, requestURL)
		if err != nil {
			lastErr = err
			lastRaw = ""
			b.metrics.WebhookAttempts.WithLabelValues("error").Inc()
			log.Warn("webhook attempt failed", "attempt", attempt, "error", err)
			continue
		}
		if !ok {
			lastErr = nil
			lastRaw = response.DisplayText
			b.metrics.WebhookAttempts.WithLabelValues("unrecognized").Inc()
			log.Warn("webhook payload unrecognized", "attempt", attempt)
			continue
		}

		b.metrics.WebhookAttempts.WithLabelValues("ok").Inc()
		log.Info("webhook consult completed", "attempt", attempt)
		return response
	}

	message := lastRaw
	if message == "" && lastErr != nil {
		message = lastErr.Error()
	}
	if message == "" {
		message = errNoMeaningfulResponse
	}
	return dto.AIResponse{
		DisplayText:   message,
		StatusDisplay: &dto.StatusDisplay{Kind: "error", Message: "El agente externo no respondió correctamente."},
	}
}

// attempt performs one GET and resolves the payload. The bool reports whether
// the payload matched a recognized shape; when it is false the AIResponse
// carries the stringified raw payload for the terminal fallback.
func (b *agentBridge) attempt(ctx context.Context, requestURL string) (dto.AIResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return dto.AIResponse{}, false, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return dto.AIResponse{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return dto.AIResponse{}, false, fmt.Errorf("estado HTTP inesperado: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dto.AIResponse{}, false, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return dto.AIResponse{}, false, fmt.Errorf("cuerpo no es JSON: %w", err)
	}

	return resolvePayload(doc)
}

func (b *agentBridge) buildURL(query, userName, file string) (string, error) {
	envelope := bridgeEnvelope{
		Service: "chatbot",
		Content: bridgeContent{
			Action: "consultas",
			Params: bridgeParams{Query: query, UserName: userName, File: file},
		},
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(b.webhookURL)
	if err != nil {
		return "", err
	}
	values := parsed.Query()
	values.Set("q", string(raw))
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
