package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// WebhookPayload são os campos públicos do lead que o sistema de
// marketing recebe. O corpo serializado é assinado com HMAC-SHA256.
type WebhookPayload struct {
	ID           string            `json:"id"`
	Timestamp    string            `json:"timestamp"`
	Email        string            `json:"email"`
	Name         string            `json:"name,omitempty"`
	Company      string            `json:"company,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Details      string            `json:"details,omitempty"`
	Source       string            `json:"source,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

func PayloadFromLead(lead *entity.Lead) WebhookPayload {
	return WebhookPayload{
		ID:           lead.ID,
		Timestamp:    lead.CreatedAt.UTC().Format(time.RFC3339Nano),
		Email:        lead.Email,
		Name:         lead.Name,
		Company:      lead.Company,
		Phone:        lead.Phone,
		Details:      lead.Details,
		Source:       lead.Source,
		CustomFields: lead.CustomFields,
	}
}

type WebhookResult struct {
	StatusCode    int
	Err           error
	Misconfigured bool
	Duration      time.Duration
}

// Outcome classifica o resultado: 2xx sucesso; erro de rede, timeout,
// 5xx e 429 são retentáveis; 4xx restante e endpoint mal configurado
// são fatais.
func (r WebhookResult) Outcome() string {
	switch {
	case r.Misconfigured:
		return entity.OutcomeFatal
	case r.Err != nil:
		return entity.OutcomeRetryable
	case r.StatusCode >= 200 && r.StatusCode < 300:
		return entity.OutcomeSuccess
	case r.StatusCode == http.StatusTooManyRequests:
		return entity.OutcomeRetryable
	case r.StatusCode >= 500:
		return entity.OutcomeRetryable
	default:
		return entity.OutcomeFatal
	}
}

// ErrorMessage devolve a descrição do erro para o registro da tentativa.
// Nunca inclui o segredo nem a assinatura.
func (r WebhookResult) ErrorMessage() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.StatusCode != 0 && (r.StatusCode < 200 || r.StatusCode >= 300) {
		return fmt.Sprintf("downstream returned status %d", r.StatusCode)
	}
	return ""
}

type WebhookSenderInterface interface {
	Send(ctx context.Context, payload WebhookPayload) WebhookResult
}

const SignatureHeader = "X-Ligue-Signature"

type HTTPWebhookSender struct {
	client  *http.Client
	url     string
	secret  string
	timeout time.Duration
}

func NewHTTPWebhookSender(endpoint, secret string, timeout time.Duration) *HTTPWebhookSender {
	return &HTTPWebhookSender{
		client:  &http.Client{},
		url:     endpoint,
		secret:  secret,
		timeout: timeout,
	}
}

func (s *HTTPWebhookSender) Send(ctx context.Context, payload WebhookPayload) WebhookResult {
	start := time.Now()

	u, err := url.Parse(s.url)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return WebhookResult{Misconfigured: true, Err: fmt.Errorf("webhook endpoint is not a valid URL"), Duration: time.Since(start)}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return WebhookResult{Misconfigured: true, Err: fmt.Errorf("marshal payload: %w", err), Duration: time.Since(start)}
	}

	signature := ComputeSignature(s.secret, body)

	timeout := s.timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return WebhookResult{Misconfigured: true, Err: fmt.Errorf("create request: %w", err), Duration: time.Since(start)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.client.Do(req)
	if err != nil {
		return WebhookResult{Err: fmt.Errorf("send webhook: %w", err), Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	return WebhookResult{StatusCode: resp.StatusCode, Duration: time.Since(start)}
}

func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature é o que o receptor usa para conferir autenticidade.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
