// File: internal/services/tools/mail.go
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MailConfig configures the HTTP mail bridge.
type MailConfig struct {
	BridgeURL  string
	AccessKey  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func (c *MailConfig) Validate() error {
	if c.BridgeURL == "" {
		return fmt.Errorf("MAIL_BRIDGE_URL is required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("MAIL_ACCESS_KEY is required")
	}
	return nil
}

func DefaultMailConfig() *MailConfig {
	return &MailConfig{
		Timeout:    15 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}
}

// BridgeMailProvider talks to a mail bridge service over HTTP. Read
// fetches the latest inbox messages for an address; write sends one.
type BridgeMailProvider struct {
	config *MailConfig
	client *http.Client
}

func NewBridgeMailProvider(config *MailConfig) (*BridgeMailProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, &ToolError{Type: ErrTypeConfig, Tool: FuncMail, Message: err.Error()}
	}
	return &BridgeMailProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

func (p *BridgeMailProvider) Execute(ctx context.Context, instruction MailInstruction, address, content string) (string, error) {
	switch instruction {
	case MailRead:
		return p.send(ctx, "/read", map[string]any{
			"address": address,
			"limit":   5,
		})
	case MailWrite:
		if content == "" {
			return "", NewParseError(FuncMail, "content is required for write", nil)
		}
		return p.send(ctx, "/send", map[string]any{
			"address": address,
			"body":    content,
		})
	default:
		return "", NewParseError(FuncMail, fmt.Sprintf("unknown instruction %q", instruction), nil)
	}
}

// send retries transient bridge failures; config and parse errors are
// returned immediately.
func (p *BridgeMailProvider) send(ctx context.Context, path string, payload any) (string, error) {
	retryCfg := &RetryConfig{
		MaxAttempts: p.config.MaxRetries,
		Delay:       p.config.RetryDelay,
	}
	if retryCfg.MaxAttempts < 1 {
		retryCfg.MaxAttempts = 1
	}

	var result string
	err := RetryWithBackoff(ctx, retryCfg, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = p.sendRequest(ctx, path, payload)
		return attemptErr
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func (p *BridgeMailProvider) sendRequest(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ToolError{Type: ErrTypeParse, Tool: FuncMail, Message: "invalid payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BridgeURL+path, bytes.NewBuffer(body))
	if err != nil {
		return "", &ToolError{Type: ErrTypeNetwork, Tool: FuncMail, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.config.AccessKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ToolError{Type: ErrTypeNetwork, Tool: FuncMail, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	return p.handleResponse(resp)
}

func (p *BridgeMailProvider) handleResponse(resp *http.Response) (string, error) {
	responseBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var result struct {
			Result string `json:"result"`
		}
		if err := json.Unmarshal(responseBody, &result); err == nil && result.Result != "" {
			return result.Result, nil
		}
		return string(responseBody), nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &ToolError{
			Type:    ErrTypeRateLimit,
			Tool:    FuncMail,
			Code:    resp.StatusCode,
			Message: "rate limit exceeded",
		}
	}

	return "", &ToolError{
		Type:    ErrTypeProvider,
		Tool:    FuncMail,
		Code:    resp.StatusCode,
		Message: string(responseBody),
	}
}

func (p *BridgeMailProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BridgeURL+"/health", nil)
	if err != nil {
		return &ToolError{Type: ErrTypeNetwork, Tool: FuncMail, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("X-API-KEY", p.config.AccessKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return &ToolError{Type: ErrTypeNetwork, Tool: FuncMail, Message: "health check failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &ToolError{Type: ErrTypeProvider, Tool: FuncMail, Code: resp.StatusCode, Message: "mail bridge unhealthy"}
	}
	return nil
}
