package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultTokenTTL = 50 * time.Minute

// TokenProvider authenticates against the record store's admin endpoint and
// caches the bearer token until it nears expiry. Safe for concurrent use.
type TokenProvider struct {
	httpc    *http.Client
	baseURL  string
	identity string
	password string
	ttl      time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	token     string
	fetchedAt time.Time
}

// NewTokenProvider creates a token provider. ttl <= 0 selects a default
// comfortably below the store's token lifetime.
func NewTokenProvider(httpc *http.Client, baseURL, identity, password string, ttl time.Duration, logger *zap.Logger) *TokenProvider {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenProvider{
		httpc:    httpc,
		baseURL:  baseURL,
		identity: identity,
		password: password,
		ttl:      ttl,
		logger:   logger,
	}
}

// Token returns a valid bearer token, re-authenticating when the cached one
// has aged past the TTL.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Since(p.fetchedAt) < p.ttl {
		return p.token, nil
	}

	token, err := p.authenticate(ctx)
	if err != nil {
		p.token = ""
		return "", err
	}

	p.token = token
	p.fetchedAt = time.Now()
	p.logger.Debug("store token refreshed")
	return token, nil
}

// Invalidate drops the cached token so the next Token call re-authenticates.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

func (p *TokenProvider) authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"identity": p.identity,
		"password": p.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}

	url := p.baseURL + "/api/admins/auth-with-password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("auth failed: status %d: %s", resp.StatusCode, snippet)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("auth response carried no token")
	}
	return payload.Token, nil
}
