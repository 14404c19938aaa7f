// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/models"
	"github.com/go-resty/resty/v2"
)

const defaultRequestTimeout = 15 * time.Second

type httpServerAdapter struct {
	client    *resty.Client
	baseURL   string
	sessionID string

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs the HTTP/REST implementation of
// [ServerAdapter]. It normalises and validates the base URL from
// adapterCfg.HTTPAddress and configures the underlying client with the
// resolved base URL and request timeout. sessionID identifies this device
// connection and rides along on every authenticated request as the
// X-Session-ID header.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as
// a valid URL.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, sessionID string, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	timeout := adapterCfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	cli := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &httpServerAdapter{client: cli, baseURL: baseURL, sessionID: sessionID, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [ServerAdapter]. It stores token (whitespace-trimmed)
// for use in the Authorization header of all subsequent authenticated
// requests.
func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [ServerAdapter]. It returns the bearer token currently
// held by the adapter, or an empty string if none has been set.
func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// SessionID implements [ServerAdapter].
func (h *httpServerAdapter) SessionID() string {
	return h.sessionID
}

// Push implements [ServerAdapter]. It sets req.Length, gzips the
// JSON-encoded batch, and POSTs it to POST /api/sync/push. Requires a valid
// bearer token. The mapped sentinel errors let the caller distinguish a
// batch that must be split ([ErrBatchTooLarge]) from a server that is
// temporarily down ([ErrServerUnavailable]).
func (h *httpServerAdapter) Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error) {
	req.Length = len(req.Changes)

	body, err := gzipJSON(req)
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("encode push request: %w", err)
	}

	h.logger.Debug().Int("changes", req.Length).Msg("pushing outbox batch")

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Encoding", "gzip").
		SetBody(body).
		Post("/api/sync/push")
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("push request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PushResponse{}, err
	}

	var out models.PushResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.PushResponse{}, fmt.Errorf("decode push response: %w", err)
	}

	return out, nil
}

// Pull implements [ServerAdapter]. It POSTs the cursor to
// POST /api/sync/pull and decodes one page of changed entities. Requires a
// valid bearer token. Returns [ErrCheckpointUnknown] (wrapped) when the
// server no longer recognises req.Since.
func (h *httpServerAdapter) Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error) {
	h.logger.Debug().Str("since", string(req.Since)).Msg("pulling changes")

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/sync/pull")
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("pull request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PullResponse{}, err
	}

	var out models.PullResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.PullResponse{}, fmt.Errorf("decode pull response: %w", err)
	}

	return out, nil
}

// Ping implements [ServerAdapter]. It GETs the unauthenticated /ping
// endpoint and reports reachability through the usual error mapping.
func (h *httpServerAdapter) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/ping")
	if err != nil {
		return fmt.Errorf("ping request: %w", err)
	}

	return mapHTTPError(resp)
}

// RealtimeEndpoint implements [ServerAdapter]. It derives the websocket URL
// from the configured base address by swapping the scheme (http becomes ws,
// https becomes wss).
func (h *httpServerAdapter) RealtimeEndpoint() string {
	switch {
	case strings.HasPrefix(h.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(h.baseURL, "https://") + "/api/sync/ws"
	case strings.HasPrefix(h.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(h.baseURL, "http://") + "/api/sync/ws"
	default:
		return h.baseURL + "/api/sync/ws"
	}
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	if h.sessionID != "" {
		req.SetHeader("X-Session-ID", h.sessionID)
	}
	return req
}

func gzipJSON(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err = zw.Write(payload); err != nil {
		return nil, err
	}
	if err = zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
