// Package yelp talks to the Yelp AI chat endpoint and normalizes its
// shape-shifting response envelope. Everything past this boundary only
// ever sees restaurant.Business values.
package yelp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"dineahead/internal/restaurant"
)

const (
	defaultBaseURL = "https://api.yelp.com/ai/chat/v2"
	requestTimeout = 20 * time.Second

	// PlaceholderKey is the unconfigured credential sentinel.
	PlaceholderKey = "YOUR_API_KEY_HERE"
)

// ChatRequest is the upstream request body.
type ChatRequest struct {
	Query    string `json:"query"`
	Location string `json:"location,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
}

// ChatResponse is the upstream envelope. Listings may live under any of
// several keys; use ExtractBusinesses instead of reading fields directly.
type ChatResponse struct {
	ChatID     string                `json:"chat_id"`
	Response   responseText          `json:"response"`
	Businesses []restaurant.Business `json:"businesses"`
	Entities   json.RawMessage       `json:"entities"`
}

type responseText struct {
	Text string `json:"text"`
}

// Text returns the assistant prose of the response.
func (r *ChatResponse) Text() string {
	return r.Response.Text
}

// ExtractBusinesses resolves the listings from the envelope, checking
// each known location in fixed priority order and returning the first
// non-empty match:
//  1. a top-level businesses list
//  2. entities as an array of wrappers, flattened
//  3. entities as a single wrapper object
func (r *ChatResponse) ExtractBusinesses() []restaurant.Business {
	if len(r.Businesses) > 0 {
		return r.Businesses
	}
	if len(r.Entities) == 0 {
		return nil
	}

	var wrappers []struct {
		Businesses []restaurant.Business `json:"businesses"`
	}
	if err := json.Unmarshal(r.Entities, &wrappers); err == nil {
		var out []restaurant.Business
		for _, w := range wrappers {
			out = append(out, w.Businesses...)
		}
		if len(out) > 0 {
			return out
		}
	}

	var wrapper struct {
		Businesses []restaurant.Business `json:"businesses"`
	}
	if err := json.Unmarshal(r.Entities, &wrapper); err == nil && len(wrapper.Businesses) > 0 {
		return wrapper.Businesses
	}
	return nil
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("yelp api returned status %d: %s", e.StatusCode, e.Body)
}

// IsServerError reports whether the error is a 5xx StatusError.
func IsServerError(err error) bool {
	se, ok := err.(*StatusError)
	return ok && se.StatusCode >= 500
}

// Client calls the chat endpoint with a bearer credential.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	log        *slog.Logger
}

// NewClient builds a client for the production endpoint.
func NewClient(apiKey string, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		log:        log,
	}
}

// NewClientWithBaseURL is used by tests to point at a local server.
func NewClientWithBaseURL(apiKey, baseURL string, log *slog.Logger) *Client {
	c := NewClient(apiKey, log)
	c.baseURL = baseURL
	return c
}

// Chat sends the enriched query, echoing chatID to continue a
// conversation. On a 5xx it retries exactly once with a minimized
// request: the raw user text plus the bare location, no continuation
// token. Client errors are surfaced without retry.
func (c *Client) Chat(ctx context.Context, enriched, raw, location, chatID string) (*ChatResponse, error) {
	resp, err := c.send(ctx, ChatRequest{Query: enriched, Location: location, ChatID: chatID})
	if err == nil {
		return resp, nil
	}
	if !IsServerError(err) {
		return nil, err
	}

	c.log.Warn("chat request failed upstream, retrying with minimized query", "error", err)
	resp, retryErr := c.send(ctx, ChatRequest{Query: raw, Location: location})
	if retryErr != nil {
		return nil, fmt.Errorf("retry after server error failed: %w", retryErr)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}
	return &chatResp, nil
}
