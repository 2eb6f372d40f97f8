// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// userAgent identifies the application to the catalog APIs.
const userAgent = "Tsundoku/1.0 (+https://github.com/taibuivan/tsundoku)"

// errStatus marks non-retryable 4xx answers.
var errStatus = errors.New("search: unexpected status")

// NewHTTPClient returns the client shared by every adapter.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxConnsPerHost:       10,
		IdleConnTimeout:       30 * time.Second,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// fetcher performs GET requests with a small retry budget on transient failures.
type fetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

func newFetcher(client *http.Client) fetcher {
	if client == nil {
		client = NewHTTPClient(10 * time.Second)
	}
	return fetcher{client: client, retries: 1, backoff: 150 * time.Millisecond}
}

// getJSON decodes the JSON body of url into target.
func (f fetcher) getJSON(ctx context.Context, url string, headers map[string]string, target any) error {
	body, err := f.get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("search: decode failed: %w", err)
	}
	return nil
}

// get returns the body of url. 4xx answers are final; network errors and 5xx are retried.
func (f fetcher) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	attempts := f.retries + 1

	for i := 0; i < attempts; i++ {
		body, err := f.getOnce(ctx, url, headers)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, errStatus) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err

		if i < attempts-1 {
			select {
			case <-time.After(f.backoff * time.Duration(i+1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}

func (f fetcher) getOnce(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "application/json")
	for name, value := range headers {
		request.Header.Set(name, value)
	}

	response, err := f.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case response.StatusCode >= 500:
		return nil, fmt.Errorf("search: upstream status %d", response.StatusCode)
	case response.StatusCode < 200 || response.StatusCode > 299:
		return nil, fmt.Errorf("%w %d: %s", errStatus, response.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}
