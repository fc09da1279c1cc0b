package yelp

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// Proxy forwards chat requests to the upstream endpoint with the
// server-held credential attached. The upstream body and status come
// back verbatim; the proxy never rewrites a successful response.
type Proxy struct {
	httpClient *http.Client
	apiKey     string
	upstream   string
	log        *slog.Logger
}

// NewProxy builds a proxy for the given upstream URL.
func NewProxy(apiKey, upstream string, log *slog.Logger) *Proxy {
	if upstream == "" {
		upstream = defaultBaseURL
	}
	return &Proxy{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		upstream:   upstream,
		log:        log,
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProxyError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if p.apiKey == "" || p.apiKey == PlaceholderKey {
		writeProxyError(w, http.StatusInternalServerError, "search api key is not configured")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, p.upstream, r.Body)
	if err != nil {
		writeProxyError(w, http.StatusInternalServerError, "failed to build upstream request")
		return
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.Error("upstream chat request failed", "error", err)
		writeProxyError(w, http.StatusBadGateway, "search service unreachable")
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Error("failed to relay upstream response", "error", err)
	}
}

func writeProxyError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
