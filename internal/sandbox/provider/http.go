package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider talks to the remote sandbox service over its REST API.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider for the remote sandbox service.
func NewHTTPProvider(baseURL string, apiKey string) *HTTPProvider {
	// Ensure no trailing slash
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		// Creation can take minutes; the per-call context carries the
		// real bound, so the client timeout only guards dial stalls.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

type createSandboxRequest struct {
	Template string `json:"template"`
}

type createSandboxResponse struct {
	SandboxID string `json:"sandbox_id"`
}

type runCodeRequest struct {
	Code string `json:"code"`
}

type runCodeResponse struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

// Create provisions a new instance from the template.
func (p *HTTPProvider) Create(ctx context.Context, template string) (Instance, error) {
	var resp createSandboxResponse
	err := p.do(ctx, http.MethodPost, "/v1/sandboxes", createSandboxRequest{Template: template}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox from template %s: %w", template, err)
	}
	if resp.SandboxID == "" {
		return nil, fmt.Errorf("sandbox service returned no instance id for template %s", template)
	}

	return &httpInstance{provider: p, id: resp.SandboxID}, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sandbox service returned status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// httpInstance is a remote sandbox reachable through the service API.
type httpInstance struct {
	provider *HTTPProvider
	id       string
}

func (i *httpInstance) ID() string {
	return i.id
}

func (i *httpInstance) Run(ctx context.Context, code string) (*RunResult, error) {
	var resp runCodeResponse
	path := fmt.Sprintf("/v1/sandboxes/%s/run", i.id)
	if err := i.provider.do(ctx, http.MethodPost, path, runCodeRequest{Code: code}, &resp); err != nil {
		return nil, fmt.Errorf("failed to run code in sandbox %s: %w", i.id, err)
	}

	return &RunResult{Output: resp.Output, ExitCode: resp.ExitCode}, nil
}

func (i *httpInstance) Kill(ctx context.Context) error {
	path := fmt.Sprintf("/v1/sandboxes/%s", i.id)
	if err := i.provider.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to kill sandbox %s: %w", i.id, err)
	}
	return nil
}
