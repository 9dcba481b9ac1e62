package llm

//go:generate mockgen -destination=./clients_mock_test.go -package=llm -source=clients.go

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultBaseURL is the public Gemini REST endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient defines the contract for an external client that talks to the Gemini API.
type GeminiClient interface {
	// GenerateContent sends the contents in a single call and returns the raw response envelope.
	// The envelope's shape depends on the transport, so callers treat it as opaque.
	GenerateContent(ctx context.Context, contents []*genai.Content) (any, error)
}

// sdkGeminiClient calls Gemini through the official SDK.
type sdkGeminiClient struct {
	client *genai.Client
	model  string
}

// NewSDKGeminiClient creates a client backed by google.golang.org/genai.
func NewSDKGeminiClient(ctx context.Context, apiKey, model string) (GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create genai client: %w", err)
	}
	return &sdkGeminiClient{client: client, model: model}, nil
}

func (c *sdkGeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content) (any, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// restGeminiClient calls the generateContent REST endpoint directly and hands
// back the decoded JSON without binding it to a schema.
type restGeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewRESTGeminiClient is the constructor for the plain HTTP client.
func NewRESTGeminiClient(apiKey, model, baseURL string) GeminiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &restGeminiClient{
		httpClient: &http.Client{Timeout: 2 * time.Minute}, // Uploads can take a while
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// generateRequest is the body of a generateContent call. Inline data is
// base64-encoded by encoding/json.
type generateRequest struct {
	Contents []*genai.Content `json:"contents"`
}

// apiError is the error envelope Gemini returns on non-200 responses.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *restGeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content) (any, error) {
	reqBody, err := json.Marshal(generateRequest{Contents: contents})
	if err != nil {
		return nil, fmt.Errorf("could not marshal generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("could not create generate http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini returned non-200 status: %d", resp.StatusCode)
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("could not decode generate response: %w", err)
	}
	return envelope, nil
}

// stubGeminiClient is a fake GeminiClient.
type stubGeminiClient struct{}

// NewStubGeminiClient creates a fake client.
func NewStubGeminiClient() GeminiClient {
	return &stubGeminiClient{}
}

func (s *stubGeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content) (any, error) {
	// Echo the last text part so the page can be exercised offline
	reply := "Hello! I'm a stub model and no prompt reached me."
	for _, content := range contents {
		for _, part := range content.Parts {
			if part.Text != "" {
				reply = fmt.Sprintf("You said: %s", part.Text)
			}
		}
	}

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(reply, genai.RoleModel)},
		},
	}, nil
}
