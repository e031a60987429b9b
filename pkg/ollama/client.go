package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Client wraps the Ollama API client. Requests use the streaming generate
// endpoint; the streamed fragments are concatenated in order so callers see
// one reply string regardless of how the server chunks it.
type Client struct {
	client      *api.Client
	temperature float64
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	// Parse the provided URL
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Create base URL from the provided URL (removing path like /api/generate)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	// Create client with the specified URL, ignoring environment
	client := api.NewClient(baseURL, http.DefaultClient)

	return &Client{client: client}, nil
}

// SetTemperature sets the sampling temperature forwarded with each request.
// Zero leaves the server default in place.
func (c *Client) SetTemperature(t float64) {
	c.temperature = t
}

// Generate sends the prompt and image to the model and returns the full
// accumulated reply text.
func (c *Client) Generate(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	// Add timeout if context doesn't have one (vision models are slow on CPU)
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	// Decode base64 image to raw bytes
	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 image: %v", err)
	}

	options := map[string]any{}
	if c.temperature > 0 {
		options["temperature"] = c.temperature
	}

	req := &api.GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Images:  []api.ImageData{api.ImageData(imgBytes)},
		Options: options,
		// Stream left unset: the default streaming mode is used and the
		// fragments are accumulated below.
	}

	var reply strings.Builder
	err = c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		reply.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate error: %v", err)
	}

	return reply.String(), nil
}
