package client

import "context"

// VisionClient sends one prompt plus one base64-encoded image to a hosted
// vision model and returns the accumulated text reply.
type VisionClient interface {
	Generate(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
