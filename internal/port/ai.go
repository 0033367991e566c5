package port

import "context"

// AIProvider abstracts the embedding and text generation backend.
// Implementations can target OpenAI or any compatible API.
type AIProvider interface {
	// ModelName returns the identifier of the generation model being used.
	ModelName() string

	// Dimension returns the fixed output dimension of the embedding model.
	Dimension() int

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call,
	// order-preserving, all-or-nothing.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Complete sends a final prompt and returns the model output verbatim.
	Complete(ctx context.Context, prompt string) (string, error)

	// ExtractFromURL runs a web-grounded extraction turning a job-posting URL
	// into structured requirements text.
	ExtractFromURL(ctx context.Context, jobURL string) (string, error)
}
