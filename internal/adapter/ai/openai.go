package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI caps embedding requests at 2048 inputs.
const maxEmbedBatch = 2048

// OpenAIConfig holds the configuration for the OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // empty = api.openai.com
	EmbedModel   string // e.g. text-embedding-3-large
	ChatModel    string // letter composition
	ExtractModel string // web-grounded requirement extraction
	Dimension    int
	HTTPClient   *http.Client
}

// OpenAIProvider implements port.AIProvider using the OpenAI API.
// Embeddings and chat go through the go-openai client; the web-grounded
// extraction uses the Responses API directly since the client does not
// expose it.
type OpenAIProvider struct {
	client       *openai.Client
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	embedModel   string
	chatModel    string
	extractModel string
	dimension    int
}

// NewOpenAIProvider creates an OpenAI-backed AI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	} else {
		baseURL = clientCfg.BaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clientCfg.HTTPClient = httpClient

	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = string(openai.LargeEmbedding3)
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	extractModel := cfg.ExtractModel
	if extractModel == "" {
		extractModel = chatModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 3072
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientCfg),
		httpClient:   httpClient,
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		embedModel:   embedModel,
		chatModel:    chatModel,
		extractModel: extractModel,
		dimension:    dimension,
	}
}

// ModelName returns the chat model identifier.
func (p *OpenAIProvider) ModelName() string {
	return p.chatModel
}

// Dimension returns the embedding output dimension.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Embed generates a vector embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", port.ErrEmbedding)
	}
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one remote call,
// order-preserving. Either every input gets a vector or an error is returned.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      texts[start:end],
			Model:      openai.EmbeddingModel(p.embedModel),
			Dimensions: p.dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", port.ErrEmbedding, err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d inputs", port.ErrEmbedding, len(resp.Data), end-start)
		}

		for _, d := range resp.Data {
			all = append(all, d.Embedding)
		}
	}
	return all, nil
}

// Complete sends the final prompt and returns the model output verbatim.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", port.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", port.ErrGeneration)
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractFromURL asks the model to read a job posting and summarize its
// requirements using the built-in web search tool.
func (p *OpenAIProvider) ExtractFromURL(ctx context.Context, jobURL string) (string, error) {
	prompt := fmt.Sprintf(`Analyze the job posting at this URL: %s
Answer in the same language the posting is written in.
Extract and summarize:
- Job title
- Main responsibilities
- Required skills and competencies
- Required work experience
- Education and qualifications
- Additional requirements

Present the information in a structured form.`, jobURL)

	payload := responsesRequest{
		Model: p.extractModel,
		Tools: []responsesTool{{Type: "web_search_preview"}},
		Input: prompt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", port.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: responses API returned %d: %s", port.ErrGeneration, resp.StatusCode, string(raw))
	}

	var decoded responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", port.ErrGeneration, err)
	}

	text := decoded.outputText()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: extraction produced no text", port.ErrGeneration)
	}
	return text, nil
}

// --- Responses API payloads ---

type responsesTool struct {
	Type string `json:"type"`
}

type responsesRequest struct {
	Model string          `json:"model"`
	Tools []responsesTool `json:"tools,omitempty"`
	Input string          `json:"input"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// outputText concatenates the text content of all message outputs.
func (r *responsesResponse) outputText() string {
	var b strings.Builder
	for _, out := range r.Output {
		if out.Type != "message" {
			continue
		}
		for _, c := range out.Content {
			if c.Type == "output_text" {
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}
