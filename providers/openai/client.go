package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"newsflow/config"
	"newsflow/models"
)

// Client talks to the external text-intelligence service. It is consumed as
// a black box: text in, keyword string / category label / embedding out.
type Client struct {
	api    *openai.Client
	cfg    *config.Config
	logger *zap.Logger
}

// NewClient creates the provider client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		api:    openai.NewClient(cfg.OpenAIAPIKey),
		cfg:    cfg,
		logger: logger,
	}
}

const keywordPrompt = "Extract the 5 most important keywords from the news " +
	"article below. Answer with a single line of comma-separated keywords " +
	"and nothing else. (example: economy, market, interest rate, stocks, consumers)"

// ExtractKeywords asks the provider for exactly 5 comma-separated keywords.
// The raw split result is returned trimmed; the count is whatever the
// provider produced.
func (c *Client) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OpenAITimeout())
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.OpenAIChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: keywordPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: 100,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword extraction: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("keyword extraction: empty response")
	}

	parts := strings.Split(resp.Choices[0].Message.Content, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		keywords = append(keywords, strings.TrimSpace(p))
	}
	return keywords, nil
}

// ClassifyCategory asks the provider to pick one category for the article.
// The raw label is returned; mapping onto the allowed set is the caller's
// concern.
func (c *Client) ClassifyCategory(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OpenAITimeout())
	defer cancel()

	prompt := fmt.Sprintf("Read the news article and choose the single most "+
		"fitting category.\nCategories: %s.\nAnswer with the category name only.",
		strings.Join(models.AllowedCategories, ", "))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.OpenAIChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: 20,
	})
	if err != nil {
		return "", fmt.Errorf("category classification: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("category classification: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed converts text into the fixed-dimensionality embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OpenAITimeout())
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.OpenAIEmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response")
	}
	if got := len(resp.Data[0].Embedding); got != c.cfg.EmbeddingDimension {
		return nil, fmt.Errorf("embedding: dimension %d, want %d", got, c.cfg.EmbeddingDimension)
	}
	return resp.Data[0].Embedding, nil
}
