package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kashf/internal/models"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var errMissingAPIKey = errors.New("no API key configured")

// OpenAIConfig configures an OpenAI-compatible embedding client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint through langchaingo.
// Every failure is reported as models.ErrEmbeddingService.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates a client for cfg.Model.
func NewOpenAIEmbedder(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingService, errMissingAPIKey)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
	}
	return &OpenAIEmbedder{
		embedder:   embedder,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger.With(zap.String("model", cfg.Model)),
	}, nil
}

// Embed returns the embedding of a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("embedding request failed", zap.Int("length", len(text)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
	}
	if err := e.checkDimensions(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch returns embeddings for texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("batch embedding request failed", zap.Int("count", len(texts)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", models.ErrEmbeddingService, len(vecs), len(texts))
	}
	for _, v := range vecs {
		if err := e.checkDimensions(v); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) checkDimensions(vec []float32) error {
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return fmt.Errorf("%w: expected %d dimensions, got %d", models.ErrEmbeddingService, e.dimensions, len(vec))
	}
	return nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Close is a no-op; the HTTP client has nothing to release.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
