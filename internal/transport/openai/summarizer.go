package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/metrics"
)

// SummaryPrompt instructs the model to describe a text for semantic search.
const SummaryPrompt = "You write short descriptions of texts for a semantic search index. " +
	"Describe the given text in 2-4 sentences: its topic, key ideas and tone. " +
	"Write in the language of the text. Output only the description, " +
	"with no preamble, quotes or headings."

// SummarizerConfig holds the summarization provider settings.
type SummarizerConfig struct {
	ClientConfig
	Model       string
	Temperature float32
	MaxTokens   int
	Provider    string
	Logger      *zap.Logger
}

// Summarizer produces search-oriented descriptions through chat completions.
type Summarizer struct {
	client      *openai.Client
	conn        ClientConfig
	model       string
	temperature float32
	maxTokens   int
	provider    string
	logger      *zap.Logger
}

// NewSummarizer creates an OpenAI-compatible summarizer.
func NewSummarizer(cfg *SummarizerConfig) *Summarizer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		client:      newClient(cfg.ClientConfig),
		conn:        cfg.ClientConfig,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		provider:    cfg.Provider,
		logger:      logger,
	}
}

// Summarize implements domain.Summarizer. The hint, when set, prefixes the text.
func (s *Summarizer) Summarize(ctx context.Context, text, hint string) (string, error) {
	user := text
	if hint = strings.TrimSpace(hint); hint != "" {
		user = "Context: " + hint + "\n\n" + text
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SummaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}

	attempt := 0
	start := time.Now()

	resp, err := call(ctx, s.conn, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		attempt++
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			s.logger.Warn("summarization request failed",
				zap.Int("attempt", attempt),
				zap.Int("text_len", len(text)),
				zap.Error(err),
			)
		}
		return resp, err
	})

	if err != nil {
		metrics.SummarizerRequestsTotal.WithLabelValues(s.provider, s.model, "error").Inc()
		return "", parseAPIError("summarization", err, domain.ErrSummarizerError)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.SummarizerRequestsTotal.WithLabelValues(s.provider, s.model, "error").Inc()
		return "", fmt.Errorf("empty summarization response: %w", domain.ErrSummarizerError)
	}

	metrics.SummarizerRequestsTotal.WithLabelValues(s.provider, s.model, "success").Inc()
	metrics.SummarizerRequestDuration.WithLabelValues(s.provider, s.model).Observe(time.Since(start).Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.SummarizerTokensTotal.WithLabelValues(s.provider, s.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.SummarizerTokensTotal.WithLabelValues(s.provider, s.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
