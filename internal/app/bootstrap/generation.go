package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/leadchat-ai/internal/config"
	"github.com/wolfman30/leadchat-ai/internal/generation"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

// AWSLoader resolves the shared AWS configuration on first use.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// BuildLLMClient selects the text-generation backend from LLM_PROVIDER:
// "gemini", "bedrock", or "auto" (Gemini first with Bedrock as fallback when
// both are configured). The returned close func is never nil.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (generation.LLMClient, func(), error) {
	if cfg == nil {
		return nil, func() {}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	wantGemini := provider == "gemini" || (provider == "auto" && cfg.GeminiAPIKey != "")
	wantBedrock := provider == "bedrock" || (provider == "auto" && cfg.BedrockModel != "")

	switch provider {
	case "gemini", "bedrock", "auto", "":
	case "none", "noop":
		logger.Warn("text generation disabled; every report will use the failure notice")
		return generation.NoopClient{}, func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	closeFn := func() {}
	var gemini, bedrock generation.LLMClient

	if wantGemini {
		client, err := generation.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() { _ = client.Close() }
		gemini = client
		logger.Info("gemini client configured", "model", cfg.GeminiModelID)
	}

	if wantBedrock {
		if strings.TrimSpace(cfg.BedrockModel) == "" {
			closeFn()
			return nil, func() {}, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		if loadAWS == nil {
			closeFn()
			return nil, func() {}, fmt.Errorf("bootstrap: aws config loader is required for bedrock")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			closeFn()
			return nil, func() {}, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		bedrock = generation.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModel)
		logger.Info("bedrock client configured", "model", cfg.BedrockModel)
	}

	switch {
	case gemini != nil && bedrock != nil:
		return generation.NewFallbackClient(gemini, bedrock, logger), closeFn, nil
	case gemini != nil:
		return gemini, closeFn, nil
	case bedrock != nil:
		return bedrock, closeFn, nil
	default:
		logger.Warn("no text generation backend configured; using noop client")
		return generation.NoopClient{}, closeFn, nil
	}
}

// BuildGateway wraps the configured LLM client in the conversation gateway.
func BuildGateway(client generation.LLMClient, cfg *appconfig.Config, m *metrics.ConversationMetrics, logger *logging.Logger) *generation.Gateway {
	opts := []generation.GatewayOption{generation.WithMetrics(m)}
	if cfg != nil && cfg.LLMTimeout > 0 {
		opts = append(opts, generation.WithTimeout(cfg.LLMTimeout))
	}
	return generation.NewGateway(client, logger, opts...)
}
