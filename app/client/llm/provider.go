package llm

import (
	"fmt"
	"net/http"

	"prdchat/app/config"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms/openai"
)

// New builds the Provider selected by the llm section of the config.
func New(di *do.Injector) (Provider, error) {
	cfg := do.MustInvoke[*config.Config](di).LLM

	switch cfg.Kind {
	case "langchain":
		return newLangchainProvider(cfg)
	default:
		return NewResponsesClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.APIVersion, cfg.Timeout), nil
	}
}

func newLangchainProvider(cfg config.LLM) (Provider, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout,
		}),
		openai.WithCallback(&LogCallbackHandler{}),
	}
	if cfg.APIVersion != "" {
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(cfg.APIVersion),
		)
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain openai client: %w", err)
	}

	return NewChainProvider(client, cfg.Temperature), nil
}
