package llm

import (
	"context"
	"fmt"
	"sync"

	"prdchat/app/model"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

const maxChains = 4096

// ChainProvider adapts a stateless langchaingo chat model to the Provider contract.
// Every reply gets a fresh handle that maps to the whole conversation so far, so the
// caller only ever sends the new input. Chains live in process memory and are lost on
// restart.
type ChainProvider struct {
	model       llms.Model
	temperature float64

	mu     sync.Mutex
	chains map[string][]llms.MessageContent
	order  []string
}

func NewChainProvider(model llms.Model, temperature float64) *ChainProvider {
	return &ChainProvider{
		model:       model,
		temperature: temperature,
		chains:      make(map[string][]llms.MessageContent),
	}
}

func (p *ChainProvider) Respond(ctx context.Context, req Request) (*Response, error) {
	var history []llms.MessageContent
	if req.PreviousResponseID != "" {
		var ok bool
		history, ok = p.load(req.PreviousResponseID)
		if !ok {
			return &Response{
				Status: StatusFailed,
				Error: &ResponseError{
					Code:    "previous_response_not_found",
					Message: fmt.Sprintf("previous response with id '%s' not found", req.PreviousResponseID),
				},
			}, nil
		}
	}

	messages := make([]llms.MessageContent, 0, len(history)+len(req.Input)+1)
	messages = append(messages, history...)
	for _, item := range req.Input {
		messages = append(messages, llms.TextParts(messageType(item.Role), item.Content))
	}

	result, err := p.model.GenerateContent(ctx, messages, llms.WithTemperature(p.temperature))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	id := "resp_" + uuid.NewString()

	if len(result.Choices) == 0 {
		return &Response{ID: id, Status: StatusIncomplete}, nil
	}

	text := result.Choices[0].Content
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, text))
	p.save(id, messages)

	return TextResponse(id, text), nil
}

func (p *ChainProvider) load(id string) ([]llms.MessageContent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	messages, ok := p.chains[id]
	return messages, ok
}

func (p *ChainProvider) save(id string, messages []llms.MessageContent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.order) >= maxChains {
		delete(p.chains, p.order[0])
		p.order = p.order[1:]
	}

	p.chains[id] = messages
	p.order = append(p.order, id)
}

func messageType(role model.Role) llms.ChatMessageType {
	switch role {
	case model.RoleSystem:
		return llms.ChatMessageTypeSystem
	case model.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
