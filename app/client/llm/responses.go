package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/gofiber/fiber/v2"
)

// ResponsesClient talks to the OpenAI Responses API, or to its Azure OpenAI flavour
// when an api version is set.
type ResponsesClient struct {
	baseURL    string
	apiKey     string
	model      string
	apiVersion string
	timeout    time.Duration
}

type responsesInput struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model              string           `json:"model"`
	Input              []responsesInput `json:"input"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
}

func NewResponsesClient(baseURL, apiKey, model, apiVersion string, timeout time.Duration) *ResponsesClient {
	return &ResponsesClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		apiVersion: apiVersion,
		timeout:    timeout,
	}
}

func (c *ResponsesClient) endpoint() string {
	url := c.baseURL + "/responses"
	if c.apiVersion != "" {
		url += "?api-version=" + c.apiVersion
	}

	return url
}

func (c *ResponsesClient) Respond(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body := responsesRequest{
		Model: c.model,
		Input: pie.Map(req.Input, func(item InputItem) responsesInput {
			return responsesInput{
				Type:    ItemTypeMessage,
				Role:    string(item.Role),
				Content: item.Content,
			}
		}),
		PreviousResponseID: req.PreviousResponseID,
	}

	agent := fiber.Post(c.endpoint())
	agent.Timeout(c.timeout)
	if c.apiVersion != "" {
		agent.Set("api-key", c.apiKey)
	} else {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.apiKey)
	}
	agent.JSON(body)

	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("failed to prepare Responses API request: %w", err)
	}

	slog.Debug("Sending request to Responses API",
		"previous_response_id", req.PreviousResponseID,
		"input_items", len(req.Input),
	)

	code, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to call Responses API: %w", errors.Join(errs...))
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
			return nil, fmt.Errorf("responses API returned status %d", code)
		}
		return nil, fmt.Errorf("failed to decode Responses API reply: %w", err)
	}

	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		if resp.Error != nil {
			return nil, fmt.Errorf("responses API returned status %d: %s", code, resp.Error.Message)
		}
		return nil, fmt.Errorf("responses API returned status %d", code)
	}

	slog.Debug("Received response from Responses API",
		"response_id", resp.ID,
		"status", resp.Status,
	)

	return &resp, nil
}
