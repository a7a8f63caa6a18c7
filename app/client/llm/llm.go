package llm

import (
	"context"
	"fmt"

	"prdchat/app/model"
)

const (
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusIncomplete = "incomplete"

	ItemTypeMessage    = "message"
	ContentTypeOutText = "output_text"
)

// Provider is a conversational model endpoint that keeps context between calls through
// an opaque continuation handle (the previous response id).
type Provider interface {
	Respond(ctx context.Context, req Request) (*Response, error)
}

type InputItem struct {
	Role    model.Role
	Content string
}

type Request struct {
	Input []InputItem
	// PreviousResponseID chains the call to earlier context, empty for a fresh chain
	PreviousResponseID string
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type OutputItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentItem `json:"content,omitempty"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Response struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Output []OutputItem   `json:"output"`
	Error  *ResponseError `json:"error,omitempty"`
}

// Text returns the first assistant output text of a completed response.
func (r *Response) Text() (string, error) {
	if r.Status != StatusCompleted {
		if r.Error != nil {
			return "", fmt.Errorf("responses API error: %s", r.Error.Message)
		}
		return "", fmt.Errorf("response status not %q: %q", StatusCompleted, r.Status)
	}

	for _, item := range r.Output {
		if item.Type != ItemTypeMessage || item.Role != string(model.RoleAssistant) {
			continue
		}
		for _, content := range item.Content {
			if content.Type == ContentTypeOutText && content.Text != "" {
				return content.Text, nil
			}
		}
	}

	return "", model.ErrMalformedResponse
}

// TextResponse builds a completed response carrying a single assistant message.
func TextResponse(id, text string) *Response {
	return &Response{
		ID:     id,
		Status: StatusCompleted,
		Output: []OutputItem{
			{
				Type: ItemTypeMessage,
				Role: string(model.RoleAssistant),
				Content: []ContentItem{
					{Type: ContentTypeOutText, Text: text},
				},
			},
		},
	}
}
