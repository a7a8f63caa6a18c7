package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"prdchat/app/client/llm"
	"prdchat/app/model"
	"prdchat/app/service/prd"
	"prdchat/app/storage"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const defaultNamePrefix = "PRD Chat - "

// Service drives PRD conversations: it relays user messages to the provider, splits
// the reply into conversation and document, and persists the outcome.
type Service struct {
	store    storage.Store
	provider llm.Provider
	newID    func() string
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[storage.Store](di),
		do.MustInvoke[llm.Provider](di),
	), nil
}

func NewService(store storage.Store, provider llm.Provider) *Service {
	return &Service{
		store:    store,
		provider: provider,
		newID:    uuid.NewString,
	}
}

// Create starts a new session. The provider is primed with the system prompt to obtain
// a continuation handle; the stored transcript opens with the fixed greeting.
func (s *Service) Create(ctx context.Context, name string) (*model.Session, error) {
	id := s.newID()

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultNamePrefix + id[:min(8, len(id))]
	}

	resp, err := s.provider.Respond(ctx, llm.Request{
		Input: []llm.InputItem{
			{Role: model.RoleSystem, Content: prd.SystemPrompt},
		},
	})
	if err != nil {
		return nil, oops.
			In("chat").
			Code("provider_init").
			With("chat_id", id).
			Wrapf(fmt.Errorf("%w: %w", model.ErrProviderInit, err), "create chat")
	}
	if resp.ID == "" {
		return nil, oops.
			In("chat").
			Code("provider_init").
			With("chat_id", id).
			With("status", resp.Status).
			Wrapf(model.ErrProviderInit, "create chat: no response id")
	}
	// a failed or empty reply leaves nothing to continue from
	if _, err = resp.Text(); err != nil {
		return nil, oops.
			In("chat").
			Code("provider_init").
			With("chat_id", id).
			With("response_id", resp.ID).
			With("status", resp.Status).
			Wrapf(fmt.Errorf("%w: %w", model.ErrProviderInit, err), "create chat")
	}

	session := &model.Session{
		ID:   id,
		Name: name,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: prd.SystemPrompt},
			{Role: model.RoleAssistant, Content: prd.Greeting},
		},
		LastResponseID: resp.ID,
		Document:       prd.InitialDocument,
	}

	if err = s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save chat: %w", err)
	}

	slog.Info("Chat created",
		"chat_id", id,
		"name", name,
		"response_id", resp.ID,
	)

	return session, nil
}

// PostMessage sends one user message and returns the conversational part of the reply.
// The transcript, continuation handle and, when present, the new document are written
// in a single store update.
func (s *Service) PostMessage(ctx context.Context, id, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", oops.
			In("chat").
			Code("invalid_argument").
			With("chat_id", id).
			Wrapf(model.ErrInvalidArgument, "message content is empty")
	}

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	start := time.Now()

	resp, err := s.provider.Respond(ctx, llm.Request{
		Input: []llm.InputItem{
			{Role: model.RoleUser, Content: content},
		},
		PreviousResponseID: session.LastResponseID,
	})
	if err != nil {
		return "", providerCallError(id, err)
	}

	raw, err := resp.Text()
	if err != nil {
		return "", providerCallError(id, err)
	}

	conversation, document, parsed := prd.Split(raw)
	if !parsed {
		slog.Warn("Delimiter not found in model output, keeping previous document",
			"chat_id", id,
			"response_id", resp.ID,
		)
	}
	if conversation == "" {
		return "", oops.
			In("chat").
			Code("provider_call").
			With("chat_id", id).
			With("response_id", resp.ID).
			Wrapf(model.ErrProviderCall, "model returned no conversational text")
	}

	messages := make([]model.Message, 0, len(session.Messages)+2)
	messages = append(messages, session.Messages...)
	messages = append(messages,
		model.Message{Role: model.RoleUser, Content: content},
		model.Message{Role: model.RoleAssistant, Content: conversation},
	)

	update := model.SessionUpdate{
		Messages:       messages,
		LastResponseID: &resp.ID,
	}
	if parsed {
		update.Document = &document
	}

	if err = s.store.Update(ctx, id, update); err != nil {
		return "", fmt.Errorf("failed to save chat: %w", err)
	}

	slog.Info("Message processed",
		"chat_id", id,
		"response_id", resp.ID,
		"document_updated", parsed,
		"duration", time.Since(start),
	)

	return conversation, nil
}

func providerCallError(id string, err error) error {
	return oops.
		In("chat").
		Code("provider_call").
		With("chat_id", id).
		Wrapf(fmt.Errorf("%w: %w", model.ErrProviderCall, err), "post message")
}

// GetDocument returns the latest PRD markdown of the session, falling back to the
// initial template.
func (s *Service) GetDocument(ctx context.Context, id string) (string, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if session.Document == "" {
		return prd.InitialDocument, nil
	}

	return session.Document, nil
}

func (s *Service) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return oops.
			In("chat").
			Code("invalid_argument").
			With("chat_id", id).
			Wrapf(model.ErrInvalidArgument, "new name is empty")
	}

	err := s.store.Update(ctx, id, model.SessionUpdate{Name: &name})
	if err == nil {
		slog.Info("Chat renamed", "chat_id", id, "name", name)
		return nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return err
	}

	if _, getErr := s.store.Get(ctx, id); errors.Is(getErr, model.ErrNotFound) {
		return getErr
	}

	return fmt.Errorf("failed to rename chat: %w", err)
}

func (s *Service) List(ctx context.Context) ([]model.Summary, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.store.Get(ctx, id)
}

// Delete removes the session. Deleting a missing session succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	slog.Info("Chat deleted", "chat_id", id)

	return nil
}
