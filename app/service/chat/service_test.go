package chat

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"prdchat/app/client/llm"
	"prdchat/app/model"
	"prdchat/app/service/prd"
	"prdchat/app/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeProvider struct {
	mu        sync.Mutex
	requests  []llm.Request
	responses []*llm.Response
	errs      []error
	counter   int
}

// push queues the next result. Responses without an id get a generated one; an empty
// queue answers "ok".
func (p *fakeProvider) push(resp *llm.Response, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.responses = append(p.responses, resp)
	p.errs = append(p.errs, err)
}

func (p *fakeProvider) Respond(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	p.counter++

	if len(p.responses) == 0 {
		return llm.TextResponse("resp_"+strconv.Itoa(p.counter), "ok"), nil
	}

	resp, err := p.responses[0], p.errs[0]
	p.responses, p.errs = p.responses[1:], p.errs[1:]
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		resp.ID = "resp_" + strconv.Itoa(p.counter)
	}

	return resp, nil
}

func (p *fakeProvider) lastRequest() llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.requests[len(p.requests)-1]
}

type countingStore struct {
	storage.Store
	creates, updates, deletes int
	updateErr               error
}

func (s *countingStore) Create(ctx context.Context, session *model.Session) error {
	s.creates++
	return s.Store.Create(ctx, session)
}

func (s *countingStore) Update(ctx context.Context, id string, update model.SessionUpdate) error {
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.Store.Update(ctx, id, update)
}

func (s *countingStore) Delete(ctx context.Context, id string) error {
	s.deletes++
	return s.Store.Delete(ctx, id)
}

func newTestService() (*Service, *fakeProvider, *countingStore) {
	provider := &fakeProvider{}
	store := &countingStore{Store: storage.NewMemoryStore()}

	return NewService(store, provider), provider, store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()
	provider.push(llm.TextResponse("resp_init", "ignored"+prd.Delimiter+"# ignored"), nil)

	session, err := svc.Create(ctx, "My product")
	require.NoError(t, err)
	assert.Equal(t, "My product", session.Name)

	req := provider.lastRequest()
	assert.Empty(t, req.PreviousResponseID)
	require.Len(t, req.Input, 1)
	assert.Equal(t, model.RoleSystem, req.Input[0].Role)
	assert.Equal(t, prd.SystemPrompt, req.Input[0].Content)

	stored, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Message{
		{Role: model.RoleSystem, Content: prd.SystemPrompt},
		{Role: model.RoleAssistant, Content: prd.Greeting},
	}, stored.Messages)
	assert.Equal(t, "resp_init", stored.LastResponseID)
	assert.Equal(t, prd.InitialDocument, stored.Document)
}

func TestCreateDefaultName(t *testing.T) {
	svc, _, _ := newTestService()
	svc.newID = func() string { return "0123456789abcdef" }

	session, err := svc.Create(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "PRD Chat - 01234567", session.Name)
	assert.Equal(t, "0123456789abcdef", session.ID)
}

func TestCreateTwice(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	first, err := svc.Create(ctx, "")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Summary{
		{ID: first.ID, Name: first.Name},
		{ID: second.ID, Name: second.Name},
	}, list)

	for _, id := range []string{first.ID, second.ID} {
		document, err := svc.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, prd.InitialDocument, document)
	}
}

func TestCreateProviderFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("call error", func(t *testing.T) {
		svc, provider, store := newTestService()
		provider.push(nil, errors.New("connection refused"))

		_, err := svc.Create(ctx, "x")
		assert.ErrorIs(t, err, model.ErrProviderInit)
		assert.Zero(t, store.creates)
	})

	t.Run("no handle", func(t *testing.T) {
		svc, _, store := newTestService()
		svc.provider = providerFunc(func(context.Context, llm.Request) (*llm.Response, error) {
			return &llm.Response{Status: llm.StatusFailed}, nil
		})

		_, err := svc.Create(ctx, "x")
		assert.ErrorIs(t, err, model.ErrProviderInit)
		assert.Zero(t, store.creates)

		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	unusable := []struct {
		name      string
		resp      *llm.Response
		malformed bool
	}{
		{
			name: "failed status with handle",
			resp: &llm.Response{ID: "resp_x", Status: llm.StatusFailed, Error: &llm.ResponseError{Code: "server_error", Message: "boom"}},
		},
		{
			name: "incomplete status with handle",
			resp: &llm.Response{ID: "resp_x", Status: llm.StatusIncomplete},
		},
		{
			name:      "completed without text",
			resp:      &llm.Response{ID: "resp_x", Status: llm.StatusCompleted},
			malformed: true,
		},
	}

	for _, tt := range unusable {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, store := newTestService()
			svc.provider = providerFunc(func(context.Context, llm.Request) (*llm.Response, error) {
				return tt.resp, nil
			})

			_, err := svc.Create(ctx, "x")
			assert.ErrorIs(t, err, model.ErrProviderInit)
			if tt.malformed {
				assert.ErrorIs(t, err, model.ErrMalformedResponse)
			}
			assert.Zero(t, store.creates)

			list, err := svc.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreateWithLangchainEmptyReply(t *testing.T) {
	svc, _, store := newTestService()
	svc.provider = llm.NewChainProvider(noChoicesModel{}, 0.7)

	_, err := svc.Create(context.Background(), "x")
	assert.ErrorIs(t, err, model.ErrProviderInit)
	assert.Zero(t, store.creates)
}

type providerFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

func (f providerFunc) Respond(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f(ctx, req)
}

func TestPostMessage(t *testing.T) {
	ctx := context.Background()
	svc, provider, store := newTestService()
	provider.push(llm.TextResponse("resp_init", "hi"), nil)

	session, err := svc.Create(ctx, "")
	require.NoError(t, err)

	provider.push(llm.TextResponse("resp_2", "  Great, noted.  "+prd.Delimiter+"# PRD: X\n"), nil)

	reply, err := svc.PostMessage(ctx, session.ID, "The product name is X")
	require.NoError(t, err)
	assert.Equal(t, "Great, noted.", reply)
	assert.Equal(t, 1, store.updates)

	req := provider.lastRequest()
	assert.Equal(t, "resp_init", req.PreviousResponseID)
	assert.Equal(t, []llm.InputItem{{Role: model.RoleUser, Content: "The product name is X"}}, req.Input)

	stored, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 4)
	assert.Equal(t, model.Message{Role: model.RoleUser, Content: "The product name is X"}, stored.Messages[2])
	assert.Equal(t, model.Message{Role: model.RoleAssistant, Content: "Great, noted."}, stored.Messages[3])
	assert.Equal(t, "resp_2", stored.LastResponseID)

	document, err := svc.GetDocument(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "# PRD: X", document)
}

func TestPostMessageWithoutDelimiter(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()

	session, err := svc.Create(ctx, "")
	require.NoError(t, err)

	provider.push(llm.TextResponse("resp_2", "first"+prd.Delimiter+"# Document v1"), nil)
	_, err = svc.PostMessage(ctx, session.ID, "one")
	require.NoError(t, err)

	provider.push(llm.TextResponse("resp_3", "  just chatting  "), nil)
	reply, err := svc.PostMessage(ctx, session.ID, "two")
	require.NoError(t, err)
	assert.Equal(t, "just chatting", reply)

	stored, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 6)
	assert.Equal(t, "# Document v1", stored.Document)
	assert.Equal(t, "resp_3", stored.LastResponseID)
}

func TestPostMessageNotFound(t *testing.T) {
	svc, provider, store := newTestService()

	_, err := svc.PostMessage(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, store.updates)
	assert.Zero(t, store.creates)
	assert.Empty(t, provider.requests)
}

func TestPostMessageBlank(t *testing.T) {
	svc, provider, _ := newTestService()

	_, err := svc.PostMessage(context.Background(), "any", " \n\t")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Empty(t, provider.requests)
}

func TestPostMessageProviderFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		resp      *llm.Response
		err       error
		malformed bool
	}{
		{
			name: "call error",
			err:  errors.New("timeout"),
		},
		{
			name: "failed status",
			resp: &llm.Response{ID: "resp_x", Status: llm.StatusFailed, Error: &llm.ResponseError{Code: "server_error", Message: "boom"}},
		},
		{
			name: "incomplete status",
			resp: &llm.Response{ID: "resp_x", Status: llm.StatusIncomplete},
		},
		{
			name:      "no text",
			resp:      &llm.Response{ID: "resp_x", Status: llm.StatusCompleted},
			malformed: true,
		},
		{
			name: "empty conversation",
			resp: llm.TextResponse("resp_x", "   "+prd.Delimiter+"# doc"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, provider, store := newTestService()

			session, err := svc.Create(ctx, "")
			require.NoError(t, err)
			before, err := svc.Get(ctx, session.ID)
			require.NoError(t, err)

			provider.push(tt.resp, tt.err)

			_, err = svc.PostMessage(ctx, session.ID, "hello")
			assert.ErrorIs(t, err, model.ErrProviderCall)
			if tt.malformed {
				assert.ErrorIs(t, err, model.ErrMalformedResponse)
			}
			assert.Zero(t, store.updates)

			after, err := svc.Get(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestPostMessageStoreFailure(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newTestService()

	session, err := svc.Create(ctx, "")
	require.NoError(t, err)

	store.updateErr = model.ErrStoreUnavailable

	_, err = svc.PostMessage(ctx, session.ID, "hello")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, model.ErrNotFound)
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()

	session, err := svc.Create(ctx, "Old")
	require.NoError(t, err)
	provider.push(llm.TextResponse("resp_2", "reply"+prd.Delimiter+"# doc"), nil)
	_, err = svc.PostMessage(ctx, session.ID, "hello")
	require.NoError(t, err)

	before, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, session.ID, "  New  "))

	after, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", after.Name)
	assert.Equal(t, before.Messages, after.Messages)
	assert.Equal(t, before.Document, after.Document)
	assert.Equal(t, before.LastResponseID, after.LastResponseID)
}

func TestRenameErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newTestService()

	err := svc.Rename(ctx, "missing", "name")
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = svc.Rename(ctx, "missing", "  ")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	session, err := svc.Create(ctx, "")
	require.NoError(t, err)

	store.updateErr = errors.New("disk full")
	err = svc.Rename(ctx, session.ID, "name")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)

	err = svc.Rename(ctx, "missing", "name")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteTwice(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	session, err := svc.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, session.ID))
	_, err = svc.Get(ctx, session.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, session.ID))
}

func TestGetDocumentFallsBackToTemplate(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()

	session, err := svc.Create(ctx, "")
	require.NoError(t, err)

	provider.push(llm.TextResponse("resp_2", "cleared"+prd.Delimiter), nil)
	_, err = svc.PostMessage(ctx, session.ID, "clear it")
	require.NoError(t, err)

	document, err := svc.GetDocument(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, prd.InitialDocument, document)

	_, err = svc.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

type noChoicesModel struct{}

func (noChoicesModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func (m noChoicesModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
