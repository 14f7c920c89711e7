package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply    string
	err      error
	received []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(
	_ context.Context, _ []*schema.Message, _ ...model.Option,
) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestNewLLMServiceWithModel_Defaults(t *testing.T) {
	svc := NewLLMServiceWithModel(&fakeChatModel{}, LLMConfig{})

	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.NoError(t, svc.Close())
}

func TestLLMService_Generate(t *testing.T) {
	fake := &fakeChatModel{reply: `{"level":"Normal"}`}
	svc := NewLLMServiceWithModel(fake, LLMConfig{Model: "gpt-test"})

	out, err := svc.Generate(context.Background(), "classify this")
	require.NoError(t, err)
	assert.Equal(t, `{"level":"Normal"}`, out)
	require.Len(t, fake.received, 1)
	assert.Equal(t, schema.User, fake.received[0].Role)
	assert.Equal(t, "classify this", fake.received[0].Content)
}

func TestLLMService_Generate_Error(t *testing.T) {
	svc := NewLLMServiceWithModel(&fakeChatModel{err: errors.New("429")}, LLMConfig{})

	_, err := svc.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestLLMService_Ping(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewLLMServiceWithModel(&fakeChatModel{}, LLMConfig{APIKey: "sk-test", BaseURL: server.URL + "/"})
	require.NoError(t, svc.Ping(context.Background()))
	assert.Equal(t, "Bearer sk-test", auth)
}

func TestLLMService_Ping_Unauthorised(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer server.Close()

	svc := NewLLMServiceWithModel(&fakeChatModel{}, LLMConfig{BaseURL: server.URL})
	err := svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}
