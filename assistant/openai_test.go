package assistant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relaydesk/relay/transport"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFailingBackend(t *testing.T) (*OpenAIClient, *int) {
	t.Helper()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	cfg.AssistantVersion = "v2"

	client := &OpenAIClient{
		api:    openai.NewClientWithConfig(cfg),
		policy: transport.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}
	return client, &calls
}

func TestAppendMessageIsNeverRetried(t *testing.T) {
	client, calls := newFailingBackend(t)

	err := client.AppendMessage(context.Background(), "thread-1", "hello", nil)

	require.Error(t, err)
	assert.Equal(t, 1, *calls, "a retried create could append the message twice")
}

func TestGetJobRetriesReads(t *testing.T) {
	client, calls := newFailingBackend(t)

	_, err := client.GetJob(context.Background(), "thread-1", "run-1")

	require.Error(t, err)
	assert.Equal(t, 3, *calls, "run retrieval is read-only and uses the full attempt budget")
}

func TestMapRunStatus(t *testing.T) {
	cases := []struct {
		status openai.RunStatus
		want   JobState
	}{
		{openai.RunStatusQueued, JobQueued},
		{openai.RunStatusInProgress, JobInProgress},
		{openai.RunStatusCancelling, JobInProgress},
		{openai.RunStatusCompleted, JobCompleted},
		{openai.RunStatusRequiresAction, JobRequiresAction},
		{openai.RunStatusExpired, JobExpired},
		{openai.RunStatus("cancelled"), JobCancelled},
		{openai.RunStatusFailed, JobFailed},
		{openai.RunStatus("some_future_state"), JobFailed},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, mapRunStatus(tc.status), string(tc.status))
	}
}

func TestTerminalStates(t *testing.T) {
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobInProgress.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobRequiresAction.Terminal())
	assert.True(t, JobCancelled.Terminal())
	assert.True(t, JobExpired.Terminal())
	assert.True(t, JobTimeout.Terminal())
}

func TestConvertMessageExtractsFilePathAnnotations(t *testing.T) {
	raw := openai.Message{
		ID:      "msg-1",
		Role:    "assistant",
		FileIds: []string{"file-att1"},
		Content: []openai.MessageContent{
			{
				Type: "text",
				Text: &openai.MessageText{
					Value: "Saved to sandbox:/mnt/data/report.csv",
					Annotations: []any{
						map[string]any{
							"type": "file_path",
							"text": "sandbox:/mnt/data/report.csv",
							"file_path": map[string]any{
								"file_id": "file-gen1",
							},
						},
						map[string]any{
							"type": "file_citation",
							"text": "some quote",
						},
					},
				},
			},
			{
				Type:      "image_file",
				ImageFile: &openai.ImageFile{FileID: "file-img1"},
			},
		},
	}

	msg := convertMessage(raw, time.Unix(1700000000, 0))

	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, []string{"file-att1"}, msg.FileHandles)
	require.Len(t, msg.Content, 3)

	assert.Equal(t, ContentText, msg.Content[0].Kind)
	assert.Equal(t, "Saved to sandbox:/mnt/data/report.csv", msg.Content[0].Text)

	assert.Equal(t, ContentFileRef, msg.Content[1].Kind)
	assert.Equal(t, "file-gen1", msg.Content[1].FileHandle)
	assert.Equal(t, "sandbox:/mnt/data/report.csv", msg.Content[1].SandboxPath)

	assert.Equal(t, ContentImageRef, msg.Content[2].Kind)
	assert.Equal(t, "file-img1", msg.Content[2].FileHandle)
}

func TestDecodeAnnotationsSkipsMalformedEntries(t *testing.T) {
	out := decodeAnnotations([]any{
		make(chan int), // not marshalable
		map[string]any{"type": "file_path", "file_path": map[string]any{"file_id": "file-x"}},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "file-x", out[0].FilePath.FileID)
}
