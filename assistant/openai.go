package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/relaydesk/relay/transport"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts the OpenAI Assistants API (threads/runs) to the
// Client boundary. All outbound calls go through the shared transport
// policy.
type OpenAIClient struct {
	api    *openai.Client
	policy transport.Policy
}

func NewOpenAIClient(apiKey string, policy transport.Policy) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.AssistantVersion = "v2"

	return &OpenAIClient{
		api:    openai.NewClientWithConfig(cfg),
		policy: policy,
	}
}

func (c *OpenAIClient) CreateConversation(ctx context.Context) (string, error) {
	// Thread creation is not idempotent, so it is never retried.
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (c *OpenAIClient) AppendMessage(ctx context.Context, conversationID, text string, fileHandles []string) error {
	req := openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	}
	for _, handle := range fileHandles {
		req.Attachments = append(req.Attachments, openai.ThreadAttachment{
			FileID: handle,
			Tools:  []openai.ThreadAttachmentTool{{Type: "code_interpreter"}},
		})
	}

	// Message creation is not idempotent: a retry after an ambiguous
	// failure could append the text to the thread twice.
	if _, err := c.api.CreateMessage(ctx, conversationID, req); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (c *OpenAIClient) CreateJob(ctx context.Context, conversationID, agentID string) (string, error) {
	// Run creation is not idempotent either; a retry could double-execute.
	run, err := c.api.CreateRun(ctx, conversationID, openai.RunRequest{AssistantID: agentID})
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return run.ID, nil
}

func (c *OpenAIClient) GetJob(ctx context.Context, conversationID, jobID string) (Job, error) {
	var run openai.Run
	err := c.policy.Do(ctx, "assistant.get_job", func(ctx context.Context) error {
		var err error
		run, err = c.api.RetrieveRun(ctx, conversationID, jobID)
		return err
	})
	if err != nil {
		return Job{}, fmt.Errorf("retrieve run %s: %w", jobID, err)
	}

	return Job{ID: run.ID, ConversationID: conversationID, State: mapRunStatus(run.Status)}, nil
}

func (c *OpenAIClient) HasActiveJob(ctx context.Context, conversationID string) (bool, error) {
	limit := 5
	var runs openai.RunList
	err := c.policy.Do(ctx, "assistant.list_jobs", func(ctx context.Context) error {
		var err error
		runs, err = c.api.ListRuns(ctx, conversationID, openai.Pagination{Limit: &limit})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("list runs: %w", err)
	}

	for _, run := range runs.Runs {
		if !mapRunStatus(run.Status).Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (c *OpenAIClient) ListMessagesSince(ctx context.Context, conversationID string, since time.Time) ([]Message, error) {
	limit := 20
	order := "desc"

	var list openai.MessagesList
	err := c.policy.Do(ctx, "assistant.list_messages", func(ctx context.Context) error {
		var err error
		list, err = c.api.ListMessage(ctx, conversationID, &limit, &order, nil, nil, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var out []Message
	for _, raw := range list.Messages {
		createdAt := time.Unix(int64(raw.CreatedAt), 0)
		if createdAt.Before(since) {
			continue
		}
		out = append(out, convertMessage(raw, createdAt))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *OpenAIClient) GetFileMetadata(ctx context.Context, handle string) (FileMetadata, error) {
	var file openai.File
	err := c.policy.Do(ctx, "assistant.get_file", func(ctx context.Context) error {
		var err error
		file, err = c.api.GetFile(ctx, handle)
		return err
	})
	if err != nil {
		return FileMetadata{}, fmt.Errorf("get file %s: %w", handle, err)
	}

	return FileMetadata{Handle: file.ID, Filename: file.FileName, SizeBytes: int64(file.Bytes)}, nil
}

func (c *OpenAIClient) GetFileContent(ctx context.Context, handle string) ([]byte, error) {
	var data []byte
	err := c.policy.Do(ctx, "assistant.get_file_content", func(ctx context.Context) error {
		content, err := c.api.GetFileContent(ctx, handle)
		if err != nil {
			return err
		}
		defer content.Close()

		data, err = io.ReadAll(content)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get file content %s: %w", handle, err)
	}
	return data, nil
}

func mapRunStatus(status openai.RunStatus) JobState {
	switch status {
	case openai.RunStatusQueued:
		return JobQueued
	case openai.RunStatusInProgress, openai.RunStatusCancelling:
		return JobInProgress
	case openai.RunStatusCompleted:
		return JobCompleted
	case openai.RunStatusRequiresAction:
		return JobRequiresAction
	case openai.RunStatusExpired:
		return JobExpired
	case openai.RunStatus("cancelled"):
		return JobCancelled
	case openai.RunStatusFailed:
		return JobFailed
	default:
		// Unknown states are treated as failed rather than polled forever.
		return JobFailed
	}
}

// messageAnnotation is the subset of the Assistants annotation object the
// pipeline needs: the sandbox path text and the file it points at.
type messageAnnotation struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	FilePath struct {
		FileID string `json:"file_id"`
	} `json:"file_path"`
}

func convertMessage(raw openai.Message, createdAt time.Time) Message {
	msg := Message{
		ID:          raw.ID,
		Role:        raw.Role,
		CreatedAt:   createdAt,
		FileHandles: raw.FileIds,
	}

	for _, part := range raw.Content {
		switch {
		case part.Text != nil:
			item := ContentItem{Kind: ContentText, Text: part.Text.Value}
			msg.Content = append(msg.Content, item)

			// file_path annotations carry the sandbox path the model wrote
			// into the text plus the ephemeral handle it refers to.
			for _, ann := range decodeAnnotations(part.Text.Annotations) {
				if ann.Type == "file_path" && ann.FilePath.FileID != "" {
					msg.Content = append(msg.Content, ContentItem{
						Kind:        ContentFileRef,
						FileHandle:  ann.FilePath.FileID,
						SandboxPath: ann.Text,
					})
				}
			}
		case part.ImageFile != nil:
			msg.Content = append(msg.Content, ContentItem{
				Kind:       ContentImageRef,
				FileHandle: part.ImageFile.FileID,
			})
		}
	}

	return msg
}

func decodeAnnotations(raw []any) []messageAnnotation {
	var out []messageAnnotation
	for _, entry := range raw {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		var ann messageAnnotation
		if err := json.Unmarshal(data, &ann); err != nil {
			continue
		}
		out = append(out, ann)
	}
	return out
}
