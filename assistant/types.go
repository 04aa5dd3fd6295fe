package assistant

import (
	"context"
	"time"
)

// JobState is the observed state of the asynchronous job the conversation
// backend executes per turn. Timeout is derived locally when the poll
// budget runs out before a terminal state is seen.
type JobState string

const (
	JobQueued         JobState = "queued"
	JobInProgress     JobState = "in_progress"
	JobCompleted      JobState = "completed"
	JobFailed         JobState = "failed"
	JobRequiresAction JobState = "requires_action"
	JobCancelled      JobState = "cancelled"
	JobExpired        JobState = "expired"
	JobTimeout        JobState = "timeout"
)

// Terminal reports whether the backend will make no further progress on
// the job. JobRequiresAction is terminal for this pipeline: no tool-output
// submission loop exists, the caller is told to retry.
func (s JobState) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobRequiresAction, JobCancelled, JobExpired, JobTimeout:
		return true
	}
	return false
}

type Job struct {
	ID             string
	ConversationID string
	State          JobState
}

// ContentKind tags one item of message content. The backend's shape-shifting
// payloads (string vs array of typed parts) are resolved into this variant
// once, at the adapter boundary, and never re-sniffed downstream.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImageRef ContentKind = "imageRef"
	ContentFileRef  ContentKind = "fileRef"
)

type ContentItem struct {
	Kind ContentKind

	// Text body, set for ContentText.
	Text string

	// Ephemeral backend file handle, set for ContentImageRef / ContentFileRef.
	FileHandle string

	// Sandbox-style path the model used in Text to reference FileHandle,
	// when the backend annotated one.
	SandboxPath string
}

type Message struct {
	ID        string
	Role      string
	CreatedAt time.Time
	Content   []ContentItem

	// File handles attached to the message as a whole.
	FileHandles []string
}

type FileMetadata struct {
	Handle    string
	Filename  string
	SizeBytes int64
}

// Client is the conversation-backend boundary. Any vendor API with a
// thread/run/message shape satisfies it.
type Client interface {
	CreateConversation(ctx context.Context) (string, error)
	AppendMessage(ctx context.Context, conversationID, text string, fileHandles []string) error
	CreateJob(ctx context.Context, conversationID, agentID string) (string, error)
	GetJob(ctx context.Context, conversationID, jobID string) (Job, error)

	// HasActiveJob reports whether a non-terminal job exists on the
	// conversation. The backend is the source of truth for this check.
	HasActiveJob(ctx context.Context, conversationID string) (bool, error)

	// ListMessagesSince returns assistant-visible messages created at or
	// after since, oldest first.
	ListMessagesSince(ctx context.Context, conversationID string, since time.Time) ([]Message, error)

	GetFileMetadata(ctx context.Context, handle string) (FileMetadata, error)
	GetFileContent(ctx context.Context, handle string) ([]byte, error)
}
