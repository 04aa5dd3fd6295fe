package turn

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/relaydesk/relay/assistant"
	"github.com/relaydesk/relay/db"
	"github.com/relaydesk/relay/files"
	"github.com/relaydesk/relay/sanitize"
	"github.com/relaydesk/relay/search"
	"go.uber.org/zap"
)

// Input is one conversation turn request.
type Input struct {
	ConversationID string
	Text           string
	FileHandles    []string
	SearchEnabled  bool
	JSONMode       bool
}

// Reply is the sanitized outcome of one turn.
type Reply struct {
	Status         string // "success" | "failed" | "timeout"
	Text           string
	ConversationID string
	Files          []db.FileModel
	Sources        []search.SourceCitation
}

// Config carries the coordinator's explicit budgets instead of scattered
// constants.
type Config struct {
	AgentID string

	Standard PollBudget
	Search   PollBudget

	// SubmitTolerance widens the "created at/after submission" message
	// window because backend clocks may trail local time by seconds.
	SubmitTolerance time.Duration
}

// Augmenter is the optional web-search stage. A nil Augmenter disables
// search-augmented turns.
type Augmenter interface {
	Augment(ctx context.Context, query string, jsonMode bool) search.Augmentation
}

type fileResolver interface {
	Resolve(ctx context.Context, conversationID string, refs []files.Ref) ([]db.FileModel, map[string]string)
}

// Coordinator composes one conversation turn: optional search augmentation,
// submission, polling, extraction, file resolution and sanitization. It
// owns the one-active-job-per-conversation invariant.
type Coordinator struct {
	backend   assistant.Client
	augmenter Augmenter
	resolver  fileResolver
	poller    *Poller
	cfg       Config
}

func NewCoordinator(backend assistant.Client, aug Augmenter, resolver fileResolver, cfg Config) *Coordinator {
	return &Coordinator{
		backend:   backend,
		augmenter: aug,
		resolver:  resolver,
		poller:    NewPoller(backend),
		cfg:       cfg,
	}
}

// sandboxPathPattern finds in-text file references the backend did not
// annotate. They carry no handle, so they only matter for logging.
var sandboxPathPattern = regexp.MustCompile(`sandbox:/mnt/data/[^\s)\]"']+`)

// RunTurn drives one turn end to end. Only configuration, validation,
// concurrency and upstream-creation problems surface as errors; every
// other failure degrades into a fixed user-facing reply.
func (c *Coordinator) RunTurn(ctx context.Context, input Input) (*Reply, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, newError(KindValidation, "message must not be empty", nil)
	}
	if c.cfg.AgentID == "" {
		return nil, newError(KindConfiguration, "assistant agent id is not configured", nil)
	}

	conversationID := input.ConversationID
	if conversationID == "" {
		id, err := c.backend.CreateConversation(ctx)
		if err != nil {
			return nil, newError(KindUpstreamCreate, "failed to create conversation", err)
		}
		conversationID = id
	} else {
		active, err := c.backend.HasActiveJob(ctx, conversationID)
		if err != nil {
			// The backend is the source of truth for this check; if it is
			// unreachable the job submission below will fail anyway.
			logger.Error("Active-job check failed", zap.String("conversationId", conversationID), zap.Error(err))
		} else if active {
			return nil, newError(KindConcurrentTurn, "a turn is already in progress for this conversation", nil)
		}
	}

	outbound := input.Text
	var sources []search.SourceCitation
	if input.SearchEnabled && c.augmenter != nil {
		aug := c.augmenter.Augment(ctx, input.Text, input.JSONMode)
		outbound = aug.Text
		sources = aug.Sources
	}

	if err := c.backend.AppendMessage(ctx, conversationID, outbound, dedupeHandles(input.FileHandles)); err != nil {
		return nil, newError(KindUpstreamCreate, "failed to append message", err)
	}

	submittedAt := time.Now()
	jobID, err := c.backend.CreateJob(ctx, conversationID, c.cfg.AgentID)
	if err != nil {
		return nil, newError(KindUpstreamCreate, "failed to create job", err)
	}

	budget := c.cfg.Standard
	if input.SearchEnabled {
		budget = c.cfg.Search
	}

	state := c.poller.AwaitTerminal(ctx, conversationID, jobID, budget)

	switch state {
	case assistant.JobCompleted:
		return c.extractReply(ctx, conversationID, submittedAt, input, sources), nil
	case assistant.JobTimeout:
		return &Reply{Status: "timeout", ConversationID: conversationID, Text: timeoutUserMessage(input.SearchEnabled)}, nil
	case assistant.JobRequiresAction:
		// No tool-output submission loop exists; the caller is told to
		// retry instead of masking the limitation.
		return &Reply{Status: "failed", ConversationID: conversationID, Text: actionNeededMessage}, nil
	default:
		logger.Error("Job ended in non-success state",
			zap.String("conversationId", conversationID),
			zap.String("jobId", jobID),
			zap.String("state", string(state)))
		return &Reply{Status: "failed", ConversationID: conversationID, Text: failureMessage(input.SearchEnabled)}, nil
	}
}

// extractReply pulls the assistant output created at/after submission,
// resolves every referenced file, rewrites in-text references and
// sanitizes the final text. Extraction problems degrade, they never fail
// the turn.
func (c *Coordinator) extractReply(ctx context.Context, conversationID string, submittedAt time.Time, input Input, sources []search.SourceCitation) *Reply {
	since := submittedAt.Add(-c.cfg.SubmitTolerance)
	messages, err := c.backend.ListMessagesSince(ctx, conversationID, since)
	if err != nil {
		logger.Error("Failed to list response messages", zap.String("conversationId", conversationID), zap.Error(err))
		return &Reply{Status: "success", ConversationID: conversationID, Text: noResponseMessage}
	}

	var parts []string
	var refs []files.Ref
	for _, msg := range messages {
		if msg.Role != "assistant" {
			continue
		}

		for _, handle := range msg.FileHandles {
			refs = append(refs, files.Ref{Handle: handle})
		}

		for _, item := range msg.Content {
			switch item.Kind {
			case assistant.ContentText:
				parts = append(parts, item.Text)
			case assistant.ContentFileRef:
				refs = append(refs, files.Ref{Handle: item.FileHandle, SandboxPath: item.SandboxPath})
			case assistant.ContentImageRef:
				refs = append(refs, files.Ref{Handle: item.FileHandle})
			}
		}
	}

	if len(parts) == 0 {
		return &Reply{Status: "success", ConversationID: conversationID, Text: noResponseMessage}
	}

	text := strings.Join(parts, "\n\n")

	if unannotated := sandboxPathPattern.FindAllString(text, -1); len(unannotated) > len(refs) {
		logger.Info("Reply references more sandbox paths than annotated files",
			zap.String("conversationId", conversationID),
			zap.Int("paths", len(unannotated)),
			zap.Int("refs", len(refs)))
	}

	resolved, rewriteMap := c.resolver.Resolve(ctx, conversationID, refs)
	text = files.RewriteText(text, rewriteMap)

	text = sanitize.Clean(text, sanitize.Options{PreserveSearchCitations: !input.SearchEnabled})

	reply := &Reply{
		Status:         "success",
		ConversationID: conversationID,
		Files:          resolved,
		Sources:        sources,
	}

	if input.JSONMode {
		reply.Text = renderJSON(text, sources)
		return reply
	}

	if len(sources) > 0 {
		text += search.RenderSources(sources)
	}
	reply.Text = text
	return reply
}

// renderJSON parses the sanitized text as a JSON object and attaches the
// source list as a field. Parse failure wraps the raw text instead of
// throwing; the caller always receives valid JSON.
func renderJSON(text string, sources []search.SourceCitation) string {
	payload := map[string]any{}

	if candidate, ok := extractJSONObject(text); ok {
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil {
			if len(sources) > 0 {
				payload["sources"] = sources
			}
			if out, err := json.Marshal(payload); err == nil {
				return string(out)
			}
		}
	}

	wrapper := map[string]any{
		"response":       text,
		"parsing_failed": true,
	}
	if len(sources) > 0 {
		wrapper["sources"] = sources
	}
	out, err := json.Marshal(wrapper)
	if err != nil {
		// Marshaling a map of strings cannot realistically fail; keep the
		// raw text as a last resort.
		return text
	}
	return string(out)
}

// extractJSONObject finds the outermost JSON object in free-form model
// output, tolerating prose or code fences around it.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start >= end {
		return "", false
	}
	return text[start : end+1], true
}

func dedupeHandles(handles []string) []string {
	seen := make(map[string]bool, len(handles))
	var out []string
	for _, h := range handles {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
