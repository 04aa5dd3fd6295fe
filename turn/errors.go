package turn

import "fmt"

// ErrorKind classifies the hard failures a turn can surface. Everything
// else in the pipeline is absorbed with a documented degraded behavior.
type ErrorKind string

const (
	// KindConfiguration: missing credentials or agent id. Fatal, never retried.
	KindConfiguration ErrorKind = "configuration"

	// KindValidation: bad caller input, e.g. an empty message.
	KindValidation ErrorKind = "validation"

	// KindUpstreamCreate: conversation/message/job creation failed. Not
	// retried at this layer because creation is not idempotent.
	KindUpstreamCreate ErrorKind = "upstream_create"

	// KindConcurrentTurn: a non-terminal job already exists on the
	// conversation.
	KindConcurrentTurn ErrorKind = "concurrent_turn"
)

type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Fixed, stable user-facing messages. Raw collaborator errors never reach
// the user.
const (
	failedMessage        = "Sorry, I ran into a problem while working on your request. Please try again."
	failedSearchMessage  = "Sorry, I ran into a problem while working on your request. Please try again, or retry with web search turned off."
	timeoutMessage       = "This is taking longer than expected and I had to stop waiting. Please try again in a moment."
	timeoutSearchMessage = "This is taking longer than expected and I had to stop waiting. Web search can slow things down - try again, or retry with web search turned off."
	actionNeededMessage  = "I could not finish that request because it needs a follow-up step that is not supported yet. Please try rephrasing and sending it again."
	noResponseMessage    = "The request completed but no response came back. Please try again."
)

func failureMessage(searchEnabled bool) string {
	if searchEnabled {
		return failedSearchMessage
	}
	return failedMessage
}

func timeoutUserMessage(searchEnabled bool) string {
	if searchEnabled {
		return timeoutSearchMessage
	}
	return timeoutMessage
}
