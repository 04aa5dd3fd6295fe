package sanitize

import "regexp"

// Markers wrapping the internal search-context block injected into the
// prompt. The augmenter writes them, the sanitizer strips them; nothing
// between the markers may reach the end user.
const (
	ContextBegin = "[[WEB_CONTEXT_BEGIN]]"
	ContextEnd   = "[[WEB_CONTEXT_END]]"
)

// Link-pattern classes, in match order. Every span matching one of these is
// protected before any scaffolding rule runs and restored byte-identical
// afterwards.
var linkPatterns = []*regexp.Regexp{
	// API-style file path, optionally absolute.
	regexp.MustCompile(`(?:https?://[A-Za-z0-9.-]+)?/v1/files/file-[A-Za-z0-9]+(?:/content)?`),

	// Sandbox-style path the model emits for files it produced.
	regexp.MustCompile(`sandbox:/mnt/data/[^\s)\]"']+`),

	// Storage-provider URL (blob storage public links).
	regexp.MustCompile(`https?://[A-Za-z0-9.-]+\.blob\.core\.windows\.net/[^\s)\]"']+`),

	// Markdown file/image link, protected whole so rewrites inside the
	// parentheses survive removal of surrounding prose.
	regexp.MustCompile(`!?\[[^\]]*\]\([^()\s]+\)`),

	// Bare content-addressed handle.
	regexp.MustCompile(`\bfile-[A-Za-z0-9]{6,}\b`),
}

var contextBeginRe = regexp.QuoteMeta(ContextBegin)
var contextEndRe = regexp.QuoteMeta(ContextEnd)

// scaffoldingRules remove prompt-engineering text from the reply. Always
// applied, in order.
var scaffoldingRules = []*regexp.Regexp{
	// Paired internal-context markers and everything between them.
	regexp.MustCompile(`(?s)` + contextBeginRe + `.*?` + contextEndRe),

	// A stray marker without its pair.
	regexp.MustCompile(contextBeginRe + `|` + contextEndRe),

	// Injected instruction sentences.
	regexp.MustCompile(`(?i)please respond in valid JSON(?: format)?[^\n]*\n?`),
	regexp.MustCompile(`(?i)please format (?:your|the) (?:answer|response) as (?:strict )?JSON[^\n]*\n?`),
	regexp.MustCompile(`(?i)please respond naturally using the search results[^\n]*\n?`),
	regexp.MustCompile(`(?i)use the (?:search )?context above to answer[^\n]*\n?`),
	regexp.MustCompile(`(?i)answer based on the web search results below\.?[^\n]*\n?`),
}

// citationRules additionally remove rendered search-result blocks. Applied
// only when the caller does not want search citations preserved.
var citationRules = []*regexp.Regexp{
	// Summary line produced by the augmenter.
	regexp.MustCompile(`(?m)^Search summary:[^\n]*\n?`),

	// A "Sources"/"Search Results" heading followed by its numbered or
	// bulleted list.
	regexp.MustCompile(`(?m)^#{0,4}\s*(?:Sources|Search Results):?\s*\n(?:[ \t]*(?:\d+[.)]|[-*])[^\n]*\n?)+`),
}

var (
	excessBlankLines  = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
	leadingBlankLines = regexp.MustCompile(`^(?:[ \t]*\n)+`)
	trailingBlankRuns = regexp.MustCompile(`(?:\n[ \t]*)+$`)
)
