package sanitize

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var placeholderPattern = regexp.MustCompile(`\x00LNK:[0-9a-f-]+\x00`)

// Options controls one Clean invocation.
type Options struct {
	// PreserveSearchCitations keeps rendered search-result blocks in the
	// text. Turns that attach sources separately set this to false.
	PreserveSearchCitations bool
}

// Clean removes injected prompt scaffolding from a model reply while
// keeping every file/citation link byte-identical and in its original
// relative order.
//
// It works in three phases: every span matching a link-pattern class is
// swapped for a collision-free placeholder; the scaffolding-removal rules
// run on the placeholdered text; the placeholders are restored. A link
// inside a sentence targeted for removal therefore survives: protection
// runs first, so removal can only delete the surrounding prose.
func Clean(text string, opts Options) string {
	if text == "" {
		return ""
	}

	protected, spans := protect(text)

	for _, rule := range scaffoldingRules {
		protected = stripPreservingSpans(protected, rule)
	}
	if !opts.PreserveSearchCitations {
		for _, rule := range citationRules {
			protected = stripPreservingSpans(protected, rule)
		}
	}

	protected = normalizeWhitespace(protected)

	return restore(protected, spans)
}

// protect substitutes a unique placeholder for every link-pattern match and
// returns the placeholder→original map. The NUL byte cannot occur in model
// text, so a placeholder is unambiguous and a later pattern class never
// re-protects a span an earlier one already claimed. A scaffolding rule may
// still match across a placeholder; stripPreservingSpans re-emits any
// placeholders its match covered.
func protect(text string) (string, map[string]string) {
	spans := make(map[string]string)

	for _, pattern := range linkPatterns {
		text = pattern.ReplaceAllStringFunc(text, func(match string) string {
			if strings.ContainsRune(match, '\x00') {
				// Already contains a protected span from an earlier class.
				return match
			}
			token := "\x00LNK:" + uuid.NewString() + "\x00"
			spans[token] = match
			return token
		})
	}

	return text, spans
}

// stripPreservingSpans deletes every match of rule but keeps any protected
// placeholder the match covers: removal may eat surrounding prose, never an
// already-protected link.
func stripPreservingSpans(text string, rule *regexp.Regexp) string {
	return rule.ReplaceAllStringFunc(text, func(match string) string {
		kept := placeholderPattern.FindAllString(match, -1)
		return strings.Join(kept, "\n")
	})
}

// restore replaces placeholders with their original spans. Each token is
// globally unique within the invocation, so restoration order is
// irrelevant.
func restore(text string, spans map[string]string) string {
	for token, original := range spans {
		text = strings.ReplaceAll(text, token, original)
	}
	return text
}

// normalizeWhitespace collapses runs of 3+ blank lines to a single blank
// line and trims blank lines at both ends. Interior line content is never
// reflowed or trimmed, so markdown tables and code fences pass through
// untouched.
func normalizeWhitespace(text string) string {
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	text = leadingBlankLines.ReplaceAllString(text, "")
	text = trailingBlankRuns.ReplaceAllString(text, "")
	return text
}
