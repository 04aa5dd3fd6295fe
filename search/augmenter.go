package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/relaydesk/relay/sanitize"
	"go.uber.org/zap"
)

const maxResults = 5

// Augmentation is the outbound message after search enrichment, plus the
// sources that backed it.
type Augmentation struct {
	Text    string
	Sources []SourceCitation

	// Degraded is set when the collaborator failed and Text carries only
	// the original query plus a short note.
	Degraded bool
}

// Augmenter rewrites an outbound user message to embed a bounded summary of
// live web-search results inside a delimited internal-context block, with a
// strict-JSON instruction variant. Collaborator failure degrades the
// augmentation; it never aborts the turn.
type Augmenter struct {
	client Client
}

func NewAugmenter(client Client) *Augmenter {
	return &Augmenter{client: client}
}

func (a *Augmenter) Augment(ctx context.Context, query string, jsonMode bool) Augmentation {
	result, err := a.client.Search(ctx, query, maxResults)
	if err != nil {
		logger.Error("Web search failed, degrading augmentation", zap.Error(err))
		return Augmentation{
			Text:     query + "\n\n(Note: web search was attempted but is currently unavailable.)",
			Degraded: true,
		}
	}

	if len(result.Sources) == 0 && result.Answer == "" {
		return Augmentation{
			Text:     query + "\n\n(Note: web search returned no results.)",
			Degraded: true,
		}
	}

	var ctxBlock strings.Builder
	ctxBlock.WriteString(sanitize.ContextBegin)
	ctxBlock.WriteString("\n")
	if result.Answer != "" {
		fmt.Fprintf(&ctxBlock, "Search summary: %s\n\n", result.Answer)
	}
	ctxBlock.WriteString("Sources:\n")
	for i, src := range result.Sources {
		snippet := ""
		if i < len(result.Content) {
			snippet = truncate(result.Content[i], 400)
		}
		fmt.Fprintf(&ctxBlock, "%d. %s - %s\n", i+1, src.Title, src.URL)
		if snippet != "" {
			fmt.Fprintf(&ctxBlock, "   %s\n", snippet)
		}
	}
	ctxBlock.WriteString(sanitize.ContextEnd)

	instruction := "Please respond naturally using the search results above where relevant, citing sources inline."
	if jsonMode {
		instruction = `Please respond in valid JSON format with the schema {"response": string, "sources": [{"title": string, "url": string}]}.`
	}

	text := fmt.Sprintf("%s\n\n%s\n\n%s", query, ctxBlock.String(), instruction)

	return Augmentation{Text: text, Sources: result.Sources}
}

// RenderSources formats the visible sources section appended to
// non-JSON replies.
func RenderSources(sources []SourceCitation) string {
	if len(sources) == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteString("\n\n**Sources**\n")
	for i, src := range sources {
		fmt.Fprintf(&out, "%d. [%s](%s)\n", i+1, src.Title, src.URL)
	}
	return out.String()
}

// truncate cuts on a rune boundary so a multi-byte character is never
// split into invalid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
