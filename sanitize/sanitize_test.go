package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanRemovesContextBlock(t *testing.T) {
	text := "Hello!\n\n" + ContextBegin + "\ninternal search context\n" + ContextEnd + "\n\nThe answer is 42."

	got := Clean(text, Options{})

	assert.NotContains(t, got, ContextBegin)
	assert.NotContains(t, got, ContextEnd)
	assert.NotContains(t, got, "internal search context")
	assert.Contains(t, got, "Hello!")
	assert.Contains(t, got, "The answer is 42.")
}

func TestCleanRemovesStrayMarker(t *testing.T) {
	got := Clean("before "+ContextEnd+" after", Options{})

	assert.NotContains(t, got, ContextEnd)
	assert.Contains(t, got, "before")
	assert.Contains(t, got, "after")
}

func TestCleanStripsInstructionSentences(t *testing.T) {
	text := "Please respond in valid JSON format with the schema below.\nActual answer here.\nPlease respond naturally using the search results above.\n"

	got := Clean(text, Options{})

	assert.Equal(t, "Actual answer here.", got)
}

func TestCleanPreservesLinksInsideRemovedProse(t *testing.T) {
	url := "https://relayfiles.blob.core.windows.net/conv-1/report.pdf"
	text := "Please respond naturally using the search results from " + url + " thanks.\nDone."

	got := Clean(text, Options{})

	// The sentence is targeted for removal but the protected span survives.
	assert.Contains(t, got, url)
	assert.NotContains(t, got, "Please respond naturally")
}

func TestCleanRoundTripsAllLinkClasses(t *testing.T) {
	links := []string{
		"/v1/files/file-a1B2c3D4/content",
		"sandbox:/mnt/data/output.csv",
		"https://relayfiles.blob.core.windows.net/conv-9/plot.png",
		"[download](sandbox:/mnt/data/result.xlsx)",
		"![chart](https://relayfiles.blob.core.windows.net/conv-9/chart.png)",
		"file-Zz9Yy8Xx7",
	}

	text := "intro\n\n" + ContextBegin + "\nscaffolding\n" + ContextEnd + "\n\n" + strings.Join(links, "\nsome prose\n")

	got := Clean(text, Options{})

	lastIdx := -1
	for _, link := range links {
		idx := strings.Index(got, link)
		require.GreaterOrEqual(t, idx, 0, "link %q must survive byte-identical", link)
		assert.Greater(t, idx, lastIdx, "link %q must keep its relative order", link)
		lastIdx = idx
	}
	assert.NotContains(t, got, "scaffolding")
	assert.NotContains(t, got, "\x00")
}

func TestCleanCitationBlocks(t *testing.T) {
	text := "Answer text.\n\nSources:\n1. First source - https://example.com/a\n2. Second source - https://example.com/b\n"

	kept := Clean(text, Options{PreserveSearchCitations: true})
	assert.Contains(t, kept, "First source")
	assert.Contains(t, kept, "Second source")

	stripped := Clean(text, Options{PreserveSearchCitations: false})
	assert.NotContains(t, stripped, "First source")
	assert.Contains(t, stripped, "Answer text.")
}

func TestCleanCollapsesBlankLines(t *testing.T) {
	got := Clean("\n\n\nfirst\n\n\n\n\nsecond\n\n\n", Options{})

	assert.Equal(t, "first\n\nsecond", got)
}

func TestCleanDoesNotTouchInteriorLines(t *testing.T) {
	table := "| a | b |\n|---|---|\n| 1 | 2 |"
	fence := "```go\nfunc main() {\n\tprintln(\"hi\")\n}\n```"
	text := table + "\n\n" + fence

	got := Clean(text, Options{})

	assert.Contains(t, got, table)
	assert.Contains(t, got, fence)
}

func TestCleanEmptyInput(t *testing.T) {
	assert.Equal(t, "", Clean("", Options{}))
}
