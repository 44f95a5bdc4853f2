package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPassthrough(t *testing.T) {
	assert.Equal(t, "plain text result", Clean("plain text result"))
	assert.Equal(t, "trimmed", Clean("  trimmed \n"))
}

func TestCleanStripsCodeFences(t *testing.T) {
	assert.Equal(t, "the payload", Clean("```\nthe payload\n```"))
	assert.Equal(t, "the payload", Clean("```text\nthe payload\n```"))
}

func TestCleanStripsPreamble(t *testing.T) {
	assert.Equal(t, "A tighter sentence.", Clean("Here is the revised text: A tighter sentence."))
	assert.Equal(t, "A tighter sentence.", Clean("Here's a shorter version:\nA tighter sentence."))
	// Mid-text occurrences stay.
	assert.Equal(t, "See here is the thing: details.", Clean("See here is the thing: details."))
}

func TestCleanStripsSurroundingQuotes(t *testing.T) {
	assert.Equal(t, "quoted result", Clean(`"quoted result"`))
	assert.Equal(t, "curly wrapped", Clean("“curly wrapped”"))
}

func TestCleanKeepsInteriorQuotes(t *testing.T) {
	// Quotes that also appear inside are content, not wrapping.
	in := `"she said "hi" to me"`
	assert.Equal(t, in, Clean(in))
	// A lone opening quote without its closing pair stays.
	assert.Equal(t, `"unterminated`, Clean(`"unterminated`))
}

func TestCleanCombinedArtifacts(t *testing.T) {
	raw := "```\nHere is the rephrased text: \"the actual content\"\n```"
	assert.Equal(t, "the actual content", Clean(raw))
}
