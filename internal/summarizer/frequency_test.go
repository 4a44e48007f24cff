package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_PicksFrequentTopicInDocumentOrder(t *testing.T) {
	text := "The whale swam near the ship. I had toast for breakfast. " +
		"The whale dived under the ship again. Weather was mild. " +
		"Sailors feared the whale and the ship."

	got := NewFrequency(2).Summarize(text)

	assert.Equal(t, "The whale swam near the ship. Sailors feared the whale and the ship.", got)
}

func TestSummarize_NoPunctuation(t *testing.T) {
	assert.Equal(t, "just some words", NewFrequency(3).Summarize("  just some words \n"))
	assert.Equal(t, "", NewFrequency(3).Summarize(""))
}

func TestSummarize_FewerSentencesThanLimit(t *testing.T) {
	got := NewFrequency(10).Summarize("One apple. Two apples!")
	assert.Equal(t, "One apple. Two apples!", got)
}

func TestSummarize_SkipsOverlongSentences(t *testing.T) {
	noise := strings.Repeat("whale ", 200) + "."
	got := NewFrequency(1).Summarize(noise + " A whale appeared.")
	assert.Equal(t, "A whale appeared.", got)
}

func TestSummarize_ApostrophesAndQuotes(t *testing.T) {
	got := NewFrequency(1).Summarize(`He said "Ishmael’s ship sails." Nothing else.`)
	assert.Equal(t, `He said "Ishmael’s ship sails."`, got)
}

func TestNewFrequency_Default(t *testing.T) {
	assert.Equal(t, DefaultMaxSentences, NewFrequency(0).maxSentences)
}
