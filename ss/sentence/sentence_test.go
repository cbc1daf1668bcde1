package sentence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentencesAndWords(t *testing.T) {
	body := "Hello world. Bye."
	spans := Sentences(body)
	require.Len(t, spans, 2)
	require.Equal(t, "Hello world.", body[spans[0].Start:spans[0].End])
	require.Equal(t, " Bye.", body[spans[1].Start:spans[1].End])

	require.Equal(t, []string{"Hello", "world.", "Bye."}, StreamWords(body))
	require.Equal(t, 3, WordCount(body))
	require.Equal(t, 17, CharCount(body))
}

func TestEmptyBodyHasNoSentences(t *testing.T) {
	require.Empty(t, Sentences(""))
	require.Equal(t, 0, WordCount(""))
}

func TestSentenceAtAppendPosition(t *testing.T) {
	sp, err := SentenceAt("", 0)
	require.NoError(t, err)
	require.Equal(t, 0, sp.Start)
	require.Equal(t, 0, sp.End)
	require.False(t, sp.HasTerminator)
}

func TestSentenceAtPastEndIsInvalid(t *testing.T) {
	_, err := SentenceAt("Hello.", 5)
	require.Error(t, err)
}

func TestReplaceSentenceBuildsDocumentFromEmpty(t *testing.T) {
	body, err := ReplaceSentence("", 0, "Hello world. Bye.")
	require.NoError(t, err)
	require.Equal(t, "Hello world. Bye.", body)
	require.Equal(t, 3, WordCount(body))
}

func TestReplaceWordExisting(t *testing.T) {
	body := "Hello world. Bye."
	updated, err := ReplaceWord(body, 0, 0, "Hi")
	require.NoError(t, err)
	require.Equal(t, "Hi world. Bye.", updated)
}

func TestReplaceWordAppend(t *testing.T) {
	body := "Hello world."
	updated, err := ReplaceWord(body, 0, 2, "there")
	require.NoError(t, err)
	require.Equal(t, "Hello world there.", updated)
}

func TestReplaceWordAppendIntoEmptySentence(t *testing.T) {
	updated, err := ReplaceWord("", 0, 0, "Hello")
	require.NoError(t, err)
	require.Equal(t, "Hello", updated)
}

func TestReplaceWordInvalidIndex(t *testing.T) {
	_, err := ReplaceWord("Hello world.", 0, 5, "x")
	require.Error(t, err)
}

func TestReplaceSentenceKeepsOtherSentencesIntact(t *testing.T) {
	body := "Hello world. Bye."
	updated, err := ReplaceSentence(body, 0, "Hi.")
	require.NoError(t, err)
	require.Equal(t, "Hi. Bye.", updated)
}
