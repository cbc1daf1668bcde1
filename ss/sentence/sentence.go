// Package sentence tokenizes a Storage Server file body into sentences and
// words, and performs the word/sentence level surgical edits SS_WRITE_WORD
// needs without disturbing any text the edit doesn't touch.
//
// The body is never mutated in place: every exported function takes the
// current body string and returns a new one, re-deriving the byte image
// rather than patching structures in place.
package sentence

import (
	"strings"
	"unicode"

	"github.com/shrey715/network-file-system-sub002/internal/nserrors"
)

// terminators are the three characters that end a sentence.
const terminators = ".!?"

// Span is a byte range [Start, End) into a body string.
type Span struct {
	Start, End int
}

func (s Span) text(body string) string { return body[s.Start:s.End] }

// SentenceSpan is one sentence's byte range, including its terminator
// character when present. A trailing run of text with no terminator is
// still a sentence span (HasTerminator is false) so it can be addressed
// and extended by a lock holder.
type SentenceSpan struct {
	Span
	HasTerminator bool
}

// Sentences splits body into sentence spans in document order.
func Sentences(body string) []SentenceSpan {
	var spans []SentenceSpan
	start := 0
	for i, r := range body {
		if strings.ContainsRune(terminators, r) {
			spans = append(spans, SentenceSpan{Span: Span{Start: start, End: i + 1}, HasTerminator: true})
			start = i + 1
		}
	}
	if start < len(body) {
		spans = append(spans, SentenceSpan{Span: Span{Start: start, End: len(body)}, HasTerminator: false})
	}
	return spans
}

// SentenceAt returns the span for sentence index idx. idx == len(sentences)
// is the valid "append a new sentence here" position (empty span at the end
// of body), mirroring the word-append convention of i == len(words). Any
// other out-of-range idx is INVALID_INDEX.
func SentenceAt(body string, idx int) (SentenceSpan, error) {
	if idx < 0 {
		return SentenceSpan{}, nserrors.New(nserrors.InvalidIndex, "sentence index %d is negative", idx)
	}
	spans := Sentences(body)
	if idx < len(spans) {
		return spans[idx], nil
	}
	if idx == len(spans) {
		return SentenceSpan{Span: Span{Start: len(body), End: len(body)}}, nil
	}
	return SentenceSpan{}, nserrors.New(nserrors.InvalidIndex, "sentence index %d past end (have %d)", idx, len(spans))
}

// Words splits a sentence span's text into whitespace-delimited word spans,
// with byte offsets relative to the whole body (not the sentence).
func Words(body string, s Span) []Span {
	var words []Span
	inWord := false
	wordStart := 0
	for i := s.Start; i < s.End; i++ {
		if unicode.IsSpace(rune(body[i])) {
			if inWord {
				words = append(words, Span{Start: wordStart, End: i})
				inWord = false
			}
			continue
		}
		if !inWord {
			wordStart = i
			inWord = true
		}
	}
	if inWord {
		words = append(words, Span{Start: wordStart, End: s.End})
	}
	return words
}

// WordCount returns the total number of words across every sentence in
// body, i.e. Σ|words(s)|.
func WordCount(body string) int {
	count := 0
	for _, s := range Sentences(body) {
		count += len(Words(body, s.Span))
	}
	return count
}

// CharCount returns len(body); kept as a named helper so call sites read
// like the invariant they implement.
func CharCount(body string) int {
	return len(body)
}

// StreamWords returns every word's text in document order, used to satisfy
// STREAM.
func StreamWords(body string) []string {
	var words []string
	for _, s := range Sentences(body) {
		for _, w := range Words(body, s.Span) {
			words = append(words, w.text(body))
		}
	}
	return words
}

// ReplaceWord implements the i in [0, len(W)) and i == len(W) cases of
// the word write semantics: replace an existing word, or append a new
// one just before the sentence's terminator (if any).
func ReplaceWord(body string, sentenceIdx, wordIdx int, content string) (string, error) {
	sp, err := SentenceAt(body, sentenceIdx)
	if err != nil {
		return "", err
	}
	words := Words(body, sp.Span)

	switch {
	case wordIdx >= 0 && wordIdx < len(words):
		w := words[wordIdx]
		return body[:w.Start] + content + body[w.End:], nil
	case wordIdx == len(words):
		insertAt := sp.End
		if sp.HasTerminator {
			insertAt = sp.End - 1
		}
		prefix := ""
		if len(words) > 0 || (insertAt > sp.Start) {
			prefix = " "
		}
		return body[:insertAt] + prefix + content + body[insertAt:], nil
	default:
		return "", nserrors.New(nserrors.InvalidIndex, "word index %d invalid for sentence with %d words", wordIdx, len(words))
	}
}

// ReplaceSentence implements the i == -1 case of the word write
// semantics: the whole sentence span (terminator included, if any) is
// replaced verbatim by raw payload content.
func ReplaceSentence(body string, sentenceIdx int, content string) (string, error) {
	sp, err := SentenceAt(body, sentenceIdx)
	if err != nil {
		return "", err
	}
	return body[:sp.Start] + content + body[sp.End:], nil
}
