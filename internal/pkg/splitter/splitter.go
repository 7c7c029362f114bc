// Package splitter cuts normalized document text into overlapping chunks for embedding.
package splitter

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1024
	DefaultChunkOverlap = 128
)

var ErrInvalidSize = errors.New("chunk overlap must be smaller than a positive chunk size")

// Splitter packs whole sentences into chunks of at most size runes. Consecutive
// chunks share trailing sentences worth up to overlap runes.
type Splitter struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Splitter, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidSize
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

func (s *Splitter) Size() int    { return s.size }
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunks of text in document order.
func (s *Splitter) Split(text string) []string {
	var pieces []string
	for _, sentence := range splitSentences(text) {
		pieces = append(pieces, s.hardSplit(sentence)...)
	}
	if len(pieces) == 0 {
		return nil
	}

	var (
		chunks []string
		cur    []string
		curLen int
	)
	for _, p := range pieces {
		pLen := utf8.RuneCountInString(p)
		add := pLen
		if len(cur) > 0 {
			add++
		}
		if curLen+add > s.size && len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, " "))
			cur = overlapTail(cur, s.overlap, s.size-pLen-1)
			curLen = joinedLen(cur)
			add = pLen
			if len(cur) > 0 {
				add++
			}
		}
		cur = append(cur, p)
		curLen += add
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

// hardSplit breaks a sentence longer than the chunk size, preferring word boundaries.
func (s *Splitter) hardSplit(sentence string) []string {
	runes := []rune(sentence)
	if len(runes) <= s.size {
		return []string{sentence}
	}
	var out []string
	for len(runes) > s.size {
		cut := s.size
		for i := s.size; i > s.size/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// overlapTail returns the trailing sentences of prev that fit in both limit and room.
func overlapTail(prev []string, limit, room int) []string {
	if room < limit {
		limit = room
	}
	if limit <= 0 {
		return nil
	}
	total := 0
	start := len(prev)
	for i := len(prev) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(prev[i])
		if start < len(prev) {
			n++
		}
		if total+n > limit {
			break
		}
		total += n
		start = i
	}
	tail := make([]string, len(prev)-start)
	copy(tail, prev[start:])
	return tail
}

func joinedLen(parts []string) int {
	if len(parts) == 0 {
		return 0
	}
	n := len(parts) - 1
	for _, p := range parts {
		n += utf8.RuneCountInString(p)
	}
	return n
}

// splitSentences cuts after sentence terminators followed by whitespace and at
// paragraph breaks.
func splitSentences(text string) []string {
	runes := []rune(text)
	var (
		out   []string
		start int
	)
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}
	for i, r := range runes {
		switch {
		case r == '.' || r == '!' || r == '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				emit(i + 1)
			}
		case r == '\n' && i+1 < len(runes) && runes[i+1] == '\n':
			emit(i)
		}
	}
	emit(len(runes))
	return out
}
