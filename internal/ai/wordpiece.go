package ai

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxWordRunes = 100

// WordPiece is the BERT tokenizer: basic whitespace and punctuation splitting
// followed by greedy longest-match sub-word lookup.
type WordPiece struct {
	vocab     map[string]int64
	lowerCase bool

	unk, cls, sep, pad int64
}

// LoadWordPiece reads a vocab.txt with one token per line; the line number is the id.
func LoadWordPiece(path string, lowerCase bool) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab failed: %w", err)
	}
	defer f.Close()

	var tokens []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tokens = append(tokens, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab failed: %w", err)
	}
	return NewWordPiece(tokens, lowerCase)
}

func NewWordPiece(tokens []string, lowerCase bool) (*WordPiece, error) {
	w := &WordPiece{vocab: make(map[string]int64, len(tokens)), lowerCase: lowerCase}
	for i, t := range tokens {
		if _, ok := w.vocab[t]; !ok {
			w.vocab[t] = int64(i)
		}
	}
	for _, special := range []struct {
		token string
		id    *int64
	}{
		{"[UNK]", &w.unk}, {"[CLS]", &w.cls}, {"[SEP]", &w.sep}, {"[PAD]", &w.pad},
	} {
		id, ok := w.vocab[special.token]
		if !ok {
			return nil, fmt.Errorf("vocab has no %s token", special.token)
		}
		*special.id = id
	}
	return w, nil
}

// Encode returns input ids and attention mask padded to exactly maxLen,
// wrapped in [CLS] ... [SEP].
func (w *WordPiece) Encode(text string, maxLen int) (ids, mask []int64) {
	ids = make([]int64, maxLen)
	mask = make([]int64, maxLen)

	pieces := []int64{w.cls}
	for _, word := range w.basicTokens(text) {
		pieces = append(pieces, w.wordPieces(word)...)
		if len(pieces) >= maxLen-1 {
			break
		}
	}
	if len(pieces) > maxLen-1 {
		pieces = pieces[:maxLen-1]
	}
	pieces = append(pieces, w.sep)

	for i := range ids {
		if i < len(pieces) {
			ids[i] = pieces[i]
			mask[i] = 1
		} else {
			ids[i] = w.pad
		}
	}
	return ids, mask
}

// Tokens returns the sub-word strings for text, without special tokens.
func (w *WordPiece) Tokens(text string) []string {
	byID := make(map[int64]string, len(w.vocab))
	for t, id := range w.vocab {
		byID[id] = t
	}
	var out []string
	for _, word := range w.basicTokens(text) {
		for _, id := range w.wordPieces(word) {
			out = append(out, byID[id])
		}
	}
	return out
}

func (w *WordPiece) basicTokens(text string) []string {
	if w.lowerCase {
		text = stripAccents(strings.ToLower(text))
	}
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)):
			continue
		case unicode.IsSpace(r):
			flush()
		case isPunct(r) || unicode.Is(unicode.Han, r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func (w *WordPiece) wordPieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []int64{w.unk}
	}
	var ids []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		found := int64(-1)
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := w.vocab[sub]; ok {
				found = id
				break
			}
			end--
		}
		if found < 0 {
			return []int64{w.unk}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}

func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isPunct treats every non-alphanumeric ASCII symbol as punctuation, as BERT does.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
