// Package chunker splits textbook text into deterministic, size-bounded chunks.
//
// Progress is tracked by chunk index, so Split must return identical output for
// identical input and options across runs. It keeps no state between calls.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxChunkSize is the character budget that triggers subdivision.
	DefaultMaxChunkSize = 4000

	// DefaultMinLength is the content threshold; shorter pieces are dropped.
	DefaultMinLength = 100
)

// Options configures Split. Zero values fall back to the defaults.
type Options struct {
	MaxChunkSize int
	MinLength    int
	Matchers     []Matcher
}

// Chunk is a 1-based, contiguous position plus its text.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

func (o Options) withDefaults() Options {
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = DefaultMaxChunkSize
	}
	if o.MinLength <= 0 {
		o.MinLength = DefaultMinLength
	}
	if len(o.Matchers) == 0 {
		o.Matchers = DefaultMatchers
	}
	return o
}

// Split scans text line by line and returns its chunks.
//
// A line matching any boundary matcher closes the current section. Size is
// checked after each line: once the running count exceeds MaxChunkSize the
// buffer is flushed, subdivided on paragraph breaks and packed greedily. A
// single-line paragraph larger than MaxChunkSize is therefore kept whole, while
// a paragraph hard-wrapped over several lines is cut at the line that crosses
// the limit. Pieces whose trimmed length does not exceed MinLength are dropped.
func Split(text string, opts Options) []Chunk {
	opts = opts.withDefaults()

	var (
		pieces []string
		buf    []string // trimmed lines; "" marks a paragraph break
		size   int
	)

	keep := func(piece string) {
		if utf8.RuneCountInString(strings.TrimSpace(piece)) > opts.MinLength {
			pieces = append(pieces, piece)
		}
	}
	reset := func() {
		buf = buf[:0]
		size = 0
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			if len(buf) > 0 && buf[len(buf)-1] != "" {
				buf = append(buf, "")
			}
			continue
		}

		if len(buf) > 0 && FirstMatch(opts.Matchers, line) >= 0 {
			keep(joinLines(buf))
			reset()
		}

		buf = append(buf, line)
		size += utf8.RuneCountInString(line)

		if size > opts.MaxChunkSize {
			for _, packed := range packParagraphs(joinLines(buf), opts.MaxChunkSize) {
				keep(packed)
			}
			reset()
		}
	}

	if len(buf) > 0 {
		keep(joinLines(buf))
	}

	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{Index: i + 1, Text: p}
	}
	return chunks
}

// Texts is Split without the index wrapper.
func Texts(text string, opts Options) []string {
	chunks := Split(text, opts)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// packParagraphs splits on blank-line boundaries and packs paragraphs so each
// pack stays within maxSize, except a lone paragraph that is already larger.
// Sizes exclude the separators, matching the running count in Split.
func packParagraphs(section string, maxSize int) []string {
	var (
		packs   []string
		current []string
		size    int
	)
	for _, para := range strings.Split(section, "\n\n") {
		n := utf8.RuneCountInString(para)
		if size+n > maxSize && len(current) > 0 {
			packs = append(packs, strings.Join(current, "\n\n"))
			current = current[:0]
			size = 0
		}
		current = append(current, para)
		size += n
	}
	if len(current) > 0 {
		packs = append(packs, strings.Join(current, "\n\n"))
	}
	return packs
}

// joinLines renders the buffer, turning break markers into blank lines.
func joinLines(lines []string) string {
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[:end], "\n")
}
