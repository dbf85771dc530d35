// Package metadata derives chapter and topic identifiers from textbook text.
//
// Extraction characterises a whole document: only the first match of each
// pattern class is used. Marker scans (ChapterMarkers, TopicMarkers) return
// every heading in document order and back the completion check.
package metadata

import (
	"regexp"
	"strings"
)

// Matcher looks for a numbered heading and returns its number and title.
type Matcher func(text string) (number, title string, ok bool)

// Info is the structural metadata of one document.
type Info struct {
	ChapterNumber string `json:"chapter"`
	ChapterTitle  string `json:"chapter_title"`
	TopicNumber   string `json:"topic_number,omitempty"`
	TopicTitle    string `json:"topic_title,omitempty"`
	Topic         string `json:"topic"`
}

// regexMatcher adapts a two-group pattern into a Matcher.
func regexMatcher(re *regexp.Regexp) Matcher {
	return func(text string) (string, string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", "", false
		}
		return m[1], strings.TrimSpace(m[2]), true
	}
}

var (
	chapterRe = regexp.MustCompile(`(?i)Chapter\s+(\d+|[A-Za-z]+)[\s:]+([^\n]*)`)
	unitRe    = regexp.MustCompile(`(?i)Unit\s+(\d+|[A-Za-z]+)[\s:]+([^\n]*)`)
	lessonRe  = regexp.MustCompile(`(?i)Lesson\s+(\d+)[\s:]+([^\n]*)`)

	// Titles stop at the end of their line.
	decimalTopicRe      = regexp.MustCompile(`(?im)(\d+\.\d+)\s+([A-Za-z \t]+)$`)
	decimalColonTopicRe = regexp.MustCompile(`(?im)(\d+\.\d+)[\s:]+([A-Za-z \t]+)$`)
	decimalTightTopicRe = regexp.MustCompile(`(?im)(\d+\.\d+)\s*([A-Za-z \t]+)$`)
	namedTopicRe        = regexp.MustCompile(`(?i)Topic\s+(\d+)[\s:]+([^\n]*)`)
	sectionRe           = regexp.MustCompile(`(?i)Section\s+(\d+)[\s:]+([^\n]*)`)

	decimalNumberRe = regexp.MustCompile(`\d+\.\d+`)
)

// ChapterMatchers are tried in order; the first hit wins.
var ChapterMatchers = []Matcher{
	regexMatcher(chapterRe), // Chapter 1: Title / Chapter One\nTitle
	regexMatcher(unitRe),    // Unit 1: Title / Unit One\nTitle
	regexMatcher(lessonRe),  // Lesson 1: Title
}

// TopicMatchers are tried in order; the first hit wins.
var TopicMatchers = []Matcher{
	regexMatcher(decimalTopicRe),      // 1.1 Scope of physics
	regexMatcher(decimalColonTopicRe), // 1.1: Scope of physics
	regexMatcher(decimalTightTopicRe), // 1.1Scope of physics
	regexMatcher(namedTopicRe),        // Topic 1: Title
	regexMatcher(sectionRe),           // Section 1: Title
}

// First runs matchers in order against text and returns the first hit.
func First(matchers []Matcher, text string) (number, title string, ok bool) {
	for _, m := range matchers {
		if number, title, ok = m(text); ok {
			return number, title, true
		}
	}
	return "", "", false
}

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	return newlineReplacer.Replace(text)
}

// Extract derives chapter and topic metadata for a document.
// Without a topic heading the topic number falls back to the chapter number.
func Extract(text string) Info {
	text = NormalizeNewlines(text)
	var info Info
	info.ChapterNumber, info.ChapterTitle, _ = First(ChapterMatchers, text)
	info.TopicNumber, info.TopicTitle, _ = First(TopicMatchers, text)

	if info.TopicNumber == "" && info.ChapterNumber != "" {
		info.TopicNumber = info.ChapterNumber
	}
	info.Topic = joinTopic(info.TopicNumber, info.TopicTitle)
	return info
}

func joinTopic(number, title string) string {
	switch {
	case number != "" && title != "":
		return number + " " + title
	case number != "":
		return number
	default:
		return title
	}
}

// ChapterMarkers lists chapter numbers of every chapter heading line, in order.
func ChapterMarkers(text string) []string {
	var markers []string
	for _, line := range strings.Split(NormalizeNewlines(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := chapterRe.FindStringSubmatch(line); m != nil {
			markers = append(markers, m[1])
		}
	}
	return markers
}

// TopicMarkers lists decimal topic numbers ("2.3") of every topic heading line, in order.
func TopicMarkers(text string) []string {
	var markers []string
	for _, line := range strings.Split(NormalizeNewlines(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := decimalTopicRe.FindStringSubmatch(line); m != nil {
			markers = append(markers, m[1])
		}
	}
	return markers
}

// TopicNumber returns the first decimal number inside a topic string, or "".
func TopicNumber(topic string) string {
	return decimalNumberRe.FindString(topic)
}
