// Package completion decides whether a source document has already been
// fully converted, by comparing the last dataset record with the last
// structural markers of the source text.
package completion

import (
	"fmt"
	"os"

	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
	"github.com/TheCaptainCodes/amar-ai/internal/metadata"
)

// Result explains a completion decision.
type Result struct {
	Complete bool   `json:"complete" yaml:"complete"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`

	LastChapter string `json:"last_chapter,omitempty" yaml:"last_chapter,omitempty"`
	LastTopic   string `json:"last_topic,omitempty" yaml:"last_topic,omitempty"`
	BookChapter string `json:"book_chapter,omitempty" yaml:"book_chapter,omitempty"`
	BookTopic   string `json:"book_topic,omitempty" yaml:"book_topic,omitempty"`
}

// Evaluate compares the final record of records against source.
//
// An empty dataset is never complete. The chapter check only applies when
// both the record and the source carry a chapter; likewise for topics, where
// the record's topic is reduced to its decimal number. Missing markers never
// veto completion.
func Evaluate(records []dataset.Record, source string) Result {
	last, ok := dataset.Last(records)
	if !ok {
		return Result{Reason: "dataset is empty"}
	}

	res := Result{
		LastChapter: last.Metadata.Chapter,
		LastTopic:   last.Metadata.Topic,
	}
	if chapters := metadata.ChapterMarkers(source); len(chapters) > 0 {
		res.BookChapter = chapters[len(chapters)-1]
	}
	if topics := metadata.TopicMarkers(source); len(topics) > 0 {
		res.BookTopic = topics[len(topics)-1]
	}

	if res.BookChapter != "" && res.LastChapter != "" && res.LastChapter != res.BookChapter {
		res.Reason = fmt.Sprintf("last processed chapter %s, last chapter in book %s", res.LastChapter, res.BookChapter)
		return res
	}
	if res.BookTopic != "" && res.LastTopic != "" {
		if n := metadata.TopicNumber(res.LastTopic); n != "" && n != res.BookTopic {
			res.Reason = fmt.Sprintf("last processed topic %s, last topic in book %s", res.LastTopic, res.BookTopic)
			return res
		}
	}

	res.Complete = true
	return res
}

// IsComplete reports whether records already cover source.
func IsComplete(records []dataset.Record, source string) bool {
	return Evaluate(records, source).Complete
}

// Check reads the dataset and source files and evaluates them.
// Any read or decode failure yields an incomplete result.
func Check(datasetPath, sourcePath string) Result {
	records, err := dataset.Load(datasetPath)
	if err != nil {
		return Result{Reason: fmt.Sprintf("failed to read dataset: %v", err)}
	}
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return Result{Reason: fmt.Sprintf("failed to read source: %v", err)}
	}
	return Evaluate(records, string(source))
}
