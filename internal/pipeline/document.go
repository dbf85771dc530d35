// Package pipeline discovers source documents and drives them through
// chunking, metadata extraction and generation, one document at a time.
package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
	"github.com/TheCaptainCodes/amar-ai/internal/metadata"
)

// SourceExt is the extension of source documents.
const SourceExt = ".txt"

// DefaultBookPrefix names the publisher in Book.
const DefaultBookPrefix = "NCTB"

// Document is one source file, read once and never modified.
type Document struct {
	Path    string
	Text    string
	Class   string
	Subject string
	Book    string
}

// Discover returns every source document below root in lexical order.
// Documents are expected at <root>/<class>/<Subject>.txt.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsSource(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// IsSource reports whether path names a source document.
func IsSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SourceExt)
}

// SubjectOf returns the subject named by a source path.
func SubjectOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ClassOf returns the class directory of a source path.
func ClassOf(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// BookName builds the book label, e.g. "NCTB class_9 Physics".
func BookName(prefix, class, subject string) string {
	return strings.TrimSpace(strings.Join([]string{prefix, class, subject}, " "))
}

// ReadDocument loads the source at path. Line endings are normalised to LF.
func ReadDocument(path, bookPrefix string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	class, subject := ClassOf(path), SubjectOf(path)
	return Document{
		Path:    path,
		Text:    metadata.NormalizeNewlines(string(data)),
		Class:   class,
		Subject: subject,
		Book:    BookName(bookPrefix, class, subject),
	}, nil
}

// Metadata combines the document identity with extracted structure.
func (d Document) Metadata(info metadata.Info) dataset.Metadata {
	return dataset.Metadata{
		Class:        d.Class,
		Subject:      d.Subject,
		Book:         d.Book,
		Chapter:      info.ChapterNumber,
		ChapterTitle: info.ChapterTitle,
		Topic:        info.Topic,
	}
}
