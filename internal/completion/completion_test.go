package completion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
)

const book = `Chapter 1: Physical Quantities
1.1 Measurement
Some text about measurement.
Chapter 3: Motion
3.1 Rest and Motion
Velocity and speed.
Chapter 4: Force
4.2 Inertia
Newton's first law.
`

func recordAt(chapter, topic string) dataset.Record {
	return dataset.Record{
		Instruction: "q",
		Output:      "a",
		Metadata:    dataset.Metadata{Chapter: chapter, Topic: topic},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		records []dataset.Record
		source  string
		want    bool
	}{
		{
			name:    "empty dataset",
			records: nil,
			source:  book,
			want:    false,
		},
		{
			name:    "last chapter behind the book",
			records: []dataset.Record{recordAt("3", "3.1 Rest and Motion")},
			source:  book,
			want:    false,
		},
		{
			name:    "last chapter and topic match",
			records: []dataset.Record{recordAt("1", "1.1 Measurement"), recordAt("4", "4.2 Inertia")},
			source:  book,
			want:    true,
		},
		{
			name:    "chapter matches but topic behind",
			records: []dataset.Record{recordAt("4", "4.1 Mass")},
			source:  book,
			want:    false,
		},
		{
			name:    "record without chapter does not veto",
			records: []dataset.Record{recordAt("", "4.2 Inertia")},
			source:  book,
			want:    true,
		},
		{
			name:    "topic without decimal does not veto",
			records: []dataset.Record{recordAt("4", "4")},
			source:  book,
			want:    true,
		},
		{
			name:    "source without markers",
			records: []dataset.Record{recordAt("2", "2.1 Anything")},
			source:  "just prose with no headings at all",
			want:    true,
		},
		{
			name:    "word-form chapter numbers",
			records: []dataset.Record{recordAt("Four", "")},
			source:  "Chapter One: Start\ntext\nChapter Four: End\nmore text",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.records, tt.source)
			if got.Complete != tt.want {
				t.Errorf("Evaluate() = %+v, want complete=%v", got, tt.want)
			}
			if !got.Complete && got.Reason == "" {
				t.Error("incomplete result should explain why")
			}
			if IsComplete(tt.records, tt.source) != tt.want {
				t.Error("IsComplete disagrees with Evaluate")
			}
		})
	}
}

func TestEvaluate_ReportsMarkers(t *testing.T) {
	got := Evaluate([]dataset.Record{recordAt("3", "3.1 Rest and Motion")}, book)
	if got.BookChapter != "4" || got.BookTopic != "4.2" {
		t.Errorf("markers = %q / %q, want 4 / 4.2", got.BookChapter, got.BookTopic)
	}
	if got.LastChapter != "3" {
		t.Errorf("LastChapter = %q", got.LastChapter)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "Physics.txt")
	if err := os.WriteFile(source, []byte(book), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "physics.json")
	if err := dataset.NewWriter(nil).Persist(target, []dataset.Record{recordAt("4", "4.2 Inertia")}); err != nil {
		t.Fatal(err)
	}

	if res := Check(target, source); !res.Complete {
		t.Errorf("Check() = %+v, want complete", res)
	}

	t.Run("missing source", func(t *testing.T) {
		if res := Check(target, filepath.Join(dir, "absent.txt")); res.Complete {
			t.Error("missing source must be incomplete")
		}
	})

	t.Run("missing dataset", func(t *testing.T) {
		if res := Check(filepath.Join(dir, "absent.json"), source); res.Complete {
			t.Error("missing dataset must be incomplete")
		}
	})

	t.Run("corrupt dataset", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(bad, []byte("[{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if res := Check(bad, source); res.Complete {
			t.Error("corrupt dataset must be incomplete")
		}
	})
}
