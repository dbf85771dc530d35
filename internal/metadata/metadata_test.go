package metadata

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Info
	}{
		{
			name: "chapter with colon and no topic falls back to chapter number",
			text: "Chapter 2: Motion\nA body is said to be in motion when its position changes.\n",
			want: Info{ChapterNumber: "2", ChapterTitle: "Motion", TopicNumber: "2", Topic: "2"},
		},
		{
			name: "word-form chapter with title on next line",
			text: "Chapter One\nPhysical Quantities and Their Measurements\n1.1 Scope of physics\nPhysics is everywhere.",
			want: Info{
				ChapterNumber: "One",
				ChapterTitle:  "Physical Quantities and Their Measurements",
				TopicNumber:   "1.1",
				TopicTitle:    "Scope of physics",
				Topic:         "1.1 Scope of physics",
			},
		},
		{
			name: "unit heading",
			text: "Unit One\nGood citizens\nWe live together in society.",
			want: Info{ChapterNumber: "One", ChapterTitle: "Good citizens", TopicNumber: "One", Topic: "One"},
		},
		{
			name: "lesson heading",
			text: "Lesson 1: Can you live alone?\nPeople depend on each other.",
			want: Info{ChapterNumber: "1", ChapterTitle: "Can you live alone?", TopicNumber: "1", Topic: "1"},
		},
		{
			name: "colon topic heading",
			text: "Chapter 4: Heat\n4.2: Expansion of solids\nSolids expand when heated.",
			want: Info{
				ChapterNumber: "4",
				ChapterTitle:  "Heat",
				TopicNumber:   "4.2",
				TopicTitle:    "Expansion of solids",
				Topic:         "4.2 Expansion of solids",
			},
		},
		{
			name: "named topic without chapter",
			text: "Topic 3: Fractions\nA fraction is a part of a whole.",
			want: Info{TopicNumber: "3", TopicTitle: "Fractions", Topic: "3 Fractions"},
		},
		{
			name: "nothing found",
			text: "plain prose without any headings at all.",
			want: Info{},
		},
		{
			name: "windows line endings",
			text: "Chapter 1: Physical Quantities\r\n1.1 Scope of Physics\r\nPhysics is everywhere.\r\n",
			want: Info{
				ChapterNumber: "1",
				ChapterTitle:  "Physical Quantities",
				TopicNumber:   "1.1",
				TopicTitle:    "Scope of Physics",
				Topic:         "1.1 Scope of Physics",
			},
		},
		{
			name: "old mac line endings",
			text: "Chapter 1: Physical Quantities\r1.1 Scope of Physics\rPhysics is everywhere.",
			want: Info{
				ChapterNumber: "1",
				ChapterTitle:  "Physical Quantities",
				TopicNumber:   "1.1",
				TopicTitle:    "Scope of Physics",
				Topic:         "1.1 Scope of Physics",
			},
		},
		{
			name: "first chapter wins",
			text: "Chapter 1: Cells\ntext\nChapter 2: Tissues\n",
			want: Info{ChapterNumber: "1", ChapterTitle: "Cells", TopicNumber: "1", Topic: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if got != tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFirst_OrderMatters(t *testing.T) {
	// Unit appears before Chapter in the text, but Chapter is tried first.
	text := "Unit 9: Review\nChapter 3: Light\n"
	num, title, ok := First(ChapterMatchers, text)
	if !ok || num != "3" || title != "Light" {
		t.Fatalf("First() = %q %q %v, want 3 Light true", num, title, ok)
	}
}

func TestChapterMarkers(t *testing.T) {
	text := "Chapter 1: Cells\nbody text\nChapter 2 Tissues\nChapter 3\nCHAPTER Four: Organs\n"
	want := []string{"1", "2", "Four"}
	if got := ChapterMarkers(text); !reflect.DeepEqual(got, want) {
		t.Errorf("ChapterMarkers() = %v, want %v", got, want)
	}
}

func TestTopicMarkers(t *testing.T) {
	text := "1.1 Scope of physics\nIt moved 2.5 metres.\n1.2 Measurement\n  1.10 Units and dimensions  \n"
	want := []string{"1.1", "1.2", "1.10"}
	if got := TopicMarkers(text); !reflect.DeepEqual(got, want) {
		t.Errorf("TopicMarkers() = %v, want %v", got, want)
	}
}

func TestNormalizeNewlines(t *testing.T) {
	tests := map[string]string{
		"a\r\nb\r\n": "a\nb\n",
		"a\rb":        "a\nb",
		"a\nb":        "a\nb",
		"a\r\n\rb":    "a\n\nb",
	}
	for in, want := range tests {
		if got := NormalizeNewlines(in); got != want {
			t.Errorf("NormalizeNewlines(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMarkers_WindowsLineEndings(t *testing.T) {
	text := "Chapter 1: Cells\r\n1.1 Membranes\r\nbody\r\nChapter 2: Tissues\r\n2.3 Epithelium\r\n"
	if got := ChapterMarkers(text); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("ChapterMarkers() = %v", got)
	}
	if got := TopicMarkers(text); !reflect.DeepEqual(got, []string{"1.1", "2.3"}) {
		t.Errorf("TopicMarkers() = %v", got)
	}
}

func TestTopicNumber(t *testing.T) {
	if got := TopicNumber("3.4 Lenses"); got != "3.4" {
		t.Errorf("TopicNumber() = %q, want 3.4", got)
	}
	if got := TopicNumber("3"); got != "" {
		t.Errorf("TopicNumber() = %q, want empty", got)
	}
}
