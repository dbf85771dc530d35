package chunker

import (
	"reflect"
	"strings"
	"testing"
)

// prose builds a boundary-free line of roughly n characters.
func prose(n int) string {
	const sentence = "the particle moves along a straight path and its speed changes with time "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return strings.TrimSpace(b.String()[:n])
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Join([]string{
		"Chapter 1 Physical Quantities",
		prose(300),
		"",
		prose(250),
		"1.1 Scope of Physics",
		prose(180),
		"Unit Two",
		prose(900),
		"Lesson 3: Can you live alone?",
		prose(120),
	}, "\n")

	for _, size := range []int{200, 500, 4000} {
		first := Split(text, Options{MaxChunkSize: size})
		second := Split(text, Options{MaxChunkSize: size})
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("size %d: chunking is not deterministic", size)
		}
		for i, c := range first {
			if c.Index != i+1 {
				t.Fatalf("size %d: chunk %d has index %d", size, i, c.Index)
			}
		}
	}
}

func TestSplit_OversizedParagraphKeptWhole(t *testing.T) {
	para := prose(1500)
	chunks := Split(para, Options{MaxChunkSize: 400})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != para {
		t.Errorf("chunk does not contain the whole paragraph")
	}
	if chunks[0].Len() <= 400 {
		t.Errorf("expected oversized chunk, got %d chars", chunks[0].Len())
	}
}

func TestSplit_WrappedParagraphCutAtLines(t *testing.T) {
	line := prose(100) // 99 characters once trimmed
	lines := make([]string, 15)
	for i := range lines {
		lines[i] = line
	}

	// The running count passes 400 on the fifth line, so every chunk holds
	// five lines even though the source has no blank line.
	chunks := Split(strings.Join(lines, "\n"), Options{MaxChunkSize: 400})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := strings.Join(lines[:5], "\n")
	for i, c := range chunks {
		if c.Text != want {
			t.Errorf("chunk %d = %q, want five joined lines", i+1, c.Text)
		}
		if c.Len() != 499 {
			t.Errorf("chunk %d has %d chars, want 499", i+1, c.Len())
		}
	}
}

func TestSplit_SubdividesOnParagraphs(t *testing.T) {
	first := prose(150)
	second := "and " + prose(150)
	text := first + "\n\n" + second

	chunks := Split(text, Options{MaxChunkSize: 200})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0].Text != first || chunks[1].Text != second {
		t.Errorf("unexpected chunk texts: %q / %q", chunks[0].Text, chunks[1].Text)
	}
}

func TestSplit_PacksSmallParagraphsTogether(t *testing.T) {
	a, b, c := prose(120), "and "+prose(120), "so "+prose(120)
	text := a + "\n\n" + b + "\n\n" + c

	chunks := Split(text, Options{MaxChunkSize: 300})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != a+"\n\n"+b {
		t.Errorf("first pack should hold two paragraphs, got %q", chunks[0].Text)
	}
	if chunks[1].Text != c {
		t.Errorf("second pack should hold the last paragraph, got %q", chunks[1].Text)
	}
}

func TestSplit_DropsShortSections(t *testing.T) {
	text := strings.Join([]string{
		"Chapter 1 Motion",
		prose(200),
		"Activity:",
		"measure your desk",
		"1.2 Speed and Velocity",
		prose(200),
	}, "\n")

	chunks := Split(text, Options{})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %#v", len(chunks), chunks)
	}
	for _, c := range chunks {
		if strings.Contains(c.Text, "measure your desk") {
			t.Errorf("short section should have been dropped: %q", c.Text)
		}
	}
	if !strings.HasPrefix(chunks[0].Text, "Chapter 1 Motion\n") {
		t.Errorf("first chunk should start at the chapter heading: %q", chunks[0].Text)
	}
	if !strings.HasPrefix(chunks[1].Text, "1.2 Speed and Velocity\n") {
		t.Errorf("second chunk should start at the topic heading: %q", chunks[1].Text)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	if got := Split("  \n\n\t\n", Options{}); len(got) != 0 {
		t.Fatalf("expected no chunks, got %#v", got)
	}
}

func TestSplit_TrailingBufferFlushed(t *testing.T) {
	text := "Chapter 5 Light\n" + prose(140)
	chunks := Split(text, Options{})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, prose(140)) {
		t.Errorf("trailing text missing from final chunk")
	}
}

func TestTexts(t *testing.T) {
	text := prose(150) + "\n\n" + "and " + prose(150)
	got := Texts(text, Options{MaxChunkSize: 200})
	if len(got) != 2 {
		t.Fatalf("expected 2 texts, got %d", len(got))
	}
}

func TestMatchers(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"Chapter 1 Physical Quantities", 0},
		{"CHAPTER One", 0},
		{"1.1 Scope of Physics", 1},
		{"Unit Three", 2},
		{"Lesson 4: Our neighbours", 3},
		{"Activity:", 4},
		{"3. The Water Cycle", 5},
		{"the particle moves along a path", -1},
		{"1.1", -1},
		{"Lesson Four", -1},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := FirstMatch(DefaultMatchers, tt.line); got != tt.want {
				t.Errorf("FirstMatch(%q) = %d, want %d", tt.line, got, tt.want)
			}
		})
	}
}
