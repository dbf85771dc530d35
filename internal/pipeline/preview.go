package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TheCaptainCodes/amar-ai/internal/api"
	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
	"github.com/TheCaptainCodes/amar-ai/internal/generate"
)

const previewChars = 60

// ChunkInfo summarises one chunk for a dry run.
type ChunkInfo struct {
	Index      int    `json:"index" yaml:"index"`
	Characters int    `json:"characters" yaml:"characters"`
	Exercise   bool   `json:"exercise" yaml:"exercise"`
	Processed  bool   `json:"processed" yaml:"processed"`
	Preview    string `json:"preview" yaml:"preview"`
}

// ChunkReport shows how a document would be split and labelled, without
// calling the generation service.
type ChunkReport struct {
	Source   string           `json:"source" yaml:"source"`
	Dataset  string           `json:"dataset" yaml:"dataset"`
	Metadata dataset.Metadata `json:"metadata" yaml:"metadata"`
	Chunks   []ChunkInfo      `json:"chunks" yaml:"chunks"`
}

// Inspect prepares path and reports its chunks, marking those already in
// the progress sidecar.
func (r *Runner) Inspect(path string) (ChunkReport, error) {
	doc, job, err := r.Prepare(path)
	if err != nil {
		return ChunkReport{}, err
	}
	done := r.Progress.Load(job.Target)

	report := ChunkReport{
		Source:   doc.Path,
		Dataset:  job.Target,
		Metadata: job.Metadata,
		Chunks:   make([]ChunkInfo, 0, len(job.Chunks)),
	}
	for _, c := range job.Chunks {
		report.Chunks = append(report.Chunks, ChunkInfo{
			Index:      c.Index,
			Characters: c.Len(),
			Exercise:   generate.HasExercises(c.Text),
			Processed:  done.Has(c.Index),
			Preview:    generate.Preview(strings.Join(strings.Fields(c.Text), " "), previewChars),
		})
	}
	return report, nil
}

// RenderText implements api.TextRenderer.
func (r ChunkReport) RenderText(w io.Writer) error {
	md := r.Metadata
	api.RenderFields(w, r.Source, []api.Field{
		{Label: "Book", Value: md.Book},
		{Label: "Chapter", Value: strings.TrimSpace(md.Chapter + " " + md.ChapterTitle)},
		{Label: "Topic", Value: md.Topic},
		{Label: "Dataset", Value: r.Dataset},
		{Label: "Chunks", Value: strconv.Itoa(len(r.Chunks))},
	})

	rows := make([][]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		kind := "concept"
		if c.Exercise {
			kind = "exercise"
		}
		done := ""
		if c.Processed {
			done = api.Success("done")
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			api.FormatNumber(c.Characters),
			kind,
			done,
			api.Dim(c.Preview),
		})
	}
	api.Table{
		Headers: []string{"#", "CHARS", "PROMPT", "STATUS", "PREVIEW"},
		Rows:    rows,
		Empty:   fmt.Sprintf("no chunk longer than the minimum length in %s", r.Source),
	}.Render(w)
	return nil
}
