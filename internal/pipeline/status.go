package pipeline

import (
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/TheCaptainCodes/amar-ai/internal/api"
	"github.com/TheCaptainCodes/amar-ai/internal/completion"
	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
	"github.com/TheCaptainCodes/amar-ai/internal/home"
	"github.com/TheCaptainCodes/amar-ai/internal/progress"
)

// State classifies a source document against its dataset.
type State string

const (
	StateNew      State = "new"      // no dataset yet
	StatePartial  State = "partial"  // dataset exists but does not reach the end of the book
	StateComplete State = "complete" // last record matches the last chapter and topic
)

// SubjectStatus describes one source document.
type SubjectStatus struct {
	Source          string `json:"source" yaml:"source"`
	Class           string `json:"class" yaml:"class"`
	Subject         string `json:"subject" yaml:"subject"`
	Dataset         string `json:"dataset" yaml:"dataset"`
	State           State  `json:"state" yaml:"state"`
	Records         int    `json:"records" yaml:"records"`
	ProcessedChunks int    `json:"processed_chunks" yaml:"processed_chunks"`
	Reason          string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// StatusReport is the result of a startup scan.
type StatusReport struct {
	SourceRoot string          `json:"source_root" yaml:"source_root"`
	OutputDir  string          `json:"output_dir" yaml:"output_dir"`
	Subjects   []SubjectStatus `json:"subjects" yaml:"subjects"`
}

// Count returns how many subjects are in state s.
func (r StatusReport) Count(s State) int {
	n := 0
	for _, sub := range r.Subjects {
		if sub.State == s {
			n++
		}
	}
	return n
}

// Lookup returns the status of a source path.
func (r StatusReport) Lookup(source string) (SubjectStatus, bool) {
	for _, sub := range r.Subjects {
		if sub.Source == source {
			return sub, true
		}
	}
	return SubjectStatus{}, false
}

// RenderText implements api.TextRenderer.
func (r StatusReport) RenderText(w io.Writer) error {
	api.RenderFields(w, "trainset status", []api.Field{
		{Label: "Sources", Value: r.SourceRoot},
		{Label: "Output", Value: r.OutputDir},
		{Label: "Complete", Value: api.Success(strconv.Itoa(r.Count(StateComplete)))},
		{Label: "Partial", Value: api.Warn(strconv.Itoa(r.Count(StatePartial)))},
		{Label: "New", Value: strconv.Itoa(r.Count(StateNew))},
	})

	rows := make([][]string, 0, len(r.Subjects))
	for _, s := range r.Subjects {
		rows = append(rows, []string{
			s.Class,
			s.Subject,
			styleState(s.State),
			api.FormatNumber(s.Records),
			strconv.Itoa(s.ProcessedChunks),
			s.Reason,
		})
	}
	api.Table{
		Headers: []string{"CLASS", "SUBJECT", "STATE", "RECORDS", "CHUNKS", "DETAIL"},
		Rows:    rows,
		Empty:   "no source documents found",
	}.Render(w)
	return nil
}

func styleState(s State) string {
	switch s {
	case StateComplete:
		return api.Success(string(s))
	case StatePartial:
		return api.Warn(string(s))
	default:
		return string(s)
	}
}

// Scan classifies every source document below dir's source root.
// Several classes may share one subject dataset; each source is judged
// against it independently.
func Scan(dir *home.Dir, store *progress.Store) (StatusReport, error) {
	report := StatusReport{
		SourceRoot: dir.SourcePath(),
		OutputDir:  dir.OutputPath(),
	}
	sources, err := Discover(dir.SourcePath())
	if err != nil {
		return report, err
	}
	for _, src := range sources {
		report.Subjects = append(report.Subjects, Classify(src, dir.DatasetPath(SubjectOf(src)), store))
	}
	return report, nil
}

// Classify reports the state of one source against its dataset.
func Classify(source, target string, store *progress.Store) SubjectStatus {
	st := SubjectStatus{
		Source:  source,
		Class:   ClassOf(source),
		Subject: SubjectOf(source),
		Dataset: target,
		State:   StateNew,
	}

	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		return st
	}

	if records, err := dataset.Load(target); err == nil {
		st.Records = len(records)
	}
	st.ProcessedChunks = len(store.Load(target))

	res := completion.Check(target, source)
	if res.Complete {
		st.State = StateComplete
	} else {
		st.State = StatePartial
		st.Reason = res.Reason
	}
	return st
}
