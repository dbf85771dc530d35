package chunker

import "regexp"

// Matcher reports whether a trimmed line opens a new section.
type Matcher func(line string) bool

var (
	chapterPattern  = regexp.MustCompile(`(?i)^Chapter\s+\w+`)
	decimalPattern  = regexp.MustCompile(`^\d+\.\d+\s+[A-Za-z]`)
	unitPattern     = regexp.MustCompile(`(?i)^Unit\s+\w+`)
	lessonPattern   = regexp.MustCompile(`(?i)^Lesson\s+\d+`)
	colonPattern    = regexp.MustCompile(`^[A-Z][A-Za-z\s]+:`)
	numberedPattern = regexp.MustCompile(`^\d+\.\s+[A-Z]`)
)

// IsChapterHeading matches "Chapter 1", "CHAPTER One".
func IsChapterHeading(line string) bool { return chapterPattern.MatchString(line) }

// IsDecimalHeading matches topic headings such as "1.2 Measurement".
func IsDecimalHeading(line string) bool { return decimalPattern.MatchString(line) }

// IsUnitHeading matches "Unit 3", "Unit Three".
func IsUnitHeading(line string) bool { return unitPattern.MatchString(line) }

// IsLessonHeading matches "Lesson 4".
func IsLessonHeading(line string) bool { return lessonPattern.MatchString(line) }

// IsColonHeader matches short capitalised headers ending in a colon, e.g. "Activity:".
func IsColonHeader(line string) bool { return colonPattern.MatchString(line) }

// IsNumberedSection matches "3. The Water Cycle".
func IsNumberedSection(line string) bool { return numberedPattern.MatchString(line) }

// DefaultMatchers is the ordered boundary list used by Split.
// Order only matters for reporting; any match starts a section.
var DefaultMatchers = []Matcher{
	IsChapterHeading,
	IsDecimalHeading,
	IsUnitHeading,
	IsLessonHeading,
	IsColonHeader,
	IsNumberedSection,
}

// FirstMatch returns the position of the first matcher accepting line, or -1.
func FirstMatch(matchers []Matcher, line string) int {
	for i, m := range matchers {
		if m(line) {
			return i
		}
	}
	return -1
}
