package analysis

import (
	"regexp"
	"strings"
)

// featureLine matches one numbered feature line as the model is instructed to
// emit them: a leading ordinal followed by "." or ")" and the feature text.
var featureLine = regexp.MustCompile(`^\s*\d+\s*[.)]\s*(.+?)\s*$`)

// ParseFeatureLines extracts the numbered feature lines from a distilled
// model output.  Lines that do not conform to the numbering grammar, such as
// preambles ("Here are the features:") or blank separators, are dropped.
// The returned features keep their order of appearance, stripped of the
// ordinal prefix.
func ParseFeatureLines(s string) []string {
	var features []string
	for _, line := range strings.Split(s, "\n") {
		m := featureLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		features = append(features, m[1])
	}
	return features
}
