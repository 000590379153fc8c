package analysis

import (
	"reflect"
	"testing"
)

func TestParseFeatureLines(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "dot numbering",
			input: "1. A rotating shaft\n2. A magnetic bearing",
			want:  []string{"A rotating shaft", "A magnetic bearing"},
		},
		{
			name:  "paren numbering",
			input: "1) first feature\n2) second feature",
			want:  []string{"first feature", "second feature"},
		},
		{
			name:  "preamble and trailer dropped",
			input: "Here are the distilled features:\n1. only feature\nLet me know if you need more.",
			want:  []string{"only feature"},
		},
		{
			name:  "blank lines and indentation tolerated",
			input: "\n  1.  padded feature  \n\n 2)\tanother one\n",
			want:  []string{"padded feature", "another one"},
		},
		{
			name:  "bullet lines are not features",
			input: "- bullet one\n* bullet two\n1. real feature",
			want:  []string{"real feature"},
		},
		{
			name:  "ordinal without text dropped",
			input: "1.\n2. kept",
			want:  []string{"kept"},
		},
		{
			name:  "numbers mid-line are not ordinals",
			input: "the claim 1. covers a widget\n3. a widget with 2 flanges",
			want:  []string{"a widget with 2 flanges"},
		},
		{
			name:  "order of appearance preserved",
			input: "7. late ordinal first\n1. small ordinal second",
			want:  []string{"late ordinal first", "small ordinal second"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseFeatureLines(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
