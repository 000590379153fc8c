package analysis

import (
	"fmt"
	"strings"
)

const extractionSystemPrompt = `You are a patent analyst. Extract the inventive technical features from the
patent specification excerpt you are given. Respond with a numbered list, one
feature per line in the form "1. <feature>". Do not add commentary before or
after the list.`

func extractionMessages(chunk string) []Message {
	return []Message{
		{Role: RoleSystem, Content: extractionSystemPrompt},
		{Role: RoleUser, Content: chunk},
	}
}

const mergeSystemPrompt = `You are a patent analyst. You are given two numbered lists of inventive
technical features extracted from different parts of the same patent
specification. Merge them into a single numbered list: keep every distinct
feature, combine duplicates and near-duplicates into one entry, and renumber
from 1. Respond with the merged numbered list only, one feature per line in
the form "1. <feature>".`

func mergeMessages(a, b string) []Message {
	return []Message{
		{Role: RoleSystem, Content: mergeSystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("List A:\n%s\n\nList B:\n%s", a, b)},
	}
}

const disclosureSystemPrompt = `You are a patent prior-art analyst. Answer using only the reference passages
provided; do not rely on outside knowledge. If the passages neither disclose
nor suggest the feature, say so plainly.`

func disclosureMessages(feature string, passages []ScoredPassage) []Message {
	var sb strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&sb, "Passage %d (from %q):\n%s\n\n", i+1, p.Title, p.Text)
	}
	question := fmt.Sprintf(
		"%sDo the references disclose or suggest the following feature?\n\n%s",
		sb.String(), feature,
	)
	return []Message{
		{Role: RoleSystem, Content: disclosureSystemPrompt},
		{Role: RoleUser, Content: question},
	}
}

// disclosureQuery is the retrieval query embedded to find candidate passages
// for one feature.
func disclosureQuery(feature string) string {
	return "do the references disclose or suggest: " + feature + "?"
}
