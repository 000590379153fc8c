package analysis

// SplitChunks splits text into contiguous chunks for feature extraction.
//
// For input of length L characters and a per-chunk budget, the chunk count is
// N = ⌈L/budget⌉ and each chunk holds ⌈L/N⌉ characters except the last, which
// takes the remainder.  Concatenating the chunks in order reproduces the
// input exactly.  Empty input yields zero chunks.
func SplitChunks(text string, budget int) []string {
	if text == "" {
		return nil
	}
	if budget < 1 {
		budget = 1
	}
	runes := []rune(text)
	total := len(runes)
	count := (total + budget - 1) / budget
	size := (total + count - 1) / count

	chunks := make([]string, 0, count)
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
