package utils

// TextChunk is one span produced by SplitText. Offset is the rune offset of
// the span within the source text; retrieval uses it as a deterministic
// tie-breaker, so it must be stable across rescans of identical content.
type TextChunk struct {
	Text   string
	Offset int
}

// SplitText splits a long string into chunks of approximately 'chunkSize'
// characters with 'overlap' characters shared between neighbours to preserve
// context at boundaries. This is a simple character-based splitter.
func SplitText(text string, chunkSize int, overlap int) []TextChunk {
	runes := []rune(text)
	totalLen := len(runes)

	if totalLen == 0 {
		return nil
	}
	if totalLen <= chunkSize {
		return []TextChunk{{Text: text, Offset: 0}}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var chunks []TextChunk
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, TextChunk{Text: string(runes[i:end]), Offset: i})

		if end == totalLen {
			break
		}
	}

	return chunks
}
