package notify

import "fmt"

// Chunk is one numbered piece of a diff.
type Chunk struct {
	Index int // 1-based
	Total int
	Body  string
}

// Text is the message sent for this chunk.
func (c Chunk) Text() string {
	return fmt.Sprintf("Diff chunk %d/%d\n%s", c.Index, c.Total, c.Body)
}

// Split cuts text into pieces of at most size characters. Splitting is by
// rune so multi-byte characters are never broken. Joining the bodies in order
// reproduces text.
func Split(text string, size int) []Chunk {
	if text == "" || size <= 0 {
		return nil
	}

	runes := []rune(text)
	total := (len(runes) + size - 1) / size

	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		end := (i + 1) * size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: i + 1,
			Total: total,
			Body:  string(runes[i*size : end]),
		})
	}
	return chunks
}
