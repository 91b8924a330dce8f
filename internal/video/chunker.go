package video

import "fmt"

// Chunk is the half-open frame range [Start, End) handled by one worker.
type Chunk struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of frames in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Validate checks that the chunk describes a non-empty, non-negative range.
func (c Chunk) Validate() error {
	if c.Start < 0 {
		return fmt.Errorf("chunk %d: start %d is negative", c.Index, c.Start)
	}
	if c.End <= c.Start {
		return fmt.Errorf("chunk %d: end %d must be greater than start %d", c.Index, c.End, c.Start)
	}
	return nil
}

// Partition splits [start, end) into at most workers contiguous chunks.
//
// The chunk size is the integer quotient of the range length and the worker
// count; the final chunk absorbs the remainder. When the range holds fewer
// frames than workers, one single-frame chunk is produced per frame. An empty
// range yields no chunks.
func Partition(start, end, workers int) []Chunk {
	total := end - start
	if total <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	n := min(workers, total)
	size := total / n

	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		s := start + i*size
		e := min(s+size, end)
		if i == n-1 {
			e = end
		}
		chunks = append(chunks, Chunk{Index: i, Start: s, End: e})
	}
	return chunks
}
