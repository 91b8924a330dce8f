package video

import "testing"

func TestPartitionCoversRange(t *testing.T) {
	for _, start := range []int{0, 7} {
		for total := 0; total <= 40; total++ {
			for workers := -1; workers <= 12; workers++ {
				end := start + total
				chunks := Partition(start, end, workers)

				if total == 0 {
					if len(chunks) != 0 {
						t.Fatalf("Partition(%d, %d, %d) = %v, want none", start, end, workers, chunks)
					}
					continue
				}

				want := min(max(workers, 1), total)
				if len(chunks) != want {
					t.Fatalf("Partition(%d, %d, %d): %d chunks, want %d", start, end, workers, len(chunks), want)
				}

				next := start
				size := total / want
				for i, c := range chunks {
					if c.Index != i || c.Start != next {
						t.Fatalf("Partition(%d, %d, %d): chunk %d = %+v, want start %d", start, end, workers, i, c, next)
					}
					if err := c.Validate(); err != nil {
						t.Fatalf("Partition(%d, %d, %d): %v", start, end, workers, err)
					}
					if c.End > end {
						t.Fatalf("chunk %+v ends past %d", c, end)
					}
					if i < len(chunks)-1 && c.Len() != size {
						t.Fatalf("chunk %+v has length %d, want %d", c, c.Len(), size)
					}
					next = c.End
				}
				if next != end {
					t.Fatalf("Partition(%d, %d, %d) stops at %d", start, end, workers, next)
				}
			}
		}
	}
}

func TestPartitionLastChunkAbsorbsRemainder(t *testing.T) {
	chunks := Partition(0, 10, 3)
	want := []Chunk{{0, 0, 3}, {1, 3, 6}, {2, 6, 10}}
	if len(chunks) != len(want) {
		t.Fatalf("Partition(0, 10, 3) = %v", chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, chunks[i], want[i])
		}
	}
}

func TestChunkValidate(t *testing.T) {
	tests := []struct {
		c       Chunk
		wantErr bool
	}{
		{Chunk{Start: 0, End: 1}, false},
		{Chunk{Start: 5, End: 5}, true},
		{Chunk{Start: 6, End: 5}, true},
		{Chunk{Start: -1, End: 5}, true},
	}
	for _, tt := range tests {
		if err := tt.c.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%+v.Validate() = %v, wantErr %v", tt.c, err, tt.wantErr)
		}
	}
}
