package syncpump

import (
	"fmt"
	"testing"
)

func weightedPayloads(weights ...int) []Payload {
	payloads := make([]Payload, 0, len(weights))
	for i, weight := range weights {
		payloads = append(payloads, Payload{ForeignID: int64(i + 1), Weight: weight})
	}

	return payloads
}

func TestBuildChunksRespectsCeiling(t *testing.T) {
	chunks := BuildChunks(weightedPayloads(4000, 4000, 4000, 4000, 4000), 12000)

	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(chunks))
	}
	for i, chunk := range chunks {
		total := 0
		for _, payload := range chunk {
			total += payload.Weight
		}
		if total > 12000 {
			t.Fatalf("chunk %d weight = %d, exceeds ceiling", i, total)
		}
	}
}

func TestBuildChunksKeepsOrder(t *testing.T) {
	chunks := BuildChunks(weightedPayloads(1, 1, 1, 1), 2)

	var got []int64
	for _, chunk := range chunks {
		got = append(got, chunkForeignIDs(chunk)...)
	}
	for i, id := range got {
		if id != int64(i+1) {
			t.Fatalf("ids out of order: %v", got)
		}
	}
}

func TestBuildChunksOverweightPayloadStandsAlone(t *testing.T) {
	chunks := BuildChunks(weightedPayloads(100, 50000, 100), 12000)

	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}
	if len(chunks[1]) != 1 || chunks[1][0].Weight != 50000 {
		t.Fatalf("overweight payload not isolated: %+v", chunks[1])
	}
}

func TestBuildChunksEmpty(t *testing.T) {
	if chunks := BuildChunks(nil, 12000); chunks != nil {
		t.Fatalf("chunks = %v, want nil", chunks)
	}
}

func TestSplitChunkThirds(t *testing.T) {
	cases := []struct {
		size  int
		parts []int
	}{
		{size: 2, parts: []int{1, 1}},
		{size: 3, parts: []int{1, 1, 1}},
		{size: 9, parts: []int{3, 3, 3}},
		{size: 10, parts: []int{4, 4, 2}},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("size=%d", tc.size), func(t *testing.T) {
			weights := make([]int, tc.size)
			subChunks := splitChunk(weightedPayloads(weights...))

			if len(subChunks) != len(tc.parts) {
				t.Fatalf("sub-chunk count = %d, want %d", len(subChunks), len(tc.parts))
			}
			total := 0
			for i, sub := range subChunks {
				if len(sub) != tc.parts[i] {
					t.Fatalf("sub-chunk %d size = %d, want %d", i, len(sub), tc.parts[i])
				}
				total += len(sub)
			}
			if total != tc.size {
				t.Fatalf("split lost payloads: %d of %d", total, tc.size)
			}
		})
	}
}

func TestSplitChunkSingleIsNil(t *testing.T) {
	if sub := splitChunk(weightedPayloads(1)); sub != nil {
		t.Fatalf("split of single payload = %v, want nil", sub)
	}
}

func TestPayloadWeight(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{body: `{"id": 1, "email": "a@example.com"}`, want: 4},
		{body: "", want: 0},
		{body: "one", want: 1},
	}

	for _, tc := range cases {
		if got := PayloadWeight([]byte(tc.body)); got != tc.want {
			t.Fatalf("weight(%q) = %d, want %d", tc.body, got, tc.want)
		}
	}
}

func BenchmarkBuildChunks(b *testing.B) {
	payloads := make([]Payload, 1000)
	for i := range payloads {
		payloads[i] = Payload{ForeignID: int64(i + 1), Weight: 150}
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		BuildChunks(payloads, 12000)
	}
}
