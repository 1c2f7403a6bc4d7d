package syncpump

const oversizedSplitParts = 3

// BuildChunks partitions payloads into chunks whose total weight never
// exceeds ceiling. A single payload heavier than the ceiling is emitted
// alone in its own chunk, never dropped.
func BuildChunks(payloads []Payload, ceiling int) [][]Payload {
	if len(payloads) == 0 {
		return nil
	}

	chunks := make([][]Payload, 0, 1)
	current := make([]Payload, 0, len(payloads))
	weight := 0

	for _, payload := range payloads {
		if len(current) > 0 && weight+payload.Weight > ceiling {
			chunks = append(chunks, current)
			current = make([]Payload, 0, len(payloads))
			weight = 0
		}
		current = append(current, payload)
		weight += payload.Weight
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitChunk divides an oversized chunk into three near-even sub-chunks
// for independent resending. Returns nil when the chunk holds a single
// payload and cannot be split further.
func splitChunk(chunk []Payload) [][]Payload {
	if len(chunk) <= 1 {
		return nil
	}

	parts := oversizedSplitParts
	if parts > len(chunk) {
		parts = len(chunk)
	}
	size := (len(chunk) + parts - 1) / parts

	subChunks := make([][]Payload, 0, parts)
	for start := 0; start < len(chunk); start += size {
		end := start + size
		if end > len(chunk) {
			end = len(chunk)
		}
		subChunks = append(subChunks, chunk[start:end])
	}

	return subChunks
}

func chunkForeignIDs(chunk []Payload) []int64 {
	ids := make([]int64, 0, len(chunk))
	for _, payload := range chunk {
		ids = append(ids, payload.ForeignID)
	}

	return ids
}
