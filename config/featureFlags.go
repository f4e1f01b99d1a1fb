package config

// DedupNumericZeroAsEmpty makes the completeness score treat numeric zero in any representation
// ("0", "0.0", 0.0, decimal zero) as an empty field, instead of only 0 and "0.00".
//
// Set via env:
// - DEDUP_NUMERIC_ZERO_AS_EMPTY=true
func DedupNumericZeroAsEmpty() bool {
	return boolFromEnv("DEDUP_NUMERIC_ZERO_AS_EMPTY", false)
}

// DedupDeleteChunkSize is how many ids are deleted per store call.
//
// Set via env:
// - DEDUP_DELETE_CHUNK_SIZE (default 500)
func DedupDeleteChunkSize() int {
	n := intFromEnv("DEDUP_DELETE_CHUNK_SIZE", 500)
	if n <= 0 {
		return 500
	}
	return n
}
