package store

import "errors"

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("not found")

// ChunkRange calls fn for consecutive [start, end) windows of at most
// chunkSize covering [0, total). It stops at the first error.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
