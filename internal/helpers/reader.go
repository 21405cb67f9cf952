package helpers

import "io"

// ReadAllAndClose reads at most limit bytes from r (all of it when limit <= 0)
// and closes it.
func ReadAllAndClose(r io.ReadCloser, limit int64) ([]byte, error) {
	defer r.Close()
	if limit > 0 {
		return io.ReadAll(io.LimitReader(r, limit))
	}
	return io.ReadAll(r)
}
