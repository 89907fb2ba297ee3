package gate

import (
	"bytes"
	"io"
)

var (
	nl = []byte("\n")
)

// PrefixedWriter prepends a fixed prefix to every line written through
// it. Useful for labelling log output of a host sharing a stream with
// workload reports.
type PrefixedWriter struct {
	w      io.Writer
	prefix []byte
}

func NewPrefixedWriter(w io.Writer, prefix string) *PrefixedWriter {
	return &PrefixedWriter{w: w, prefix: []byte(prefix)}
}

func (w *PrefixedWriter) Write(p []byte) (int, error) {
	for line := range bytes.SplitSeq(bytes.TrimSuffix(p, nl), nl) {
		msg := make([]byte, 0, len(w.prefix)+len(line)+len(nl))
		msg = append(msg, w.prefix...)
		msg = append(msg, line...)
		msg = append(msg, nl...)
		if _, err := w.w.Write(msg); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
