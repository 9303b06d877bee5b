package logging

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"time"
)

// LineWriter prefixes every complete line written to it with a sequence number
// and a timestamp before passing it to the target. A trailing partial line is
// held back until its newline arrives or Close is called.
type LineWriter struct {
	mu      sync.Mutex
	target  io.Writer
	seq     uint64
	pending bytes.Buffer
	now     func() time.Time
}

func NewLineWriter(target io.Writer) *LineWriter {
	return &LineWriter{target: target, now: time.Now}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending.Write(p)
	for {
		idx := bytes.IndexByte(w.pending.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := w.pending.Next(idx + 1)
		if err := w.writeLine(bytes.TrimRight(line, "\r\n")); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Close flushes a trailing partial line.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending.Len() == 0 {
		return nil
	}
	line := bytes.Clone(w.pending.Bytes())
	w.pending.Reset()
	return w.writeLine(line)
}

func (w *LineWriter) writeLine(line []byte) error {
	w.seq++
	prefix := slog.Uint64("line", w.seq).String() + " " +
		slog.String("time", w.now().Format(time.RFC3339)).String() + " "

	buf := make([]byte, 0, len(prefix)+len(line)+1)
	buf = append(buf, prefix...)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	_, err := w.target.Write(buf)
	return err
}
