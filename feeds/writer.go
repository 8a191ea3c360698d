package feeds

import (
	"encoding/json"
	"io"
)

type flusher interface {
	Flush() error
}

// ArrayWriter writes a JSON array one element at a time
type ArrayWriter struct {
	w     io.Writer
	count int
}

func NewArrayWriter(w io.Writer) *ArrayWriter {
	return &ArrayWriter{w: w}
}

func (a *ArrayWriter) Begin() error {
	return a.write([]byte("["))
}

func (a *ArrayWriter) WriteElement(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if a.count > 0 {
		data = append([]byte(","), data...)
	}
	a.count++

	return a.write(data)
}

func (a *ArrayWriter) End() error {
	return a.write([]byte("]"))
}

func (a *ArrayWriter) write(p []byte) error {
	if _, err := a.w.Write(p); err != nil {
		return err
	}
	if f, ok := a.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
