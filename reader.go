package parallelreader

import "io"

// Reader is a byte Stream over an io.Reader.
type Reader struct {
	*Stream[byte]
}

var (
	_ io.ReadCloser = (*Reader)(nil)
	_ io.ByteReader = (*Reader)(nil)
	_ io.WriterTo   = (*Reader)(nil)
)

// New starts prefetching r in the background. If r is an io.Closer it is
// closed by Reader.Close.
func New(r io.Reader, opts ...Option) (*Reader, error) {
	if r == nil {
		return nil, invalidf("nil reader")
	}
	s, err := NewStream(ByteSource(r), opts...)
	if err != nil {
		return nil, err
	}
	return &Reader{s}, nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	return r.ReadOne()
}

// WriteTo drains the reader into w until end of stream. It lets io.Copy skip
// its intermediate buffer.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, min(r.Cap(), 32*1024))

	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			total += int64(m)
			if werr != nil {
				return total, werr
			}
			if m < n {
				return total, io.ErrShortWrite
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
