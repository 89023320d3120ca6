package parallelreader

import (
	"bufio"
	"io"
)

// Source is the slow, blocking supplier a Stream prefetches from.
//
// Read follows the io.Reader contract for a slice of T: it returns the number
// of elements read and io.EOF at end of stream. Close releases the underlying
// resource and should make a pending Read return promptly.
type Source[T Char] interface {
	Read(p []T) (int, error)
	Close() error
}

// ByteSource adapts r to a Source[byte]. Close closes r if it is an io.Closer.
func ByteSource(r io.Reader) Source[byte] {
	return readerSource{r}
}

type readerSource struct {
	io.Reader
}

func (s readerSource) Close() error {
	if c, ok := s.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// RuneSource decodes the UTF-8 input of r into runes. Invalid encodings are
// delivered as utf8.RuneError. Close closes r if it is an io.Closer.
func RuneSource(r io.Reader) Source[rune] {
	return &runeSource{
		br:     bufio.NewReader(r),
		closer: readerSource{r},
	}
}

type runeSource struct {
	br     *bufio.Reader
	closer readerSource
}

func (s *runeSource) Read(p []rune) (int, error) {
	var n int
	for n < len(p) {
		// only block for the first rune, hand back what is buffered otherwise
		if n > 0 && s.br.Buffered() == 0 {
			break
		}
		c, _, err := s.br.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		p[n] = c
		n++
	}
	return n, nil
}

func (s *runeSource) Close() error {
	return s.closer.Close()
}
