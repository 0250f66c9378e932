package app

import (
	"errors"
	"io"

	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/internal/parser"
)

const discardBufferSize = 4096

// drainPrimary parses records from src and hands each one to sink while
// alive reports true. It returns the number of records delivered to sink
// and the stream error, if any; io.EOF is not reported as an error.
func drainPrimary(src io.Reader, alive func() bool, sink func(domain.Record), opts ...parser.Option) (int, error) {
	p := parser.New(src, opts...)
	n := 0
	for alive() {
		rec, err := p.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if !alive() {
			break
		}
		sink(rec)
		n++
	}
	return n, nil
}

// drainSecondary reads and discards src while alive reports true so the
// capture process never blocks on a full diagnostic pipe. Read errors end
// the loop silently. It returns the number of bytes discarded.
func drainSecondary(src io.Reader, alive func() bool) int64 {
	buf := make([]byte, discardBufferSize)
	var total int64
	for alive() {
		n, err := src.Read(buf)
		total += int64(n)
		if err != nil {
			return total
		}
	}
	return total
}
