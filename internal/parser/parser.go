// Package parser turns the framed text stream of the capture process into records.
//
// A record starts with a header line whose trimmed content begins with "[".
// The line after the header is always part of the message body; further
// lines are appended until an empty line ends the record:
//
//	[ 01-15 10:30:45.123  1234: 5678 I/ActivityManager ]
//	Start proc com.example for activity
//	second line of the message
//
// A header may carry a leading uid column ("1000: 1234: 5678").
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/internal/ports"
	"github.com/bft-labs/logtap/pkg/log"
)

// HeaderMarker is the prefix that identifies a header line.
const HeaderMarker = "["

const (
	initialBufferSize = 64 * 1024
	maxLineSize       = 1024 * 1024
)

var headerPattern = regexp.MustCompile(`^\[\s*(\S+)\s+(\S+)\s+(?:(\S+?):\s*)?(\d+):\s*(\d+)\s+([A-Za-z])/(.*?)\s*\]$`)

// Parser reads records from a line-oriented stream.
// A Parser is not safe for concurrent use.
type Parser struct {
	scanner  *bufio.Scanner
	logger   log.Logger
	resolver ports.ProcessNameResolver
	body     strings.Builder
	skipped  int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used to report skipped records.
func WithLogger(l log.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithResolver sets the resolver used to fill Record.ProcessName.
func WithResolver(r ports.ProcessNameResolver) Option {
	return func(p *Parser) {
		p.resolver = r
	}
}

// New creates a parser reading from r.
func New(r io.Reader, opts ...Option) *Parser {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initialBufferSize), maxLineSize)

	p := &Parser{
		scanner: sc,
		logger:  log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the next complete record.
// It returns io.EOF when the stream ends, including when it ends in the
// middle of a record body; the partial record is dropped. Records with a
// malformed header are logged and skipped.
func (p *Parser) Next() (domain.Record, error) {
	for p.scanner.Scan() {
		header := strings.TrimSpace(p.scanner.Text())
		if !strings.HasPrefix(header, HeaderMarker) {
			continue
		}

		if !p.scanner.Scan() {
			return domain.Record{}, p.endErr()
		}
		p.body.Reset()
		p.body.WriteString(p.scanner.Text())

		complete := false
		for p.scanner.Scan() {
			line := p.scanner.Text()
			if line == "" {
				complete = true
				break
			}
			p.body.WriteByte('\n')
			p.body.WriteString(line)
		}
		if !complete {
			return domain.Record{}, p.endErr()
		}

		rec, err := ParseHeader(header)
		if err != nil {
			p.skipped++
			p.logger.Debug("skipping record", log.Err(err), log.String("header", header))
			continue
		}
		rec.Message = p.body.String()
		if p.resolver != nil {
			rec.ProcessName = p.resolver.Name(rec.PID)
		}
		return rec, nil
	}
	return domain.Record{}, p.endErr()
}

// Skipped returns the number of records dropped because of a malformed header.
func (p *Parser) Skipped() int {
	return p.skipped
}

func (p *Parser) endErr() error {
	if err := p.scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// ParseHeader decodes a header line into a record with an empty message.
// Errors wrap domain.ErrMalformedHeader.
func ParseHeader(line string) (domain.Record, error) {
	m := headerPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return domain.Record{}, fmt.Errorf("%w: unrecognized layout", domain.ErrMalformedHeader)
	}

	pid, err := strconv.Atoi(m[4])
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: pid: %v", domain.ErrMalformedHeader, err)
	}
	tid, err := strconv.Atoi(m[5])
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: tid: %v", domain.ErrMalformedHeader, err)
	}
	prio, err := domain.ParsePriority(m[6])
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %v", domain.ErrMalformedHeader, err)
	}

	return domain.Record{
		Date:     m[1],
		Time:     m[2],
		UID:      m[3],
		PID:      pid,
		TID:      tid,
		Priority: prio,
		Tag:      m[7],
	}, nil
}

// ParseAll reads every complete record from r.
func ParseAll(r io.Reader, opts ...Option) ([]domain.Record, error) {
	p := New(r, opts...)
	var recs []domain.Record
	for {
		rec, err := p.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
