package source

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// maxLineLength bounds a single scanned line.
const maxLineLength = 4096

// LineSource reads one payload per line, as written by keyboard-wedge and
// serial scanners. Blank lines are skipped.
type LineSource struct {
	r     io.Reader
	ch    chan model.ScanPayload
	done  chan struct{}
	once  sync.Once
	clock clock.Clock
	log   logger.Logger
}

// NewLine starts reading r. Oversized lines are dropped and reading goes on.
// The stream ends at EOF, on a read error or on Close.
func NewLine(r io.Reader, opts ...Option) *LineSource {
	s := settings{clock: clock.New(), log: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	ls := &LineSource{
		r:     r,
		ch:    make(chan model.ScanPayload, defaultBufferSize),
		done:  make(chan struct{}),
		clock: s.clock,
		log:   s.log,
	}
	go ls.read()
	return ls
}

func (s *LineSource) read() {
	defer close(s.ch)
	br := bufio.NewReaderSize(s.r, maxLineLength)
	for {
		line, oversized, err := readLine(br)
		if oversized {
			metrics.RecordScanDropped()
			s.log.Warn(context.Background(), "line source dropped oversized line", logger.Int("limit", maxLineLength))
		} else if text := strings.TrimSpace(string(line)); text != "" {
			select {
			case s.ch <- model.ScanPayload{Text: text, CapturedAt: s.clock.Now()}:
				metrics.RecordScanReceived()
			case <-s.done:
				return
			}
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			select {
			case <-s.done:
			default:
				s.log.Warn(context.Background(), "line source read failed", logger.Error(err))
			}
		}
		return
	}
}

// readLine returns the next line without its terminator. A line that does
// not fit the reader's buffer is consumed up to its newline and reported as
// oversized instead.
func readLine(br *bufio.Reader) ([]byte, bool, error) {
	line, isPrefix, err := br.ReadLine()
	if !isPrefix {
		return line, false, err
	}
	for isPrefix && err == nil {
		_, isPrefix, err = br.ReadLine()
	}
	return nil, true, err
}

// Payloads implements Source.
func (s *LineSource) Payloads() <-chan model.ScanPayload { return s.ch }

// Close stops delivery. The reader is closed if it implements io.Closer;
// otherwise the reading goroutine exits after its next line.
func (s *LineSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if c, ok := s.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
