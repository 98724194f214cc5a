package infra

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ForegroundSink receives foreground-change signals.
type ForegroundSink interface {
	OnForegroundChanged(ctx context.Context, appID string, at time.Time) bool
}

// LineSource reads foreground signals as text lines, one per change:
//
//	<appId> [unix-millis]
//
// Blank lines and lines starting with # are skipped. A missing timestamp
// means "now".
type LineSource struct {
	r      io.Reader
	sink   ForegroundSink
	logger *zap.Logger
}

// NewLineSource creates a source reading from r.
func NewLineSource(r io.Reader, sink ForegroundSink, logger *zap.Logger) *LineSource {
	return &LineSource{r: r, sink: sink, logger: logger}
}

// Name identifies the source in daemon logs.
func (s *LineSource) Name() string {
	return "stdin"
}

// Run forwards lines to the sink until EOF or ctx is cancelled.
func (s *LineSource) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil {
						return fmt.Errorf("failed to read foreground signals: %w", err)
					}
				default:
				}
				return nil
			}
			appID, at, err := ParseSignalLine(line)
			if err != nil {
				s.logger.Warn("skipping bad signal line", zap.String("line", line), zap.Error(err))
				continue
			}
			if appID == "" {
				continue
			}
			s.sink.OnForegroundChanged(ctx, appID, at)
		}
	}
}

// ParseSignalLine parses one line. An empty app id with a nil error means
// the line carries no signal.
func ParseSignalLine(line string) (string, time.Time, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", time.Time{}, nil
	}
	fields := strings.Fields(line)
	switch len(fields) {
	case 1:
		return fields[0], time.Time{}, nil
	case 2:
		ms, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("bad timestamp %q: %w", fields[1], err)
		}
		return fields[0], time.UnixMilli(ms), nil
	default:
		return "", time.Time{}, fmt.Errorf("want \"<appId> [unix-millis]\", got %d fields", len(fields))
	}
}
