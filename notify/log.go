package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	goGrant "github.com/MrEthical07/goGrant"
	"go.uber.org/zap"
)

// Log prints each message to Out and records its metadata on the logger.
// Message bodies carry reset links, so they go to Out and never to the log.
type Log struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

// NewLog returns a Log notifier. A nil out selects os.Stdout and a nil
// logger selects zap.NewNop.
func NewLog(out io.Writer, logger *zap.Logger) *Log {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{out: out, logger: logger.Named("notify")}
}

func (l *Log) Send(_ context.Context, to, subject, body string) error {
	l.mu.Lock()
	_, err := fmt.Fprintf(l.out, "To: %s\nSubject: %s\n\n%s\n", to, subject, body)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	l.logger.Info("mail written", zap.String("to", to), zap.String("subject", subject))
	return nil
}

var _ goGrant.Notifier = (*Log)(nil)
