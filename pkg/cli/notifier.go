package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
)

var levelColors = map[types.NotificationLevel]*color.Color{
	types.NotificationInfo:    color.New(color.FgCyan),
	types.NotificationSuccess: color.New(color.FgGreen),
	types.NotificationWarning: color.New(color.FgYellow),
	types.NotificationError:   color.New(color.FgRed, color.Bold),
}

// terminalNotifier prints notifications as they are raised, one per line
type terminalNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

var _ interfaces.Notifier = (*terminalNotifier)(nil)

func newTerminalNotifier(w io.Writer) *terminalNotifier {
	return &terminalNotifier{w: w}
}

func (n *terminalNotifier) Notify(_ context.Context, item model.Notification) {
	c, ok := levelColors[item.Level]
	if !ok {
		c = levelColors[types.NotificationInfo]
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = c.Fprintf(n.w, "[%s]", strings.ToUpper(item.Level.String()))
	_, _ = fmt.Fprintln(n.w, " "+item.Message)
}
