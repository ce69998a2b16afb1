package engine

import (
	"log/slog"

	"github.com/dop251/goja_nodejs/console"
)

// printer routes console.log/warn/error calls from collected test files
// through the host logger, the same way the embedding program's own
// console output is routed.
type printer struct {
	logger *slog.Logger
}

func (p *printer) Error(message string) {
	p.logger.Error("console", "message", message)
}

func (p *printer) Log(message string) {
	p.logger.Info("console", "message", message)
}

func (p *printer) Warn(message string) {
	p.logger.Warn("console", "message", message)
}

var _ console.Printer = (*printer)(nil)
