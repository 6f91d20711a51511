package detectorsvc

import (
	"context"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/relay"
)

// ConsoleDetector logs frames and never raises alerts. Used when no detector URL is configured.
type ConsoleDetector struct {
	logger core.Logger
}

var _ relay.Detector = (*ConsoleDetector)(nil)

func NewConsoleDetector(logger core.Logger) *ConsoleDetector {
	return &ConsoleDetector{logger: logger}
}

func (d *ConsoleDetector) Analyze(_ context.Context, frame []byte) ([]string, error) {
	d.logger.Debug("frame received", map[string]interface{}{"size": len(frame)})
	return nil, nil
}
