package singleinstance

import (
	"fmt"

	"answer-overlay/src/config"
)

// Ports is the inclusive loopback range. The resident binds Start; clients
// scan Start..End for one that answers PING.
type Ports struct {
	Start int
	End   int
}

// PortsFrom takes the range from cfg, or the defaults when cfg is nil.
func PortsFrom(cfg *config.Config) Ports {
	if cfg == nil || cfg.PortStart == 0 {
		return Ports{Start: config.DefaultPortStart, End: config.DefaultPortEnd}
	}
	return Ports{Start: cfg.PortStart, End: cfg.PortEnd}
}

func (p Ports) String() string { return fmt.Sprintf("%d-%d", p.Start, p.End) }
