package relay

import (
	"github.com/trezcool/proctor/core"
)

// Router forwards negotiation messages to their target identity.
type Router struct {
	registry *Registry
	logger   core.Logger
}

func NewRouter(registry *Registry, logger core.Logger) *Router {
	return &Router{registry: registry, logger: logger}
}

// Route stamps msg with the sender identity and delivers it to msg.Target.
// Messages for an unknown target are dropped.
func (rt *Router) Route(sender string, msg Message) bool {
	if !msg.Type.IsNegotiation() {
		rt.logger.Warn("router: not a negotiation message", map[string]interface{}{"type": msg.Type, "sender": sender})
		return false
	}
	msg.Sender = sender

	conn, ok := rt.registry.Lookup(msg.Target)
	if !ok {
		rt.logger.Debug("router: target not connected", map[string]interface{}{"type": msg.Type, "target": msg.Target})
		return false
	}
	if !conn.Send(msg) {
		rt.logger.Warn("router: target is not keeping up", map[string]interface{}{"type": msg.Type, "target": msg.Target})
		return false
	}
	return true
}
