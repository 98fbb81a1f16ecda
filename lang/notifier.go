package lang

import (
	"github.com/google/uuid"

	"github.com/lixenwraith/mob-launch/host"
)

// Notifier delivers catalog messages to online actors
type Notifier struct {
	Dir     host.Directory
	Catalog *Catalog
}

// Notify sends the message to actor if it is online; offline actors are skipped
func (n *Notifier) Notify(actor uuid.UUID, key string, args ...any) {
	if n == nil || n.Dir == nil {
		return
	}
	a, ok := n.Dir.Actor(actor)
	if !ok {
		return
	}
	a.SendMessage(n.Catalog.Message(key, args...))
}
