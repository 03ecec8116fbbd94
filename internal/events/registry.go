package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// node
	"node.created":   {},
	"node.removed":   {},
	"node.muted":     {},
	"node.unmuted":   {},
	"node.evaluated": {},
	"node.failed":    {},

	// property
	"property.changed": {},
	"property.image":   {},

	// project
	"project.loaded":   {},
	"project.restored": {},

	// plugin
	"plugin.registered": {},

	// remote commands
	"command.received": {},
	"command.rejected": {},

	// system
	"system.startup":         {},
	"system.startup_restore": {},
	"system.shutdown":        {},
	"system.error":           {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
