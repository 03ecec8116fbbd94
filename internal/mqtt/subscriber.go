package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gimelstudio/gsnodes/internal/events"
)

// Command names accepted in a command payload.
const (
	CommandMute     = "mute"
	CommandUnmute   = "unmute"
	CommandSet      = "set"
	CommandEvaluate = "evaluate"
)

// Command is the JSON payload published to a node's command topic.
type Command struct {
	Command  string      `json:"command"`
	Property string      `json:"property,omitempty"`
	Value    interface{} `json:"value,omitempty"`
}

// CommandTarget applies commands to node instances.
type CommandTarget interface {
	SetMuted(id string, muted bool) error
	SetProperty(id, key string, value interface{}) error
	Evaluate(id string) error
}

type subscribeClient interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// CommandSubscriber routes messages on a topic filter such as
// "gimelstudio/nodes/+/commands" to a CommandTarget. The "+" segment
// names the node instance.
type CommandSubscriber struct {
	mu         sync.Mutex
	client     subscribeClient
	target     CommandTarget
	topic      string
	subscribed bool
}

// NewCommandSubscriber creates a subscriber for topic.
func NewCommandSubscriber(client subscribeClient, target CommandTarget, topic string) *CommandSubscriber {
	return &CommandSubscriber{
		client: client,
		target: target,
		topic:  topic,
	}
}

// Topic returns the subscribed topic filter.
func (s *CommandSubscriber) Topic() string {
	return s.topic
}

// Subscribe registers the handler. Calling it again is a no-op until
// ClearSubscription is called.
func (s *CommandSubscriber) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribed {
		return nil
	}
	if err := s.client.Subscribe(s.topic, s.handle); err != nil {
		return err
	}
	s.subscribed = true
	return nil
}

// IsSubscribed returns true if the handler is registered.
func (s *CommandSubscriber) IsSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

// ClearSubscription forgets the subscription so a reconnect can subscribe again.
// Client calls it from its on-connect handler.
func (s *CommandSubscriber) ClearSubscription() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = false
}

func (s *CommandSubscriber) handle(_ paho.Client, msg paho.Message) {
	nodeID, err := nodeIDFromTopic(s.topic, msg.Topic())
	if err == nil {
		var cmd Command
		if err = json.Unmarshal(msg.Payload(), &cmd); err != nil {
			err = fmt.Errorf("invalid command payload: %w", err)
		} else {
			err = s.apply(nodeID, cmd)
		}
		if err == nil {
			events.Emit("info", "command.received", "", map[string]interface{}{
				"node_id": nodeID,
				"command": cmd.Command,
				"topic":   msg.Topic(),
			})
			return
		}
	}

	events.Emit("warn", "command.rejected", "", map[string]interface{}{
		"topic": msg.Topic(),
		"error": err.Error(),
	})
}

func (s *CommandSubscriber) apply(nodeID string, cmd Command) error {
	switch cmd.Command {
	case CommandMute:
		return s.target.SetMuted(nodeID, true)
	case CommandUnmute:
		return s.target.SetMuted(nodeID, false)
	case CommandSet:
		if cmd.Property == "" {
			return fmt.Errorf("set command requires a property")
		}
		return s.target.SetProperty(nodeID, cmd.Property, cmd.Value)
	case CommandEvaluate:
		return s.target.Evaluate(nodeID)
	default:
		return fmt.Errorf("unknown command: %q", cmd.Command)
	}
}

// nodeIDFromTopic returns the topic segment matching the single "+" in filter.
func nodeIDFromTopic(filter, topic string) (string, error) {
	fparts := strings.Split(filter, "/")
	tparts := strings.Split(topic, "/")
	if len(fparts) != len(tparts) {
		return "", fmt.Errorf("topic %s does not match %s", topic, filter)
	}

	nodeID := ""
	for i, f := range fparts {
		switch {
		case f == "+":
			nodeID = tparts[i]
		case f != tparts[i]:
			return "", fmt.Errorf("topic %s does not match %s", topic, filter)
		}
	}
	if nodeID == "" {
		return "", fmt.Errorf("topic %s names no node", topic)
	}
	return nodeID, nil
}
