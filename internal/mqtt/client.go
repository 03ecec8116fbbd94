package mqtt

import (
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Client wraps the Paho MQTT client used for remote node commands.
type Client struct {
	client    paho.Client
	brokerURL string
	mu        sync.Mutex

	subsMu sync.Mutex
	subs   []*CommandSubscriber
}

// NewClient creates a new MQTT client for brokerURL but does not connect.
// Every successful connect, including paho's automatic reconnects,
// resubscribes the subscribers registered with AddSubscriber.
func NewClient(brokerURL, clientID, username, password string) *Client {
	c := &Client{brokerURL: brokerURL}

	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection to %s lost: %v", brokerURL, err)
		})

	c.client = paho.NewClient(opts)
	return c
}

// AddSubscriber registers s to be subscribed on every connect.
func (c *Client) AddSubscriber(s *CommandSubscriber) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs = append(c.subs, s)
}

// onConnect runs on paho's callback goroutine. Subscribing waits on a
// token, so it is done on separate goroutines.
func (c *Client) onConnect(_ paho.Client) {
	c.subsMu.Lock()
	subs := append([]*CommandSubscriber{}, c.subs...)
	c.subsMu.Unlock()

	for _, s := range subs {
		go resubscribe(s)
	}
}

// resubscribe subscribes s again; a clean-session broker forgets
// subscriptions across reconnects.
func resubscribe(s *CommandSubscriber) {
	s.ClearSubscription()
	if err := s.Subscribe(); err != nil {
		log.Printf("mqtt: failed to resubscribe to %s: %v", s.Topic(), err)
		return
	}
	log.Printf("mqtt: subscribed to %s", s.Topic())
}

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return &ConnectTimeoutError{}
	}
	if err := token.Error(); err != nil {
		return err
	}
	return nil
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(10 * time.Second) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return "mqtt subscribe timeout: " + e.Topic
}

// Start registers s, connects and subscribes it to its topic, logging
// failures instead of returning them. Returns true if the subscription is
// live. When the broker is unreachable paho keeps retrying, and s is
// subscribed once the connection comes up.
func (c *Client) Start(s *CommandSubscriber) bool {
	c.AddSubscriber(s)

	if err := c.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s, retrying in background: %v", c.brokerURL, err)
		return false
	}

	if err := s.Subscribe(); err != nil {
		log.Printf("mqtt: failed to subscribe to %s: %v", s.Topic(), err)
		return false
	}

	log.Printf("mqtt: connected and subscribed to %s", s.Topic())
	return true
}
