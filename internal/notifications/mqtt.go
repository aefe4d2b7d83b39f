package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"rollcall/internal/absentee"
	"rollcall/internal/config"
	"rollcall/internal/store"
)

const mqttPublishTimeout = 5 * time.Second

// mqttService publishes JSON event payloads for machine consumers such as
// display boards or downstream automations. The broker connection is lazy so
// a daemon can start before the broker does.
type mqttService struct {
	broker   string
	topic    string
	clientID string

	mu     sync.Mutex
	client mqtt.Client
}

func newMQTTService(cfg *config.Config) *mqttService {
	clientID := strings.TrimSpace(cfg.Notifications.MQTTClientID)
	if clientID == "" {
		clientID = "rollcall-" + uuid.NewString()[:8]
	}
	topic := strings.TrimSpace(cfg.Notifications.MQTTTopic)
	if topic == "" {
		topic = "rollcall/events"
	}
	return &mqttService{
		broker:   cfg.Notifications.MQTTBroker,
		topic:    topic,
		clientID: clientID,
	}
}

type mqttEvent struct {
	Event    string    `json:"event"`
	PersonID string    `json:"person_id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Category string    `json:"category,omitempty"`
	At       time.Time `json:"at,omitempty"`
	Day      string    `json:"day,omitempty"`
	Absent   []string  `json:"absent,omitempty"`
	Error    string    `json:"error,omitempty"`
	Context  string    `json:"context,omitempty"`
}

func (m *mqttService) NotifyRecognition(ctx context.Context, person *store.Person, at time.Time) error {
	if person == nil {
		return nil
	}
	return m.publish(ctx, mqttEvent{
		Event:    "recognition",
		PersonID: person.ID,
		Name:     person.Name,
		Category: string(person.Category),
		At:       at,
	})
}

func (m *mqttService) NotifyAbsentees(ctx context.Context, report absentee.Report) error {
	ids := make([]string, 0, report.Total())
	for _, p := range report.Students {
		ids = append(ids, p.ID)
	}
	for _, p := range report.Faculty {
		ids = append(ids, p.ID)
	}
	return m.publish(ctx, mqttEvent{
		Event:  "absentees",
		Day:    report.Day.Format("2006-01-02"),
		Absent: ids,
	})
}

func (m *mqttService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	event := mqttEvent{Event: "error", Context: contextLabel}
	if err != nil {
		event.Error = err.Error()
	}
	return m.publish(ctx, event)
}

func (m *mqttService) TestNotification(ctx context.Context) error {
	return m.publish(ctx, mqttEvent{Event: "test", At: time.Now().UTC()})
}

func (m *mqttService) publish(ctx context.Context, event mqttEvent) error {
	client, err := m.connect()
	if err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode mqtt event: %w", err)
	}

	token := client.Publish(m.topic, 0, false, body)
	timeout := mqttPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", m.topic, err)
	}
	return nil
}

func (m *mqttService) connect() (mqtt.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil && m.client.IsConnectionOpen() {
		return m.client, nil
	}

	opts := mqtt.NewClientOptions().AddBroker(m.broker).SetClientID(m.clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", m.broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", m.broker, err)
	}
	m.client = client
	return client, nil
}

// Close disconnects from the broker if a connection was established.
func (m *mqttService) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Disconnect(250)
		m.client = nil
	}
}
