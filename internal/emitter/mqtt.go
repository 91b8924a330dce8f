// Package emitter publishes scan progress and results to an MQTT broker.
package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"vidmatch/internal/config"
	"vidmatch/internal/progress"
	"vidmatch/internal/scan"
)

// Client is the subset of mqtt.Client the emitter uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// ProgressEvent is published on <prefix>/scans/<id>/progress.
type ProgressEvent struct {
	ScanID   string  `json:"scan_id"`
	Fraction float64 `json:"fraction"`
}

// ResultEvent is published on <prefix>/scans/<id>/result.
type ResultEvent struct {
	ScanID    string    `json:"scan_id"`
	Video     string    `json:"video"`
	Threshold float64   `json:"threshold"`
	Offsets   []float64 `json:"offsets"`
	ElapsedMS int64     `json:"elapsed_ms"`
}

// MQTTEmitter publishes scan events to an MQTT broker
type MQTTEmitter struct {
	client Client
	prefix string
	qos    byte
	logger *slog.Logger

	mu        sync.Mutex
	published uint64
	errors    uint64
}

// New wraps an already connected client.
func New(client Client, cfg config.MQTTConfig, logger *slog.Logger) *MQTTEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTEmitter{
		client: client,
		prefix: strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:    cfg.QoS,
		logger: logger,
	}
}

// Connect establishes connection to the MQTT broker
func Connect(ctx context.Context, cfg config.MQTTConfig, logger *slog.Logger) (*MQTTEmitter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "vidmatch"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqtt connection established", "broker", broker, "client_id", clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", broker)
	}

	client := mqtt.NewClient(opts)
	logger.Info("connecting to mqtt broker", "broker", broker)

	if err := wait(ctx, client.Connect(), 5*time.Second); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return New(client, cfg, logger), nil
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timeout after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *MQTTEmitter) topic(id uuid.UUID, kind string) string {
	return fmt.Sprintf("%s/scans/%s/%s", e.prefix, id, kind)
}

// Progress returns an observer publishing the scan's progress. Only whole
// percent steps are sent; publishes do not wait for the broker.
func (e *MQTTEmitter) Progress(id uuid.UUID) progress.Observer {
	topic := e.topic(id, "progress")
	last := -1
	return func(f float64) {
		pct := int(math.Floor(f * 100))
		if pct <= last {
			return
		}
		last = pct

		payload, err := json.Marshal(ProgressEvent{ScanID: id.String(), Fraction: f})
		if err != nil {
			return
		}
		e.client.Publish(topic, e.qos, false, payload)
		e.count(nil)
	}
}

// PublishResult publishes the final offsets of a scan and waits for the
// broker to acknowledge it.
func (e *MQTTEmitter) PublishResult(ctx context.Context, res *scan.Result) error {
	payload, err := json.Marshal(ResultEvent{
		ScanID:    res.ID.String(),
		Video:     res.Video,
		Threshold: res.Threshold,
		Offsets:   res.Offsets(),
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
	if err != nil {
		e.count(err)
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	topic := e.topic(res.ID, "result")
	if err := wait(ctx, e.client.Publish(topic, e.qos, true, payload), 2*time.Second); err != nil {
		e.count(err)
		return fmt.Errorf("publish failed: %w", err)
	}
	e.count(nil)

	e.logger.Debug("result published", "topic", topic, "qos", e.qos, "size", len(payload))
	return nil
}

func (e *MQTTEmitter) count(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.errors++
		return
	}
	e.published++
}

// Stats returns the number of messages published and failed so far.
func (e *MQTTEmitter) Stats() (published, errors uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.published, e.errors
}

// Close disconnects from the broker
func (e *MQTTEmitter) Close() {
	if e.client != nil {
		e.client.Disconnect(250) // 250ms grace period
		e.logger.Info("mqtt disconnected")
	}
}
