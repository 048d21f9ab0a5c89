package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"aml-risk-engine/internal/application/service"
	"aml-risk-engine/internal/infrastructure/config"
	"aml-risk-engine/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher publishes completed risk analyses to a JetStream stream so
// downstream consumers (dashboards, case-management systems) can react to
// them without polling. It replaces the indexer's raw-transaction consumer
// with the risk engine's own producer role.
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	cfg    config.NATSConfig
	logger *logger.Logger
}

// NewNATSPublisher connects to NATS, ensures the configured stream exists,
// and returns a ready-to-use publisher.
func NewNATSPublisher(cfg config.NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	l := log.WithComponent("nats-publisher")

	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(cfg.ReconnectAttempts),
		nats.ReconnectWait(cfg.ReconnectDelay),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats publisher: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nats publisher: jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.StreamName); err != nil {
		_, err := js.AddStream(&nats.StreamConfig{
			Name:     cfg.StreamName,
			Subjects: []string{cfg.SubjectPrefix + ".>"},
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("nats publisher: add stream %s: %w", cfg.StreamName, err)
		}
	}

	return &NATSPublisher{conn: conn, js: js, cfg: cfg, logger: l}, nil
}

// analysisCompletedEvent is the name carried on every published message,
// distinguishing it on the wire from any other event type a future producer
// might add to the same stream.
const analysisCompletedEvent = "analysis.completed"

// riskScoreMessage is the wire shape published for a completed analysis.
type riskScoreMessage struct {
	Event       string    `json:"event"`
	Address     string    `json:"address"`
	Chain       string    `json:"chain"`
	Total       int       `json:"total"`
	Level       string    `json:"level"`
	PublishedAt time.Time `json:"published_at"`
	Tags        []string  `json:"tags"`
}

// Publish sends a completed AnalysisResult to the configured stream under
// subject "<prefix>.<chain>".
func (p *NATSPublisher) Publish(result *service.AnalysisResult, now time.Time) error {
	tags := make([]string, 0, len(result.Score.Tags))
	for _, t := range result.Score.Tags {
		tags = append(tags, t.Code)
	}

	payload, err := json.Marshal(riskScoreMessage{
		Event:       analysisCompletedEvent,
		Address:     result.Address,
		Chain:       result.Chain,
		Total:       result.Score.Total,
		Level:       string(result.Score.Level),
		PublishedAt: now,
		Tags:        tags,
	})
	if err != nil {
		return fmt.Errorf("nats publisher: marshal: %w", err)
	}

	subject := p.cfg.SubjectPrefix + "." + result.Chain
	if _, err := p.js.Publish(subject, payload); err != nil {
		return fmt.Errorf("nats publisher: publish to %s: %w", subject, err)
	}

	p.logger.Debug("published risk score", zap.String("subject", subject), zap.String("address", result.Address))
	return nil
}

// Close closes the underlying connection without draining it.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
