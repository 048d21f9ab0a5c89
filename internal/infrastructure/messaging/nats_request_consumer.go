package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aml-risk-engine/internal/infrastructure/config"
	"aml-risk-engine/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// AnalysisRequest is the wire shape of an inbound request to score a single
// address on a chain, published by upstream callers onto
// "<subject_prefix>.requests".
type AnalysisRequest struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
}

// NATSRequestConsumer is the analysis engine's inbound half of the teacher's
// nats_consumer.go: JetStream pull-subscribe with a core-NATS queue-group
// fallback, the same reconnect/disconnect wiring, but decoding
// AnalysisRequest instead of entity.Transaction.
type NATSRequestConsumer struct {
	conn      *nats.Conn
	js        nats.JetStreamContext
	sub       *nats.Subscription
	cfg       config.NATSConfig
	logger    *logger.Logger
	reqChan   chan *AnalysisRequest
	isRunning bool
}

// NewNATSRequestConsumer creates a new inbound analysis-request consumer.
func NewNATSRequestConsumer(cfg config.NATSConfig, log *logger.Logger) *NATSRequestConsumer {
	return &NATSRequestConsumer{
		cfg:     cfg,
		logger:  log.WithComponent("nats-request-consumer"),
		reqChan: make(chan *AnalysisRequest, cfg.MaxPendingMessages),
	}
}

// Connect connects to NATS and establishes the request subscription.
func (n *NATSRequestConsumer) Connect(ctx context.Context) error {
	if !n.cfg.Enabled {
		n.logger.Info("nats is disabled, skipping connection")
		return nil
	}

	n.logger.Info("connecting to nats server", zap.String("url", n.cfg.URL))

	opts := []nats.Option{
		nats.Name("aml-risk-engine"),
		nats.Timeout(n.cfg.ConnectTimeout),
		nats.ReconnectWait(n.cfg.ReconnectDelay),
		nats.MaxReconnects(n.cfg.ReconnectAttempts),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				n.logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			n.logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			n.logger.Info("nats connection closed")
		}),
	}

	conn, err := nats.Connect(n.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("nats request consumer: connect: %w", err)
	}
	n.conn = conn

	js, err := conn.JetStream()
	if err != nil {
		n.logger.Warn("jetstream not available, using core nats", zap.Error(err))
		return n.setupCoreSubscription()
	}
	n.js = js
	return n.setupJetStreamSubscription()
}

func (n *NATSRequestConsumer) subject() string {
	return n.cfg.SubjectPrefix + ".requests"
}

func (n *NATSRequestConsumer) setupJetStreamSubscription() error {
	subject := n.subject()
	sub, err := n.js.PullSubscribe(subject, n.cfg.ConsumerGroup, nats.Bind(n.cfg.StreamName, n.cfg.ConsumerGroup))
	if err != nil {
		n.logger.Warn("failed to bind to existing consumer, falling back to core nats", zap.Error(err))
		return n.setupCoreSubscription()
	}

	n.sub = sub
	n.isRunning = true
	go n.pullJetStreamMessages()

	n.logger.Info("subscribed to jetstream analysis requests",
		zap.String("subject", subject), zap.String("consumer", n.cfg.ConsumerGroup))
	return nil
}

func (n *NATSRequestConsumer) pullJetStreamMessages() {
	for n.isRunning {
		msgs, err := n.sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil {
			if err == nats.ErrTimeout {
				continue
			}
			n.logger.Error("failed to fetch analysis requests", zap.Error(err))
			continue
		}
		for _, msg := range msgs {
			n.handleMessage(msg)
		}
	}
}

func (n *NATSRequestConsumer) setupCoreSubscription() error {
	subject := n.subject()
	sub, err := n.conn.QueueSubscribe(subject, n.cfg.ConsumerGroup, func(msg *nats.Msg) {
		n.handleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("nats request consumer: subscribe: %w", err)
	}

	n.sub = sub
	n.isRunning = true
	n.logger.Info("subscribed to core nats analysis requests",
		zap.String("subject", subject), zap.String("queue_group", n.cfg.ConsumerGroup))
	return nil
}

func (n *NATSRequestConsumer) handleMessage(msg *nats.Msg) {
	var req AnalysisRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		n.logger.Error("failed to unmarshal analysis request", zap.Error(err))
		if msg.Reply != "" {
			msg.Respond([]byte("ERROR: malformed request"))
		}
		return
	}

	select {
	case n.reqChan <- &req:
		if msg.Reply != "" {
			msg.Ack()
		}
	default:
		n.logger.Warn("request channel is full, dropping analysis request", zap.String("address", req.Address))
		if msg.Reply != "" {
			msg.Nak()
		}
	}
}

// GetRequestChannel returns the channel analysis requests are delivered on.
func (n *NATSRequestConsumer) GetRequestChannel() <-chan *AnalysisRequest {
	return n.reqChan
}

// Disconnect tears down the subscription and connection.
func (n *NATSRequestConsumer) Disconnect() error {
	n.isRunning = false
	if n.sub != nil {
		n.sub.Unsubscribe()
		n.sub = nil
	}
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	close(n.reqChan)
	n.logger.Info("disconnected from nats")
	return nil
}
