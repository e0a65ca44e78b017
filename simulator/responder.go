package simulator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/phasebalance/core/mqtt"
	"github.com/kilianp07/phasebalance/infra/logger"
)

// ResponderConfig holds parameters for the simulated work-order system.
type ResponderConfig struct {
	Broker     string
	ClientID   string
	AckTopic   string
	AckLatency time.Duration
	DropRate   float64
}

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Responder subscribes to the plan topic and acknowledges every plan it
// receives according to its strategy.
type Responder struct {
	cli      mqttClient
	ackTopic string
	strategy AckStrategy
	log      logger.Logger

	mu       sync.Mutex
	received []coremqtt.PlanMessage
	wg       sync.WaitGroup
}

// NewResponder wraps an already connected client.
func NewResponder(cli mqttClient, ackTopic string, strategy AckStrategy, log logger.Logger) *Responder {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Responder{cli: cli, ackTopic: ackTopic, strategy: strategy, log: log}
}

// Connect dials the broker described by cfg and returns a Responder using a
// RandomAck strategy.
func Connect(cfg ResponderConfig) (*Responder, paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, token.Error()
	}
	strat := RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate}
	return NewResponder(cli, cfg.AckTopic, strat, logger.New("ack-simulator")), cli, nil
}

// Run subscribes to planTopic and blocks until ctx is done.
func (r *Responder) Run(ctx context.Context, planTopic string) error {
	token := r.cli.Subscribe(planTopic, 1, func(_ paho.Client, msg paho.Message) {
		r.handle(ctx, msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	r.log.Infof("listening for plans on %s", planTopic)
	<-ctx.Done()
	r.wg.Wait()
	return nil
}

func (r *Responder) handle(ctx context.Context, payload []byte) {
	var m coremqtt.PlanMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		r.log.Errorf("decode plan: %v", err)
		return
	}
	r.mu.Lock()
	r.received = append(r.received, m)
	r.mu.Unlock()
	r.log.Infof("plan %s for run %s: %d changes", m.MessageID, m.RunID, len(m.Plan.Changes))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.strategy.Ack(ctx, m.MessageID, r.sendAck)
	}()
}

func (r *Responder) sendAck(messageID string) {
	payload, err := json.Marshal(coremqtt.AckMessage{MessageID: messageID})
	if err != nil {
		r.log.Errorf("marshal ack: %v", err)
		return
	}
	token := r.cli.Publish(r.ackTopic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		r.log.Warnf("ack publish timeout for %s", messageID)
		return
	}
	if err := token.Error(); err != nil {
		r.log.Errorf("publish ack error for %s: %v", messageID, err)
	}
}

// Received returns the plans handled so far.
func (r *Responder) Received() []coremqtt.PlanMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]coremqtt.PlanMessage(nil), r.received...)
}
