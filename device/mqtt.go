package device

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"washcore/config"
)

// MQTTController starts cycles over a broker: publish a start command on
// the machine's command topic, then wait for the matching ack. No ack
// within the timeout counts as a failed start.
type MQTTController struct {
	client     mqtt.Client
	ackTimeout time.Duration
}

func NewMQTTController(cfg *config.DeviceMQTTConfig) (*MQTTController, error) {
	broker := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTController{client: client, ackTimeout: cfg.AckTimeout}, nil
}

type startCommand struct {
	Command   string `json:"command"`
	RequestID string `json:"request_id"`
}

type startAck struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
}

func commandTopic(machineID string) string {
	return fmt.Sprintf("washcore/machines/%s/cmd", machineID)
}

func ackTopic(machineID string) string {
	return fmt.Sprintf("washcore/machines/%s/ack", machineID)
}

func (c *MQTTController) StartCycle(ctx context.Context, machineID string) error {
	reqID := uuid.NewString()
	ackCh := make(chan error, 1)

	topic := ackTopic(machineID)
	sub := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var ack startAck
		if err := json.Unmarshal(msg.Payload(), &ack); err != nil {
			return
		}
		if ack.RequestID != reqID {
			return
		}
		var result error
		if !ack.OK {
			result = fmt.Errorf("machine %s rejected start: %s", machineID, ack.Error)
		}
		// QoS 1 can redeliver the ack; never block the broker callback.
		select {
		case ackCh <- result:
		default:
		}
	})
	sub.Wait()
	if err := sub.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	defer c.client.Unsubscribe(topic)

	payload, err := json.Marshal(&startCommand{Command: "start_cycle", RequestID: reqID})
	if err != nil {
		return fmt.Errorf("mqtt marshal command: %w", err)
	}
	pub := c.client.Publish(commandTopic(machineID), 1, false, payload)
	pub.Wait()
	if err := pub.Error(); err != nil {
		return fmt.Errorf("mqtt publish start to %s: %w", machineID, err)
	}

	select {
	case err := <-ackCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("start cycle %s: %w", machineID, ctx.Err())
	case <-time.After(c.ackTimeout):
		return fmt.Errorf("machine %s: no ack within %s", machineID, c.ackTimeout)
	}
}

func (c *MQTTController) Close() {
	c.client.Disconnect(250)
}
