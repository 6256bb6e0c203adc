package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/mqtt"
)

// Publisher is the subset of the MQTT client used by MQTTActuator.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTActuator publishes relay signals to the broker.
//
// Each signal produces a command message on {prefix}/relay/{deviceId}/command
// and, when PublishState is set, a retained state message on
// {prefix}/core/device/{deviceId}/state.
type MQTTActuator struct {
	publisher    Publisher
	topics       mqtt.Topics
	qos          byte
	publishState bool
}

// MQTTActuatorOptions configures an MQTTActuator.
type MQTTActuatorOptions struct {
	Topics       mqtt.Topics
	QoS          byte
	PublishState bool
}

// NewMQTTActuator returns an actuator that publishes through p.
func NewMQTTActuator(p Publisher, opts MQTTActuatorOptions) *MQTTActuator {
	return &MQTTActuator{
		publisher:    p,
		topics:       opts.Topics,
		qos:          opts.QoS,
		publishState: opts.PublishState,
	}
}

// commandMessage is the wire format relay controllers consume.
type commandMessage struct {
	Command      Command `json:"command"`
	Target       State   `json:"target"`
	AuditEntryID string  `json:"audit_entry_id"`
	Timestamp    string  `json:"timestamp"`
}

// stateMessage is the retained state published after each transition.
type stateMessage struct {
	State     State  `json:"state"`
	Timestamp string `json:"timestamp"`
}

// Actuate publishes the command and, if configured, the new retained state.
// A failed state publish is reported but the command has already gone out.
func (a *MQTTActuator) Actuate(ctx context.Context, sig Signal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrActuationFailed, err)
	}

	ts := sig.At.UTC().Format("2006-01-02T15:04:05.000Z07:00")

	payload, err := json.Marshal(commandMessage{
		Command:      sig.Command,
		Target:       sig.Target,
		AuditEntryID: sig.AuditEntryID,
		Timestamp:    ts,
	})
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrActuationFailed, err)
	}

	if err := a.publisher.Publish(a.topics.RelayCommand(sig.DeviceID), payload, a.qos, false); err != nil {
		return fmt.Errorf("%w: %w", ErrActuationFailed, err)
	}

	if !a.publishState {
		return nil
	}

	state, err := json.Marshal(stateMessage{State: sig.Target, Timestamp: ts})
	if err != nil {
		return fmt.Errorf("%w: encoding state: %w", ErrActuationFailed, err)
	}
	if err := a.publisher.Publish(a.topics.CoreDeviceState(sig.DeviceID), state, a.qos, true); err != nil {
		return fmt.Errorf("%w: publishing state: %w", ErrActuationFailed, err)
	}

	return nil
}
