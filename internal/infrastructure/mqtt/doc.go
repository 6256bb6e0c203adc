// Package mqtt provides MQTT client connectivity for Gatekeeper Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// Relay controllers listen on {prefix}/relay/{deviceId}/command. Core
// publishes one command per genuine relay transition and a retained state
// on {prefix}/core/device/{deviceId}/state.
//
//	Gatekeeper Core → MQTT Broker → Relay controllers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.NewTopics(cfg.Relay.TopicPrefix))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.Topics().RelayCommand("gate-north")
//	client.Publish(topic, []byte(`{"command":"activate"}`), 1, false)
package mqtt
