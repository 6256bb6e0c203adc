package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of all Gatekeeper topics.
const DefaultTopicPrefix = "gatekeeper"

// Topics provides builders for Gatekeeper MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.NewTopics("gatekeeper")
//	cmd := topics.RelayCommand("gate-north")
//	// Returns: "gatekeeper/relay/gate-north/command"
//
// The zero value uses DefaultTopicPrefix.
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder rooted at prefix. Trailing slashes are
// trimmed; an empty prefix selects DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.TrimRight(prefix, "/")}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// RelayCommand returns the topic relay hardware listens on for a device.
//
// Example: gatekeeper/relay/gate-north/command
func (t Topics) RelayCommand(deviceID string) string {
	return fmt.Sprintf("%s/relay/%s/command", t.Prefix(), deviceID)
}

// CoreDeviceState returns the retained relay state topic published by Core.
//
// Example: gatekeeper/core/device/gate-north/state
func (t Topics) CoreDeviceState(deviceID string) string {
	return fmt.Sprintf("%s/core/device/%s/state", t.Prefix(), deviceID)
}

// DirectorySync is the topic on which an external directory can request an
// immediate reconciliation.
//
// Example: gatekeeper/directory/sync
func (t Topics) DirectorySync() string {
	return fmt.Sprintf("%s/directory/sync", t.Prefix())
}

// SystemStatus returns the system status topic (LWT target).
//
// Example: gatekeeper/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix())
}
