// Package notifications delivers attendance events via pluggable notifiers.
//
// The ntfy implementation pushes human-readable messages to the topic
// configured in config.toml; the MQTT implementation publishes JSON payloads
// for machine consumers. Both degrade to a no-op when unconfigured, and all
// callers depend only on the Service interface.
package notifications
