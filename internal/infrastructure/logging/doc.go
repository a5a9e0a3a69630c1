// Package logging sets up the structured logger shared by every part of
// the firecracker bridge.
//
// Entries carry service and version fields. Subsystems add a component
// field with Logger.Component so a single stream can be filtered per part:
//
//	log := logging.New(cfg.Logging, version)
//	apiLog := log.Component("api")
//	apiLog.Info("listening", "addr", addr)
//
// The logging section of config.yaml selects level (debug, info, warn,
// error), format (json, text) and output (stdout, stderr, discard).
//
// Secrets such as JWT keys, MQTT passwords and InfluxDB tokens are never
// logged.
package logging
