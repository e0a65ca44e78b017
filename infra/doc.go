// Package infra holds the technical adapters of phasebalance: the zerolog
// logger, the Prometheus and InfluxDB metrics sinks and the MQTT plan
// publisher. They implement interfaces declared under core and are wired
// together by the app package.
package infra
