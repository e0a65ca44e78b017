package metrics

import "github.com/kilianp07/phasebalance/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// ListenAddr exposes /metrics over HTTP when set, e.g. ":9100".
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}
