package config

// MonitoringConfig UDP 统计配置
//
// 中转节点把 Addr 作为统计数据报的目的地（空表示不发送）；
// 监控节点在 Addr 上监听。
type MonitoringConfig struct {
	Addr string `json:"addr,omitempty"`
}

// DefaultMonitoringConfig 默认统计配置
func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{}
}

// MetricsConfig prometheus 指标配置
type MetricsConfig struct {
	// ListenAddr HTTP 暴露 /metrics 的地址，空表示不暴露
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultMetricsConfig 默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{}
}
