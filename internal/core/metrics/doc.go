// Package metrics 提供节点级 prometheus 指标
//
// 每个节点持有独立的 Registry，同一进程内可以运行多个节点。
// 所有记录方法对 nil *Metrics 安全，未装配指标的组件可直接调用。
//
//	m := metrics.New()
//	m.Submission("dmtp")
//	m.Delivery(true)
//	conn := lineconn.New(c, lineconn.Options{Traffic: m.Traffic("dmtp")})
package metrics
