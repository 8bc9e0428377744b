package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mailmesh"

// 结果标签取值
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics 节点指标
type Metrics struct {
	reg *prometheus.Registry

	submissions *prometheus.CounterVec
	accepted    prometheus.Counter
	deliveries  *prometheus.CounterVec
	bounces     *prometheus.CounterVec
	logins      *prometheus.CounterVec
	handshakes  *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	traffic     *prometheus.CounterVec
}

// New 创建指标及其独立的 Registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Sessions that reached send.",
		}, []string{"protocol"}),
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_accepted_total",
			Help:      "Messages handed to the acceptor successfully.",
		}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-domain delivery attempts by result.",
		}, []string{"result"}),
		bounces: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bounces_total",
			Help:      "Bounce messages by result.",
		}, []string{"result"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Mailbox logins by result.",
		}, []string{"result"}),
		handshakes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Secure channel handshakes by result.",
		}, []string{"result"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Messages waiting in the dispatch queue.",
		}),
		traffic: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_bytes_total",
			Help:      "Line protocol bytes by protocol and direction.",
		}, []string{"protocol", "direction"}),
	}
}

// Registry 返回节点的 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Submission 记录一次到达 send 的会话
func (m *Metrics) Submission(protocol string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(protocol).Inc()
}

// Accepted 记录一封被受理的邮件
func (m *Metrics) Accepted() {
	if m == nil {
		return
	}
	m.accepted.Inc()
}

// Delivery 记录一次按域名的投递结果
func (m *Metrics) Delivery(ok bool) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result(ok)).Inc()
}

// Bounce 记录一次退信结果
func (m *Metrics) Bounce(ok bool) {
	if m == nil {
		return
	}
	m.bounces.WithLabelValues(result(ok)).Inc()
}

// Login 记录一次登录结果
func (m *Metrics) Login(ok bool) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result(ok)).Inc()
}

// Handshake 记录一次握手结果
func (m *Metrics) Handshake(ok bool) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(result(ok)).Inc()
}

// SetQueueDepth 更新队列深度
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// Traffic 返回供 lineconn 使用的流量回调；m 为 nil 时返回 nil
func (m *Metrics) Traffic(protocol string) func(in bool, n int) {
	if m == nil {
		return nil
	}
	in := m.traffic.WithLabelValues(protocol, "in")
	out := m.traffic.WithLabelValues(protocol, "out")
	return func(inbound bool, n int) {
		if inbound {
			in.Add(float64(n))
		} else {
			out.Add(float64(n))
		}
	}
}

func result(ok bool) string {
	if ok {
		return ResultOK
	}
	return ResultFailed
}
