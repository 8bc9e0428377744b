package config

import (
	"errors"
	"time"
)

// DispatchConfig 投递队列与投递工作者配置
type DispatchConfig struct {
	// QueueCapacity 队列容量
	QueueCapacity int `json:"queue_capacity"`

	// EnqueueTimeout 队列满时 send 的最长等待，0 表示一直等待直到会话结束
	EnqueueTimeout Duration `json:"enqueue_timeout"`

	// DialTimeout 连接目标邮箱节点的时限
	DialTimeout Duration `json:"dial_timeout"`

	// ReplyTimeout 等待远端单行应答的时限
	ReplyTimeout Duration `json:"reply_timeout"`

	// ConnCacheSize 缓存的出站连接数
	ConnCacheSize int `json:"conn_cache_size"`

	// SocksProxy 出站 SOCKS5 代理地址，空表示直连
	SocksProxy string `json:"socks_proxy,omitempty"`

	// BounceSender 退信发件人的本地部分
	BounceSender string `json:"bounce_sender"`
}

// DefaultDispatchConfig 默认投递配置
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		QueueCapacity:  10,
		EnqueueTimeout: Duration(30 * time.Second),
		DialTimeout:    Duration(5 * time.Second),
		ReplyTimeout:   Duration(10 * time.Second),
		ConnCacheSize:  16,
		BounceSender:   "mailer",
	}
}

// Validate 校验投递配置
func (c DispatchConfig) Validate() error {
	if c.QueueCapacity <= 0 {
		return errors.New("queue capacity must be positive")
	}
	if c.EnqueueTimeout < 0 {
		return errors.New("enqueue timeout must not be negative")
	}
	if c.DialTimeout <= 0 || c.ReplyTimeout <= 0 {
		return errors.New("dial/reply timeout must be positive")
	}
	if c.ConnCacheSize <= 0 {
		return errors.New("connection cache size must be positive")
	}
	if c.BounceSender == "" {
		return errors.New("bounce sender must not be empty")
	}
	return nil
}
