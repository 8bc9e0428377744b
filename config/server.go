package config

import (
	"errors"
	"time"
)

// ServerConfig 行协议服务端的公共配置
type ServerConfig struct {
	// ListenAddr TCP 监听地址，端口 0 表示随机端口
	ListenAddr string `json:"listen_addr"`

	// ReadTimeout 等待下一行请求的最长时间
	ReadTimeout Duration `json:"read_timeout"`

	// WriteTimeout 单行响应的写超时
	WriteTimeout Duration `json:"write_timeout"`

	// MaxLineLength 单行最大字节数（不含换行）
	MaxLineLength int `json:"max_line_length"`

	// AcceptRate 每秒接受连接数上限，0 表示不限
	AcceptRate  float64 `json:"accept_rate"`
	AcceptBurst int     `json:"accept_burst"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:    "127.0.0.1:0",
		ReadTimeout:   Duration(5 * time.Minute),
		WriteTimeout:  Duration(30 * time.Second),
		MaxLineLength: 64 * 1024,
		AcceptBurst:   32,
	}
}

// Validate 校验服务端配置
func (c ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.New("read/write timeout must be positive")
	}
	if c.MaxLineLength < 64 {
		return errors.New("max line length must be at least 64")
	}
	if c.AcceptRate < 0 {
		return errors.New("accept rate must not be negative")
	}
	if c.AcceptRate > 0 && c.AcceptBurst <= 0 {
		return errors.New("accept burst must be positive when accept rate is set")
	}
	return nil
}

// SubmissionConfig 邮件提交端口配置
type SubmissionConfig struct {
	ServerConfig
}

// DefaultSubmissionConfig 默认提交端口配置
func DefaultSubmissionConfig() SubmissionConfig {
	return SubmissionConfig{ServerConfig: defaultServerConfig()}
}

// RetrievalConfig 邮箱访问端口配置
type RetrievalConfig struct {
	ServerConfig

	// HandshakeTimeout 从 startsecure 到握手确认的总时限
	HandshakeTimeout Duration `json:"handshake_timeout"`
}

// DefaultRetrievalConfig 默认邮箱访问端口配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		ServerConfig:     defaultServerConfig(),
		HandshakeTimeout: Duration(15 * time.Second),
	}
}

// Validate 校验邮箱访问端口配置
func (c RetrievalConfig) Validate() error {
	if err := c.ServerConfig.Validate(); err != nil {
		return err
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake timeout must be positive")
	}
	return nil
}
