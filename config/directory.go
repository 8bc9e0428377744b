package config

import (
	"errors"
	"strings"
	"time"
)

// DirectoryConfig 名字目录配置
//
// 中转与邮箱节点只使用 RootAddr；名字服务节点额外监听 ListenAddr，
// Zone 为空表示根区域，否则启动时向根区域登记自己。
type DirectoryConfig struct {
	// RootAddr 根区域的 RPC 地址
	RootAddr string `json:"root_addr"`

	// ListenAddr 名字服务节点的 RPC 监听地址
	ListenAddr string `json:"listen_addr"`

	// Zone 名字服务节点负责的区域，如 "planet" 或 "earth.planet"
	Zone string `json:"zone,omitempty"`

	// CallTimeout 单次 RPC 调用时限
	CallTimeout Duration `json:"call_timeout"`

	// KeepAliveInterval 多路复用会话保活间隔
	KeepAliveInterval Duration `json:"keepalive_interval"`
}

// DefaultDirectoryConfig 默认目录配置
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		ListenAddr:        "127.0.0.1:0",
		CallTimeout:       Duration(10 * time.Second),
		KeepAliveInterval: Duration(30 * time.Second),
	}
}

// Validate 校验目录配置
func (c DirectoryConfig) Validate() error {
	if c.CallTimeout <= 0 {
		return errors.New("directory call timeout must be positive")
	}
	if c.KeepAliveInterval <= 0 {
		return errors.New("directory keepalive interval must be positive")
	}
	if strings.HasPrefix(c.Zone, ".") || strings.HasSuffix(c.Zone, ".") {
		return errors.New("directory zone must not start or end with '.'")
	}
	return nil
}
