package config

import (
	"errors"
	"fmt"
	"time"
)

// Role 节点角色
type Role string

const (
	// RoleTransfer 中转节点：接收提交并经投递队列转发
	RoleTransfer Role = "transfer"
	// RoleMailbox 邮箱节点：最终一跳，存储并提供邮箱访问
	RoleMailbox Role = "mailbox"
	// RoleNameserver 名字目录区域节点
	RoleNameserver Role = "nameserver"
	// RoleMonitor UDP 统计收集节点
	RoleMonitor Role = "monitor"
)

// NodeConfig 节点身份配置
type NodeConfig struct {
	// Role 节点角色
	Role Role `json:"role"`

	// ComponentID 组件标识，邮箱节点以此选择 RSA 密钥对
	ComponentID string `json:"component_id"`

	// Domain 邮箱节点负责的域名
	Domain string `json:"domain,omitempty"`

	// Host 对外公布的主机名，用于目录登记、统计与退信地址
	Host string `json:"host"`

	StartTimeout Duration `json:"start_timeout"`
	StopTimeout  Duration `json:"stop_timeout"`
}

// DefaultNodeConfig 默认节点配置
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		Role:         RoleTransfer,
		Host:         "127.0.0.1",
		StartTimeout: Duration(30 * time.Second),
		StopTimeout:  Duration(10 * time.Second),
	}
}

// Validate 校验节点配置
func (c NodeConfig) Validate() error {
	switch c.Role {
	case RoleTransfer, RoleNameserver, RoleMonitor:
	case RoleMailbox:
		if c.Domain == "" {
			return errors.New("mailbox node requires a domain")
		}
		if c.ComponentID == "" {
			return errors.New("mailbox node requires a component id")
		}
	default:
		return fmt.Errorf("unknown node role %q", c.Role)
	}
	if c.Host == "" {
		return errors.New("node host must not be empty")
	}
	if c.StartTimeout <= 0 || c.StopTimeout <= 0 {
		return errors.New("start/stop timeout must be positive")
	}
	return nil
}
