package config

import (
	"errors"
	"fmt"
)

// Validate 按角色校验配置
//
// 每个子配置先做自身校验，再检查角色所需的跨组件约束。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if err := c.Directory.Validate(); err != nil {
		return fmt.Errorf("directory: %w", err)
	}

	switch c.Node.Role {
	case RoleTransfer:
		if err := c.Submission.Validate(); err != nil {
			return fmt.Errorf("submission: %w", err)
		}
		if err := c.Dispatch.Validate(); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	case RoleMailbox:
		if err := c.Submission.Validate(); err != nil {
			return fmt.Errorf("submission: %w", err)
		}
		if err := c.Retrieval.Validate(); err != nil {
			return fmt.Errorf("retrieval: %w", err)
		}
	case RoleNameserver:
		if c.Directory.ListenAddr == "" {
			return errors.New("directory: nameserver requires a listen address")
		}
		if c.Directory.Zone != "" && c.Directory.RootAddr == "" {
			return errors.New("directory: non-root zone requires the root address")
		}
	case RoleMonitor:
		if c.Monitoring.Addr == "" {
			return errors.New("monitoring: monitor node requires an address")
		}
	}
	return nil
}
