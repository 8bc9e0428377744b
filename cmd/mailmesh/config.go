package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/dep2p/go-mailmesh/config"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// EnvPrefix 环境变量前缀
const EnvPrefix = "MAILMESH_"

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
// 支持的环境变量（均使用 MAILMESH_ 前缀）：
//   - MAILMESH_ROLE: 节点角色
//   - MAILMESH_COMPONENT_ID: 组件标识
//   - MAILMESH_DOMAIN: 邮箱节点的域名
//   - MAILMESH_HOST: 对外公布的主机名
//   - MAILMESH_DIRECTORY_ROOT: 根区域 RPC 地址
//   - MAILMESH_DIRECTORY_ZONE: 名字服务节点负责的区域
//   - MAILMESH_MONITORING_ADDR: UDP 统计地址
//   - MAILMESH_KEYS_DIR: 密钥目录
//   - MAILMESH_USERS_FILE: 用户属性文件
//   - MAILMESH_METRICS_ADDR: /metrics 监听地址
//   - MAILMESH_SOCKS_PROXY: 出站 SOCKS5 代理
//   - MAILMESH_QUEUE_CAPACITY: 投递队列容量
func applyEnvOverrides(cfg *config.Config) {
	strVars := []struct {
		name string
		dst  *string
	}{
		{"COMPONENT_ID", &cfg.Node.ComponentID},
		{"DOMAIN", &cfg.Node.Domain},
		{"HOST", &cfg.Node.Host},
		{"DIRECTORY_ROOT", &cfg.Directory.RootAddr},
		{"DIRECTORY_ZONE", &cfg.Directory.Zone},
		{"MONITORING_ADDR", &cfg.Monitoring.Addr},
		{"KEYS_DIR", &cfg.Keys.Dir},
		{"USERS_FILE", &cfg.Users.File},
		{"METRICS_ADDR", &cfg.Metrics.ListenAddr},
		{"SOCKS_PROXY", &cfg.Dispatch.SocksProxy},
	}
	for _, v := range strVars {
		if s := getenv(v.name); s != "" {
			*v.dst = s
		}
	}

	// MAILMESH_ROLE
	if v := getenv("ROLE"); v != "" {
		cfg.Node.Role = config.Role(strings.ToLower(v))
	}

	// MAILMESH_QUEUE_CAPACITY
	if v := getenv("QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.QueueCapacity = n
		}
	}
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}
