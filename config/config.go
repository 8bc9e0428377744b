// Package config 提供 mailmesh 节点的统一配置
//
// 主 Config 嵌入各组件子配置，每个子配置在独立文件中定义，
// 提供 DefaultXxxConfig() 与 Validate()。配置可从 JSON 加载：
//
//	cfg := config.NewConfig()
//	cfg.Node.Role = config.RoleMailbox
//	cfg.Node.Domain = "earth.planet"
//
//	cfg, err := config.LoadFile("mailbox-earth.json")
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 节点完整配置
//
// 按组件组织：
//   - Node: 角色、组件 ID、所属域
//   - Submission: 邮件提交端口
//   - Retrieval: 邮箱访问端口
//   - Directory: 名字目录（客户端与服务端）
//   - Dispatch: 投递队列与投递工作者
//   - Monitoring: UDP 统计
//   - Keys / Users: 密钥与用户注册表
//   - Metrics: prometheus 指标
type Config struct {
	Node       NodeConfig       `json:"node"`
	Submission SubmissionConfig `json:"submission"`
	Retrieval  RetrievalConfig  `json:"retrieval"`
	Directory  DirectoryConfig  `json:"directory"`
	Dispatch   DispatchConfig   `json:"dispatch"`
	Monitoring MonitoringConfig `json:"monitoring"`
	Keys       KeysConfig       `json:"keys"`
	Users      UsersConfig      `json:"users"`
	Metrics    MetricsConfig    `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Node:       DefaultNodeConfig(),
		Submission: DefaultSubmissionConfig(),
		Retrieval:  DefaultRetrievalConfig(),
		Directory:  DefaultDirectoryConfig(),
		Dispatch:   DefaultDispatchConfig(),
		Monitoring: DefaultMonitoringConfig(),
		Keys:       DefaultKeysConfig(),
		Users:      DefaultUsersConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// FromJSON 在默认配置之上解析 JSON，未出现的字段保留默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile 读取 JSON 配置文件
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return FromJSON(data)
}

// ToJSON 序列化为缩进 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
