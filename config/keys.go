package config

// KeysConfig 密钥目录配置
//
// 目录结构：
//
//	<dir>/server/<componentId>.der      私钥
//	<dir>/client/<componentId>_pub.der  公钥
//	<dir>/hmac.key                      共享密钥
//
// Dir 为空时中转节点不签名，邮箱节点必须通过选项注入密钥。
type KeysConfig struct {
	Dir string `json:"dir,omitempty"`
}

// DefaultKeysConfig 默认密钥配置
func DefaultKeysConfig() KeysConfig {
	return KeysConfig{}
}

// UsersConfig 用户注册表配置
type UsersConfig struct {
	// File user = password 形式的属性文件
	File string `json:"file,omitempty"`

	// Users 内联用户，与文件合并，同名时以此为准
	Users map[string]string `json:"users,omitempty"`
}

// DefaultUsersConfig 默认用户配置
func DefaultUsersConfig() UsersConfig {
	return UsersConfig{}
}
