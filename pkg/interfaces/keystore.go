package interfaces

import "crypto/rsa"

// KeyStore 提供组件密钥与共享密钥
type KeyStore interface {
	// PublicKey 返回组件的公钥（客户端发起握手时使用）
	PublicKey(componentID string) (*rsa.PublicKey, error)

	// PrivateKey 返回组件的私钥（服务端响应握手时使用）
	PrivateKey(componentID string) (*rsa.PrivateKey, error)

	// SharedSecret 返回完整性标签使用的 HMAC 密钥
	SharedSecret() ([]byte, error)
}
