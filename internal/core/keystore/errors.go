package keystore

import "errors"

var (
	// ErrKeyNotFound 找不到组件的密钥文件
	ErrKeyNotFound = errors.New("keystore: key not found")

	// ErrInvalidKey 密钥无法解析或不是 RSA 密钥
	ErrInvalidKey = errors.New("keystore: invalid key")

	// ErrNoSecret 未配置共享密钥
	ErrNoSecret = errors.New("keystore: shared secret not configured")

	// ErrClosed 密钥库已关闭
	ErrClosed = errors.New("keystore: closed")
)
