package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"sync"

	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// MemoryStore 进程内密钥库，用于测试与嵌入
type MemoryStore struct {
	secrets *vault

	mu   sync.RWMutex
	pubs map[string]*rsa.PublicKey
}

// 确保实现接口
var _ pkgif.KeyStore = (*MemoryStore)(nil)

// NewMemory 创建内存密钥库，secret 可为空
func NewMemory(secret []byte) *MemoryStore {
	s := &MemoryStore{
		secrets: newVault(),
		pubs:    make(map[string]*rsa.PublicKey),
	}
	s.secrets.put(secretSlot, append([]byte(nil), secret...))
	return s
}

// AddKeyPair 登记组件密钥对
func (s *MemoryStore) AddKeyPair(componentID string, key *rsa.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	s.secrets.put(componentID, der)
	s.AddPublicKey(componentID, &key.PublicKey)
	return nil
}

// AddPublicKey 只登记公钥（客户端一侧）
func (s *MemoryStore) AddPublicKey(componentID string, pub *rsa.PublicKey) {
	s.mu.Lock()
	s.pubs[componentID] = pub
	s.mu.Unlock()
}

// PublicKey 实现 KeyStore
func (s *MemoryStore) PublicKey(componentID string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pub, ok := s.pubs[componentID]
	if !ok {
		return nil, fmt.Errorf("%w: public key %s", ErrKeyNotFound, componentID)
	}
	return pub, nil
}

// PrivateKey 实现 KeyStore
func (s *MemoryStore) PrivateKey(componentID string) (*rsa.PrivateKey, error) {
	var key *rsa.PrivateKey
	ok, err := s.secrets.with(componentID, func(der []byte) error {
		var perr error
		key, perr = parsePrivateKey(der)
		return perr
	})
	if !ok {
		return nil, fmt.Errorf("%w: private key %s", ErrKeyNotFound, componentID)
	}
	return key, err
}

// SharedSecret 实现 KeyStore
func (s *MemoryStore) SharedSecret() ([]byte, error) {
	secret, ok, err := s.secrets.copyOut(secretSlot)
	if !ok {
		return nil, ErrNoSecret
	}
	return secret, err
}
