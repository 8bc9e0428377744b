package keystore

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dep2p/go-mailmesh/internal/util/logger"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

var log = logger.Logger("keystore")

const (
	secretName = "hmac.key"
	secretSlot = "\x00secret"
)

// FileStore 从目录读取密钥
//
//	<dir>/server/<id>.der      私钥（PKCS#8 / PKCS#1，DER 或 PEM）
//	<dir>/client/<id>_pub.der  公钥（PKIX / PKCS#1，DER 或 PEM）
//	<dir>/hmac.key             共享密钥，去除首尾空白
//
// 文件在首次使用时读取；私钥与共享密钥驻留在 enclave 中。
type FileStore struct {
	dir string

	secrets *vault

	mu   sync.RWMutex
	pubs map[string]*rsa.PublicKey
}

// 确保实现接口
var _ pkgif.KeyStore = (*FileStore)(nil)

// OpenDir 打开密钥目录
func OpenDir(dir string) (*FileStore, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("keystore: open %s: %w", dir, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("keystore: %s is not a directory", dir)
	}
	return &FileStore{
		dir:     dir,
		secrets: newVault(),
		pubs:    make(map[string]*rsa.PublicKey),
	}, nil
}

// PublicKey 实现 KeyStore
func (s *FileStore) PublicKey(componentID string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	pub, ok := s.pubs[componentID]
	s.mu.RUnlock()
	if ok {
		return pub, nil
	}

	data, err := s.read(filepath.Join("client", componentID+"_pub.der"))
	if err != nil {
		return nil, err
	}
	pub, err = parsePublicKey(derBytes(data))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pubs[componentID] = pub
	s.mu.Unlock()
	return pub, nil
}

// PrivateKey 实现 KeyStore
func (s *FileStore) PrivateKey(componentID string) (*rsa.PrivateKey, error) {
	if !s.secrets.has(componentID) {
		data, err := s.read(filepath.Join("server", componentID+".der"))
		if err != nil {
			return nil, err
		}
		der := derBytes(data)
		if _, err := parsePrivateKey(der); err != nil {
			return nil, err
		}
		s.secrets.put(componentID, append([]byte(nil), der...))
		wipe(data)
		log.Debug("私钥已载入", "component", componentID)
	}

	var key *rsa.PrivateKey
	_, err := s.secrets.with(componentID, func(der []byte) error {
		var perr error
		key, perr = parsePrivateKey(der)
		return perr
	})
	return key, err
}

// SharedSecret 实现 KeyStore
func (s *FileStore) SharedSecret() ([]byte, error) {
	if !s.secrets.has(secretSlot) {
		data, err := s.read(secretName)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return nil, ErrNoSecret
			}
			return nil, err
		}
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 {
			return nil, ErrNoSecret
		}
		s.secrets.put(secretSlot, append([]byte(nil), trimmed...))
		wipe(data)
	}
	secret, _, err := s.secrets.copyOut(secretSlot)
	return secret, err
}

// Close 丢弃缓存的密钥
func (s *FileStore) Close() error {
	s.secrets.clear()
	s.mu.Lock()
	s.pubs = make(map[string]*rsa.PublicKey)
	s.mu.Unlock()
	return nil
}

func (s *FileStore) read(rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, rel))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, rel)
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: read %s: %w", rel, err)
	}
	return data, nil
}

// WriteKeyPair 按目录约定写出组件密钥对（PEM）
func WriteKeyPair(dir, componentID string, key *rsa.PrivateKey) error {
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return err
	}

	for _, f := range []struct {
		rel  string
		typ  string
		der  []byte
		perm fs.FileMode
	}{
		{filepath.Join("server", componentID+".der"), "PRIVATE KEY", privDER, 0o600},
		{filepath.Join("client", componentID+"_pub.der"), "PUBLIC KEY", pubDER, 0o644},
	} {
		path := filepath.Join(dir, f.rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		data := pem.EncodeToMemory(&pem.Block{Type: f.typ, Bytes: f.der})
		if err := os.WriteFile(path, data, f.perm); err != nil {
			return err
		}
	}
	return nil
}

// WriteSharedSecret 写出共享密钥文件
func WriteSharedSecret(dir string, secret []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, secretName), secret, 0o600)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
