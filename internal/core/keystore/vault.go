package keystore

import (
	"sync"

	"github.com/awnumar/memguard"
)

// vault 以 memguard enclave 保存敏感字节，仅在使用时解密到锁定内存
type vault struct {
	mu      sync.RWMutex
	entries map[string]*memguard.Enclave
}

func newVault() *vault {
	return &vault{entries: make(map[string]*memguard.Enclave)}
}

// put 保存 buf 的副本，buf 本身会被擦除
func (v *vault) put(name string, buf []byte) {
	if len(buf) == 0 {
		return
	}
	enc := memguard.NewEnclave(buf)
	v.mu.Lock()
	v.entries[name] = enc
	v.mu.Unlock()
}

func (v *vault) has(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.entries[name]
	return ok
}

// with 在回调期间提供明文，回调返回后立即销毁
func (v *vault) with(name string, fn func([]byte) error) (bool, error) {
	v.mu.RLock()
	enc, ok := v.entries[name]
	v.mu.RUnlock()
	if !ok {
		return false, nil
	}
	lb, err := enc.Open()
	if err != nil {
		return true, err
	}
	defer lb.Destroy()
	return true, fn(lb.Bytes())
}

// copyOut 返回明文副本
func (v *vault) copyOut(name string) ([]byte, bool, error) {
	var out []byte
	ok, err := v.with(name, func(b []byte) error {
		out = append([]byte(nil), b...)
		return nil
	})
	return out, ok, err
}

func (v *vault) clear() {
	v.mu.Lock()
	v.entries = make(map[string]*memguard.Enclave)
	v.mu.Unlock()
}
