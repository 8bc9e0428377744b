// Package userstore 实现本地用户注册表
//
// 口令只以 argon2id 摘要保存（每用户随机盐），登录时常量时间比较。
package userstore

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/argon2"

	"github.com/dep2p/go-mailmesh/internal/util/logger"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

var log = logger.Logger("userstore")

// argon2id 参数
const (
	argonTime    = 1
	argonMemory  = 8 * 1024
	argonThreads = 2
	argonKeyLen  = 32
	saltLen      = 16
)

var (
	// ErrEmptyUser 用户名为空
	ErrEmptyUser = errors.New("userstore: empty user name")
)

type credential struct {
	salt []byte
	hash []byte
}

// Registry 不可变的用户注册表
type Registry struct {
	creds map[string]credential
	names []string

	// dummy 用于未知用户，使耗时与已知用户一致
	dummy credential
}

// 确保实现接口
var _ pkgif.UserRegistry = (*Registry)(nil)

// New 从 user -> password 映射构建注册表
func New(users map[string]string) (*Registry, error) {
	r := &Registry{creds: make(map[string]credential, len(users))}
	for user, password := range users {
		if user == "" {
			return nil, ErrEmptyUser
		}
		c, err := derive(password)
		if err != nil {
			return nil, err
		}
		r.creds[user] = c
		r.names = append(r.names, user)
	}
	sort.Strings(r.names)

	dummy, err := derive("")
	if err != nil {
		return nil, err
	}
	r.dummy = dummy
	log.Debug("用户注册表已加载", "users", len(r.names))
	return r, nil
}

// Users 实现 UserRegistry
func (r *Registry) Users() []string {
	return append([]string(nil), r.names...)
}

// Has 实现 UserRegistry
func (r *Registry) Has(user string) bool {
	_, ok := r.creds[user]
	return ok
}

// Authenticate 实现 UserRegistry
func (r *Registry) Authenticate(user, password string) bool {
	c, ok := r.creds[user]
	if !ok {
		c = r.dummy
	}
	got := argon2.IDKey([]byte(password), c.salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(got, c.hash) == 1 && ok
}

func derive(password string) (credential, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return credential{}, fmt.Errorf("userstore: salt: %w", err)
	}
	return credential{
		salt: salt,
		hash: argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen),
	}, nil
}
