// Package integrity 计算与校验邮件完整性标签
//
// 标签为 HMAC-SHA256(shared secret, canonical) 的 base64，
// canonical 为 from、to、subject、data 四个字段按序以换行连接，末尾无换行；
// to 以逗号拼接且不含空白。
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/dep2p/go-mailmesh/pkg/types"
)

var (
	// ErrNoHash 邮件没有完整性标签
	ErrNoHash = errors.New("integrity: no hash present")

	// ErrTagMismatch 标签与内容不符
	ErrTagMismatch = errors.New("integrity: tag mismatch")

	// ErrNoSecret 共享密钥为空
	ErrNoSecret = errors.New("integrity: empty shared secret")
)

// Canonical 返回参与签名的规范文本
func Canonical(msg *types.Message) string {
	return strings.Join([]string{
		msg.From,
		types.JoinRecipients(msg.To),
		msg.Subject,
		msg.Data,
	}, "\n")
}

// Sign 计算标签
func Sign(secret []byte, msg *types.Message) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	return base64.StdEncoding.EncodeToString(mac(secret, msg)), nil
}

// Verify 以常量时间比较标签
func Verify(secret []byte, msg *types.Message) error {
	if msg.Hash == "" {
		return ErrNoHash
	}
	if len(secret) == 0 {
		return ErrNoSecret
	}
	got, err := base64.StdEncoding.DecodeString(msg.Hash)
	if err != nil {
		return ErrTagMismatch
	}
	if !hmac.Equal(got, mac(secret, msg)) {
		return ErrTagMismatch
	}
	return nil
}

func mac(secret []byte, msg *types.Message) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(Canonical(msg)))
	return h.Sum(nil)
}
