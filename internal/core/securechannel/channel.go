package securechannel

import (
	"crypto/rsa"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	"github.com/dep2p/go-mailmesh/internal/util/logger"
)

var log = logger.Logger("securechannel")

// Phase 握手阶段
type Phase int32

const (
	// PhaseNone 尚未开始握手，读写为明文
	PhaseNone Phase = iota
	// PhasePending 已应答 startsecure，等待密钥交换完成
	PhasePending
	// PhaseConfirmed 握手完成，之后的每一行都加密
	PhaseConfirmed
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhasePending:
		return "pending"
	case PhaseConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// PublicKeySource 按组件 ID 查找公钥
type PublicKeySource interface {
	PublicKey(componentID string) (*rsa.PublicKey, error)
}

// Channel 可升级为加密的行信道
type Channel struct {
	conn  *lineconn.Conn
	phase atomic.Int32

	// cipher 在 phase 变为 PhaseConfirmed 之前写入，此后只读
	cipher *Cipher

	readMu  sync.Mutex
	writeMu sync.Mutex
}

// New 包装行连接，初始为明文阶段
func New(conn *lineconn.Conn) *Channel {
	return &Channel{conn: conn}
}

// Phase 返回当前握手阶段
func (c *Channel) Phase() Phase {
	return Phase(c.phase.Load())
}

// Secured 握手是否已确认
func (c *Channel) Secured() bool {
	return c.Phase() == PhaseConfirmed
}

// ReadLine 读取一行，握手确认后自动解密
func (c *Channel) ReadLine() (string, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	line, err := c.conn.ReadLine()
	if err != nil {
		return "", err
	}
	if !c.Secured() {
		return line, nil
	}
	return c.cipher.DecryptLine(line)
}

// WriteLine 写入一行，握手确认后自动加密
func (c *Channel) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.Secured() {
		line = c.cipher.EncryptLine(line)
	}
	return c.conn.WriteLine(line)
}

// Close 关闭信道
func (c *Channel) Close() error {
	return c.conn.Close()
}

// Accept 服务端握手，调用方已读到 startsecure
//
// 失败时信道被关闭，不再向对端发送任何内容。
func (c *Channel) Accept(componentID string, priv *rsa.PrivateKey) error {
	if c.Phase() != PhaseNone {
		return fmt.Errorf("%w: handshake already started", ErrHandshake)
	}
	if err := c.accept(componentID, priv); err != nil {
		log.Debug("握手失败，关闭连接", "remote", c.conn.RemoteAddr(), "err", err)
		_ = c.conn.Close()
		return err
	}
	return nil
}

func (c *Channel) accept(componentID string, priv *rsa.PrivateKey) error {
	c.phase.Store(int32(PhasePending))
	if err := c.conn.WriteLine("ok " + componentID); err != nil {
		return err
	}

	sealed, err := c.conn.ReadLine()
	if err != nil {
		return err
	}
	params, err := Open(priv, sealed)
	if err != nil {
		return err
	}
	cs, err := NewCipher(params.Key, params.IV)
	if err != nil {
		return err
	}

	// 回显挑战（明文）
	if err := c.conn.WriteLine("ok " + params.EncodedChallenge()); err != nil {
		return err
	}

	confirm, err := c.conn.ReadLine()
	if err != nil {
		return err
	}
	plain, err := cs.DecryptLine(confirm)
	if err != nil || plain != "ok" {
		return ErrNotConfirmed
	}

	c.cipher = cs
	c.phase.Store(int32(PhaseConfirmed))
	return nil
}

// Initiate 客户端握手，返回服务端的组件 ID
//
// 失败时信道被关闭。
func (c *Channel) Initiate(keys PublicKeySource) (string, error) {
	if c.Phase() != PhaseNone {
		return "", fmt.Errorf("%w: handshake already started", ErrHandshake)
	}
	id, err := c.initiate(keys)
	if err != nil {
		_ = c.conn.Close()
		return "", err
	}
	return id, nil
}

func (c *Channel) initiate(keys PublicKeySource) (string, error) {
	if err := c.conn.WriteLine("startsecure"); err != nil {
		return "", err
	}
	reply, err := c.conn.ReadLine()
	if err != nil {
		return "", err
	}
	id, ok := strings.CutPrefix(reply, "ok ")
	if !ok || id == "" {
		return "", ErrRejected
	}
	c.phase.Store(int32(PhasePending))

	pub, err := keys.PublicKey(id)
	if err != nil {
		return "", fmt.Errorf("%w: public key for %s: %v", ErrHandshake, id, err)
	}
	params, err := NewParams(nil)
	if err != nil {
		return "", err
	}
	sealed, err := Seal(pub, params)
	if err != nil {
		return "", err
	}
	if err := c.conn.WriteLine(sealed); err != nil {
		return "", err
	}

	echo, err := c.conn.ReadLine()
	if err != nil {
		return "", err
	}
	got, ok := strings.CutPrefix(echo, "ok ")
	if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(params.EncodedChallenge())) != 1 {
		return "", ErrChallengeMismatch
	}

	cs, err := NewCipher(params.Key, params.IV)
	if err != nil {
		return "", err
	}
	if err := c.conn.WriteLine(cs.EncryptLine("ok")); err != nil {
		return "", err
	}

	c.cipher = cs
	c.phase.Store(int32(PhaseConfirmed))
	return id, nil
}
