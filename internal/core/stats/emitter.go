package stats

import (
	"fmt"
	"net"
	"sync"

	"github.com/dep2p/go-mailmesh/internal/util/logger"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

var log = logger.Logger("stats")

// Emitter 统计数据报发送端
type Emitter struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// 确保实现接口
var _ pkgif.StatsSink = (*Emitter)(nil)

// NewEmitter 创建发送端，addr 为空时 Record 不做任何事
func NewEmitter(addr string) *Emitter {
	return &Emitter{addr: addr}
}

// Record 实现 StatsSink
func (e *Emitter) Record(server, sender string) error {
	if e == nil || e.addr == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		c, err := net.Dial("udp", e.addr)
		if err != nil {
			return fmt.Errorf("stats: dial %s: %w", e.addr, err)
		}
		e.conn = c
	}
	if _, err := fmt.Fprintf(e.conn, "%s %s", server, sender); err != nil {
		// 下次重新拨号
		_ = e.conn.Close()
		e.conn = nil
		return fmt.Errorf("stats: send: %w", err)
	}
	return nil
}

// Close 关闭套接字
func (e *Emitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}
