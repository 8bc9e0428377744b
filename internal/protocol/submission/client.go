package submission

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/proxy"

	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

// ClientOptions 客户端选项
type ClientOptions struct {
	// Dialer 出站拨号器，nil 时直连
	Dialer proxy.ContextDialer

	// ReplyTimeout 等待单行应答的时限
	ReplyTimeout time.Duration

	MaxLineLength int

	// Traffic 可选的流量回调
	Traffic func(in bool, n int)
}

// Client 提交协议客户端
//
// 一次 Send 回放一个完整事务。任何失败（包括对端拒绝）后客户端不可再用，
// Closed 返回 true。
type Client struct {
	addr string
	conn *lineconn.Conn

	mu     sync.Mutex
	closed atomic.Bool
}

// Dial 连接服务端并读取问候
func Dial(ctx context.Context, addr string, opts ClientOptions) (*Client, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	conn := lineconn.New(raw, lineconn.Options{
		MaxLineLength: opts.MaxLineLength,
		ReadTimeout:   opts.ReplyTimeout,
		WriteTimeout:  opts.ReplyTimeout,
		Traffic:       opts.Traffic,
	})

	stop := context.AfterFunc(ctx, func() { _ = raw.Close() })
	greeting, err := conn.ReadLine()
	stop()
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if !strings.HasPrefix(greeting, "ok DMTP") {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %q", ErrBadGreeting, greeting)
	}
	return &Client{addr: addr, conn: conn}, nil
}

// Addr 返回服务端地址
func (c *Client) Addr() string {
	return c.addr
}

// Closed 客户端是否已不可用
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// Send 回放 begin、to、from、subject、data、hash（若有）、send
func (c *Client) Send(ctx context.Context, msg *types.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}

	stop := context.AfterFunc(ctx, func() { c.abort() })
	defer stop()

	steps := []struct{ cmd, line string }{
		{"begin", "begin"},
		{"to", "to " + types.JoinRecipients(msg.To)},
		{"from", "from " + msg.From},
		{"subject", "subject " + msg.Subject},
		{"data", "data " + msg.Data},
	}
	if msg.Hash != "" {
		steps = append(steps, struct{ cmd, line string }{"hash", "hash " + msg.Hash})
	}
	steps = append(steps, struct{ cmd, line string }{"send", "send"})

	for _, st := range steps {
		if err := c.exchange(st.cmd, st.line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
	return nil
}

func (c *Client) exchange(cmd, line string) error {
	if err := c.conn.WriteLine(line); err != nil {
		c.abort()
		return err
	}
	reply, err := c.conn.ReadLine()
	if err != nil {
		c.abort()
		return err
	}
	if reply == "ok" || strings.HasPrefix(reply, "ok ") {
		return nil
	}
	// 对端事务仍处于打开状态，放弃该连接
	c.quit()
	reason := strings.TrimSpace(strings.TrimPrefix(reply, "error"))
	return &RejectedError{Command: cmd, Reason: reason}
}

// Close 发送 quit 并关闭连接
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil
	}
	c.quit()
	return nil
}

func (c *Client) quit() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if err := c.conn.WriteLine("quit"); err == nil {
		_, _ = c.conn.ReadLine()
	}
	_ = c.conn.Close()
}

func (c *Client) abort() {
	c.closed.Store(true)
	_ = c.conn.Close()
}
