package retrieval

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"github.com/dep2p/go-mailmesh/internal/core/integrity"
	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	"github.com/dep2p/go-mailmesh/internal/core/securechannel"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

// ClientOptions 客户端选项
type ClientOptions struct {
	// Dialer 出站拨号器，nil 时直连
	Dialer proxy.ContextDialer

	// ReplyTimeout 等待单行应答的时限
	ReplyTimeout time.Duration

	MaxLineLength int
}

// Summary list 中的一行
type Summary struct {
	Index   int
	From    string
	Subject string
}

// Client 邮箱访问协议客户端
type Client struct {
	raw net.Conn
	ch  *securechannel.Channel

	mu sync.Mutex
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
	c := &Client{
		raw: raw,
		ch: securechannel.New(lineconn.New(raw, lineconn.Options{
			MaxLineLength: opts.MaxLineLength,
			ReadTimeout:   opts.ReplyTimeout,
			WriteTimeout:  opts.ReplyTimeout,
		})),
	}

	stop := context.AfterFunc(ctx, func() { _ = raw.Close() })
	greeting, err := c.ch.ReadLine()
	stop()
	if err != nil {
		_ = raw.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if !strings.HasPrefix(greeting, "ok DMAP") {
		_ = raw.Close()
		return nil, fmt.Errorf("%w: %q", ErrBadGreeting, greeting)
	}
	return c, nil
}

// Secured 握手是否已完成
func (c *Client) Secured() bool {
	return c.ch.Secured()
}

// StartSecure 完成握手，返回服务端组件 ID；失败时连接被关闭
func (c *Client) StartSecure(ctx context.Context, keys securechannel.PublicKeySource) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stop := context.AfterFunc(ctx, func() { _ = c.raw.Close() })
	defer stop()

	id, err := c.ch.Initiate(keys)
	if err != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}
	return id, err
}

// Login 登录
func (c *Client) Login(ctx context.Context, user, password string) error {
	_, err := c.call(ctx, "login", "login "+user+" "+password, 0)
	return err
}

// List 列出邮件
func (c *Client) List(ctx context.Context) ([]Summary, error) {
	lines, err := c.call(ctx, "list", "list", -1)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(lines))
	for _, l := range lines {
		parts := strings.SplitN(l, " ", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedReply, l)
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedReply, l)
		}
		s := Summary{Index: idx, From: parts[1]}
		if len(parts) == 3 {
			s.Subject = parts[2]
		}
		out = append(out, s)
	}
	return out, nil
}

// Show 读取一封邮件
func (c *Client) Show(ctx context.Context, index int) (*types.Message, error) {
	lines, err := c.call(ctx, "show", "show "+strconv.Itoa(index), 5)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 5)
	for i, name := range []string{"from", "to", "subject", "data", "hash"} {
		l := lines[i]
		if l != name && !strings.HasPrefix(l, name+" ") {
			return nil, fmt.Errorf("%w: expected %s, got %q", ErrMalformedReply, name, l)
		}
		fields[i] = strings.TrimPrefix(strings.TrimPrefix(l, name), " ")
	}

	msg := &types.Message{
		From:    fields[0],
		Subject: fields[2],
		Data:    fields[3],
		Hash:    fields[4],
	}
	if fields[1] != "" {
		msg.To = strings.Split(fields[1], ",")
	}
	return msg, nil
}

// Verify 读取一封邮件并校验其完整性标签
func (c *Client) Verify(ctx context.Context, secret []byte, index int) (*types.Message, error) {
	msg, err := c.Show(ctx, index)
	if err != nil {
		return nil, err
	}
	return msg, integrity.Verify(secret, msg)
}

// Delete 删除一封邮件
func (c *Client) Delete(ctx context.Context, index int) error {
	_, err := c.call(ctx, "delete", "delete "+strconv.Itoa(index), 0)
	return err
}

// Logout 登出
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, "logout", "logout", 0)
	return err
}

// Quit 结束会话并关闭连接
func (c *Client) Quit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.raw.Close()

	stop := context.AfterFunc(ctx, func() { _ = c.raw.Close() })
	defer stop()
	if err := c.ch.WriteLine("quit"); err != nil {
		return err
	}
	reply, err := c.ch.ReadLine()
	if err != nil {
		return err
	}
	if reply != "ok bye" {
		return fmt.Errorf("%w: %q", ErrMalformedReply, reply)
	}
	return nil
}

// Close 直接关闭连接
func (c *Client) Close() error {
	return c.ch.Close()
}

// call 发送一条命令并读取应答
//
// lines 为 ok 之前预期的行数，-1 表示读到 ok 为止。
func (c *Client) call(ctx context.Context, cmd, line string, lines int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stop := context.AfterFunc(ctx, func() { _ = c.raw.Close() })
	defer stop()

	out, err := c.exchange(cmd, line, lines)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return out, err
}

func (c *Client) exchange(cmd, line string, lines int) ([]string, error) {
	if err := c.ch.WriteLine(line); err != nil {
		return nil, err
	}
	var out []string
	for {
		reply, err := c.ch.ReadLine()
		if err != nil {
			return nil, err
		}
		if len(out) == 0 && strings.HasPrefix(reply, "error") {
			return nil, &RejectedError{Command: cmd, Reason: strings.TrimSpace(strings.TrimPrefix(reply, "error"))}
		}
		if reply == "ok" {
			if lines < 0 || len(out) == lines {
				return out, nil
			}
			return nil, fmt.Errorf("%w: early ok after %d lines", ErrMalformedReply, len(out))
		}
		if lines >= 0 && len(out) == lines {
			return nil, fmt.Errorf("%w: %q", ErrMalformedReply, reply)
		}
		out = append(out, reply)
	}
}
