// Package lineconn 提供基于 net.Conn 的按行读写
//
// 行以 LF 结束，读取时去掉行尾的 CR；超过上限的行视为协议错误。
// 提交与邮箱访问两个协议、以及它们的客户端共用这一层。
package lineconn

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

var (
	// ErrLineTooLong 单行超过上限
	ErrLineTooLong = errors.New("lineconn: line too long")
)

// DefaultMaxLineLength 默认单行上限
const DefaultMaxLineLength = 64 * 1024

// Options 行连接选项
type Options struct {
	MaxLineLength int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration

	// Traffic 每读写一行后回调，in 表示方向，n 为含换行的字节数
	Traffic func(in bool, n int)
}

// Conn 行连接
//
// 读与写各自串行，读写之间可以并发。
type Conn struct {
	conn net.Conn
	opts Options

	readMu sync.Mutex
	r      *bufio.Reader

	writeMu sync.Mutex
	w       *bufio.Writer
}

// New 包装 net.Conn
func New(conn net.Conn, opts Options) *Conn {
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultMaxLineLength
	}
	return &Conn{
		conn: conn,
		opts: opts,
		// 预留 CRLF
		r: bufio.NewReaderSize(conn, opts.MaxLineLength+2),
		w: bufio.NewWriter(conn),
	}
}

// ReadLine 读取一行，不含行尾
func (c *Conn) ReadLine() (string, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.opts.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
			return "", err
		}
	}

	line, err := c.r.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return "", ErrLineTooLong
	case errors.Is(err, io.EOF) && len(line) > 0:
		// 对端未以换行结束最后一行
	case err != nil:
		return "", err
	}

	if c.opts.Traffic != nil {
		c.opts.Traffic(true, len(line))
	}
	s := strings.TrimSuffix(string(line), "\n")
	s = strings.TrimSuffix(s, "\r")
	if len(s) > c.opts.MaxLineLength {
		return "", ErrLineTooLong
	}
	return s, nil
}

// WriteLine 写入一行并刷新
func (c *Conn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.opts.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}
	if c.opts.Traffic != nil {
		c.opts.Traffic(false, len(line)+1)
	}
	return nil
}

// RemoteAddr 返回对端地址
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close 关闭底层连接
func (c *Conn) Close() error {
	return c.conn.Close()
}
