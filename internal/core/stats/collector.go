package stats

import (
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dep2p/go-mailmesh/pkg/types"
)

// maxDatagram 单个数据报上限
const maxDatagram = 1024

// Count 一个键的累计次数
type Count struct {
	Key   string
	Count int
}

// Collector 统计收集端
type Collector struct {
	mu        sync.Mutex
	servers   map[string]int
	addresses map[string]int

	conn net.PacketConn
	done chan struct{}
}

// NewCollector 创建收集端
func NewCollector() *Collector {
	return &Collector{
		servers:   make(map[string]int),
		addresses: make(map[string]int),
	}
}

// Listen 在 addr 上接收数据报
func (c *Collector) Listen(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return err
	}
	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop()
	log.Info("统计收集已启动", "addr", conn.LocalAddr().String())
	return nil
}

// Addr 返回监听地址
func (c *Collector) Addr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// Close 停止接收
func (c *Collector) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Collector) readLoop() {
	defer close(c.done)
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := c.conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warn("读取数据报失败", "err", err)
			}
			return
		}
		if !c.Add(string(buf[:n])) {
			log.Debug("忽略格式错误的数据报", "from", from.String())
		}
	}
}

// Add 解析并累计一条记录，格式错误时返回 false
func (c *Collector) Add(record string) bool {
	server, address, ok := parseRecord(record)
	if !ok {
		return false
	}
	c.mu.Lock()
	c.servers[server]++
	c.addresses[address]++
	c.mu.Unlock()
	log.Debug("收到统计", "server", server, "address", address)
	return true
}

// Servers 返回按服务器累计的次数
func (c *Collector) Servers() []Count {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sorted(c.servers)
}

// Addresses 返回按发件人地址累计的次数
func (c *Collector) Addresses() []Count {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sorted(c.addresses)
}

// parseRecord 解析 "host:port user@domain"，只取第一行
func parseRecord(s string) (server, address string, ok bool) {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	server, address, ok = strings.Cut(s, " ")
	if !ok || strings.ContainsAny(address, " \t") {
		return "", "", false
	}
	host, port, err := net.SplitHostPort(server)
	if err != nil || host == "" {
		return "", "", false
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", "", false
	}
	if _, _, err := types.SplitAddress(address); err != nil {
		return "", "", false
	}
	return server, address, true
}

func sorted(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
