package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/proxy"

	"github.com/dep2p/go-mailmesh/internal/core/directory"
	"github.com/dep2p/go-mailmesh/internal/core/metrics"
	"github.com/dep2p/go-mailmesh/internal/protocol/submission"
	"github.com/dep2p/go-mailmesh/internal/util/logger"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

var log = logger.Logger("dispatch")

// AdvertiseFunc 返回本节点对外公布的 host:port
type AdvertiseFunc func() string

// WorkerOptions 工作者选项
type WorkerOptions struct {
	// Root 名字目录的根区域
	Root pkgif.Zone

	// Stats 可选，投递成功后上报
	Stats pkgif.StatsSink

	// Keys 可选，用于为退信签名
	Keys pkgif.KeyStore

	// Metrics 可选
	Metrics *metrics.Metrics

	// Advertise 统计数据报中的服务器地址
	Advertise AdvertiseFunc

	// Host 退信发件人地址中的主机部分
	Host string

	// BounceSender 退信发件人的本地部分
	BounceSender string

	DialTimeout  time.Duration
	ReplyTimeout time.Duration

	// CacheSize 缓存的出站连接数
	CacheSize int

	// SocksProxy 出站 SOCKS5 代理，空表示直连
	SocksProxy string
}

// Worker 投递工作者，队列的唯一消费者
type Worker struct {
	queue *Queue
	opts  WorkerOptions

	dialer  proxy.ContextDialer
	clients *lru.Cache[string, *submission.Client]

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewWorker 创建工作者
func NewWorker(queue *Queue, opts WorkerOptions) (*Worker, error) {
	if opts.Root == nil {
		return nil, errors.New("dispatch: directory root is required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 10 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	if opts.BounceSender == "" {
		opts.BounceSender = "mailer"
	}
	if opts.Advertise == nil {
		opts.Advertise = func() string { return "" }
	}

	dialer, err := newDialer(opts.SocksProxy, opts.DialTimeout)
	if err != nil {
		return nil, err
	}
	clients, err := lru.NewWithEvict(opts.CacheSize, func(domain string, c *submission.Client) {
		log.Debug("关闭出站连接", "domain", domain, "addr", c.Addr())
		_ = c.Close()
	})
	if err != nil {
		return nil, err
	}
	return &Worker{queue: queue, opts: opts, dialer: dialer, clients: clients}, nil
}

func newDialer(socks string, timeout time.Duration) (proxy.ContextDialer, error) {
	direct := &net.Dialer{Timeout: timeout}
	if socks == "" {
		return direct, nil
	}
	d, err := proxy.SOCKS5("tcp", socks, nil, direct)
	if err != nil {
		return nil, fmt.Errorf("dispatch: socks proxy %s: %w", socks, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("dispatch: socks dialer does not support context")
	}
	return cd, nil
}

// Start 启动投递循环
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.stopped = make(chan struct{})
	go w.run(ctx)
}

// Stop 停止投递循环并关闭缓存的连接，进行中的投递被中断
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, stopped := w.cancel, w.stopped
	w.mu.Unlock()
	if cancel != nil {
		cancel()
		<-stopped
	}
	w.clients.Purge()
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.stopped)
	log.Info("投递工作者已启动", "capacity", w.queue.Cap())
	for {
		msg, err := w.queue.Dequeue(ctx)
		if err != nil {
			log.Info("投递工作者退出", "reason", err)
			return
		}
		w.Deliver(ctx, msg)
	}
}

// Deliver 按目标域逐个投递一封邮件
func (w *Worker) Deliver(ctx context.Context, msg *types.Message) {
	for _, domain := range msg.DestinationDomains() {
		err := w.deliverTo(ctx, domain, msg)
		w.opts.Metrics.Delivery(err == nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("投递失败", "id", msg.ID, "domain", domain, "err", err)
			w.bounce(ctx, msg, domain, err)
			continue
		}

		log.Info("投递成功", "id", msg.ID, "domain", domain)
		if w.opts.Stats != nil {
			if err := w.opts.Stats.Record(w.opts.Advertise(), msg.From); err != nil {
				log.Debug("统计上报失败", "err", err)
			}
		}
	}
}

func (w *Worker) deliverTo(ctx context.Context, domain string, msg *types.Message) error {
	addr, err := directory.Lookup(ctx, w.opts.Root, domain)
	if err != nil {
		return &DeliveryError{Domain: domain, Stage: StageResolve, Err: err}
	}
	client, reused, err := w.client(ctx, domain, addr)
	if err != nil {
		return &DeliveryError{Domain: domain, Stage: StageConnect, Err: err}
	}
	err = client.Send(ctx, msg)
	if err != nil && reused && staleConn(ctx, err) {
		// 对端可能已关闭空闲连接，换新连接重放一次
		log.Debug("缓存连接失效，重新连接", "domain", domain, "addr", addr, "err", err)
		w.clients.Remove(domain)
		client, _, err = w.client(ctx, domain, addr)
		if err != nil {
			return &DeliveryError{Domain: domain, Stage: StageConnect, Err: err}
		}
		err = client.Send(ctx, msg)
	}
	if err != nil {
		w.clients.Remove(domain)
		return &DeliveryError{Domain: domain, Stage: StageSend, Err: err}
	}
	return nil
}

// staleConn 判断发送失败是否来自连接本身，而不是对端拒绝或取消
func staleConn(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var rej *submission.RejectedError
	return !errors.As(err, &rej)
}

// client 返回到 addr 的连接；缓存的连接只有仍可用且指向同一地址时才复用
func (w *Worker) client(ctx context.Context, domain, addr string) (*submission.Client, bool, error) {
	if c, ok := w.clients.Get(domain); ok {
		if !c.Closed() && c.Addr() == addr {
			return c, true, nil
		}
		w.clients.Remove(domain)
	}

	dctx, cancel := context.WithTimeout(ctx, w.opts.DialTimeout)
	defer cancel()
	c, err := submission.Dial(dctx, addr, submission.ClientOptions{
		Dialer:       w.dialer,
		ReplyTimeout: w.opts.ReplyTimeout,
		Traffic:      w.opts.Metrics.Traffic("dmtp-out"),
	})
	if err != nil {
		return nil, false, err
	}
	w.clients.Add(domain, c)
	log.Debug("新建出站连接", "domain", domain, "addr", addr)
	return c, false, nil
}

// CachedClients 返回当前缓存的连接数
func (w *Worker) CachedClients() int {
	return w.clients.Len()
}
