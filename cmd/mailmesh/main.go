// Package main 提供 mailmesh 命令行入口
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mailmesh "github.com/dep2p/go-mailmesh"
	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/keystore"
	"github.com/dep2p/go-mailmesh/internal/util/logger"
)

var log = logger.Logger("mailmesh/cmd")

// Version 版本号
const Version = "0.3.0"

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖 / 快速测试
//   JSON 配置文件：节点的固定配置
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile = flag.String("config", "", "配置文件路径")

	// ─────────────────────────────────────────────────────────────────────
	// 节点身份
	// ─────────────────────────────────────────────────────────────────────
	role        = flag.String("role", "", "节点角色 (transfer/mailbox/nameserver/monitor)")
	componentID = flag.String("component", "", "组件标识")
	domain      = flag.String("domain", "", "邮箱节点负责的域名")
	host        = flag.String("host", "", "对外公布的主机名")

	// ─────────────────────────────────────────────────────────────────────
	// 地址
	// ─────────────────────────────────────────────────────────────────────
	submissionAddr = flag.String("submission", "", "DMTP 监听地址")
	retrievalAddr  = flag.String("retrieval", "", "DMAP 监听地址")
	directoryRoot  = flag.String("root", "", "根区域 RPC 地址")
	directoryAddr  = flag.String("directory", "", "名字服务节点 RPC 监听地址")
	zone           = flag.String("zone", "", "名字服务节点负责的区域（空 = 根区域）")
	monitoringAddr = flag.String("monitoring", "", "UDP 统计地址")
	metricsAddr    = flag.String("metrics", "", "/metrics 监听地址")

	// ─────────────────────────────────────────────────────────────────────
	// 密钥与用户
	// ─────────────────────────────────────────────────────────────────────
	keysDir   = flag.String("keys", "", "密钥目录")
	usersFile = flag.String("users", "", "用户属性文件")
	keygen    = flag.Bool("keygen", false, "为 -component 生成密钥对（及缺失的共享密钥）后退出")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	report      = flag.Duration("report", 0, "定期打印名字目录或统计（0 = 不打印）")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mailmesh %s\n", Version)
		return nil
	}

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	if *keygen {
		return generateKeys(cfg.Keys.Dir, cfg.Node.ComponentID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("启动 mailmesh 节点", "version", Version, "role", cfg.Node.Role)
	node, err := mailmesh.Start(ctx, mailmesh.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	printNodeInfo(node)
	fmt.Println("节点已启动，按 Ctrl+C 退出")

	var tick <-chan time.Time
	if *report > 0 {
		t := time.NewTicker(*report)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n正在关闭节点...")
			printReport(node)
			return nil
		case <-tick:
			printReport(node)
		}
	}
}

// buildConfig 构建配置
//
// 配置优先级（从高到低）：
//  1. 命令行参数
//  2. 环境变量（MAILMESH_* 前缀）
//  3. 配置文件
//  4. 默认值
func buildConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	flagVars := []struct {
		name string
		val  string
		dst  *string
	}{
		{"component", *componentID, &cfg.Node.ComponentID},
		{"domain", *domain, &cfg.Node.Domain},
		{"host", *host, &cfg.Node.Host},
		{"submission", *submissionAddr, &cfg.Submission.ListenAddr},
		{"retrieval", *retrievalAddr, &cfg.Retrieval.ListenAddr},
		{"root", *directoryRoot, &cfg.Directory.RootAddr},
		{"directory", *directoryAddr, &cfg.Directory.ListenAddr},
		{"zone", *zone, &cfg.Directory.Zone},
		{"monitoring", *monitoringAddr, &cfg.Monitoring.Addr},
		{"metrics", *metricsAddr, &cfg.Metrics.ListenAddr},
		{"keys", *keysDir, &cfg.Keys.Dir},
		{"users", *usersFile, &cfg.Users.File},
	}
	for _, f := range flagVars {
		if isFlagSet(f.name) {
			*f.dst = f.val
		}
	}
	if isFlagSet("role") {
		cfg.Node.Role = config.Role(*role)
	}
	return cfg, nil
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// generateKeys 生成组件密钥对；共享密钥已存在时保留
func generateKeys(dir, component string) error {
	if dir == "" || component == "" {
		return errors.New("keygen requires -keys and -component")
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}
	if err := keystore.WriteKeyPair(dir, component, key); err != nil {
		return fmt.Errorf("写出密钥对失败: %w", err)
	}
	fmt.Printf("已生成 %s 的密钥对\n", component)

	if _, err := os.Stat(filepath.Join(dir, "hmac.key")); !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	encoded := []byte(base64.StdEncoding.EncodeToString(secret))
	if err := keystore.WriteSharedSecret(dir, encoded); err != nil {
		return fmt.Errorf("写出共享密钥失败: %w", err)
	}
	fmt.Println("已生成共享密钥")
	return nil
}

// printNodeInfo 打印节点地址
func printNodeInfo(node *mailmesh.Node) {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  角色:   %s\n", node.Role())
	if a := node.SubmissionAddr(); a != "" {
		fmt.Printf("  DMTP:   %s\n", a)
	}
	if a := node.RetrievalAddr(); a != "" {
		fmt.Printf("  DMAP:   %s\n", a)
	}
	if a := node.DirectoryAddr(); a != "" {
		fmt.Printf("  目录:   %s\n", a)
	}
	if a := node.MonitorAddr(); a != "" {
		fmt.Printf("  统计:   %s\n", a)
	}
	fmt.Println("═══════════════════════════════════════════════════════════════")
}

// printReport 按角色打印名字目录或统计
func printReport(node *mailmesh.Node) {
	switch node.Role() {
	case config.RoleNameserver:
		for _, z := range node.Zones() {
			fmt.Printf("zone %s\n", z)
		}
		for _, m := range node.Mailboxes() {
			fmt.Printf("mailbox %s\n", m)
		}
	case config.RoleMonitor:
		c := node.Collector()
		for _, s := range c.Servers() {
			fmt.Printf("server %s %d\n", s.Key, s.Count)
		}
		for _, a := range c.Addresses() {
			fmt.Printf("address %s %d\n", a.Key, a.Count)
		}
	}
}
