package mailmesh

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/directory"
	"github.com/dep2p/go-mailmesh/internal/core/dispatch"
	"github.com/dep2p/go-mailmesh/internal/core/keystore"
	"github.com/dep2p/go-mailmesh/internal/core/stats"
	"github.com/dep2p/go-mailmesh/internal/core/userstore"
	"github.com/dep2p/go-mailmesh/internal/protocol/retrieval"
	"github.com/dep2p/go-mailmesh/internal/protocol/submission"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

const earthComponent = "mailbox-earth-planet"

var sharedSecret = []byte("mailmesh-shared-secret")

var (
	keyOnce  sync.Once
	earthKey *rsa.PrivateKey
)

func mailboxKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		earthKey = k
	})
	return earthKey
}

func startNode(t *testing.T, cfg *config.Config, opts ...Option) *Node {
	t.Helper()
	opts = append([]Option{WithConfig(cfg)}, opts...)
	node, err := Start(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = node.Close() })
	return node
}

func nameserverConfig(zone, rootAddr string) *config.Config {
	cfg := config.NewConfig()
	cfg.Node.Role = config.RoleNameserver
	cfg.Directory.Zone = zone
	cfg.Directory.RootAddr = rootAddr
	return cfg
}

func mailboxConfig(rootAddr string) *config.Config {
	cfg := config.NewConfig()
	cfg.Node.Role = config.RoleMailbox
	cfg.Node.ComponentID = earthComponent
	cfg.Node.Domain = "earth.planet"
	cfg.Directory.RootAddr = rootAddr
	cfg.Users.Users = map[string]string{"arthur": "towel", "trillian": "heart"}
	return cfg
}

func transferConfig(rootAddr, monitorAddr string) *config.Config {
	cfg := config.NewConfig()
	cfg.Node.Role = config.RoleTransfer
	cfg.Directory.RootAddr = rootAddr
	cfg.Monitoring.Addr = monitorAddr
	return cfg
}

func mailboxKeys(t *testing.T) *keystore.MemoryStore {
	t.Helper()
	keys := keystore.NewMemory(sharedSecret)
	require.NoError(t, keys.AddKeyPair(earthComponent, mailboxKey(t)))
	return keys
}

func submit(t *testing.T, addr string, msg *types.Message) {
	t.Helper()
	ctx := context.Background()
	c, err := submission.Dial(ctx, addr, submission.ClientOptions{ReplyTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Send(ctx, msg))
}

// ════════════════════════════════════════════════════════════════════════════
// 生命周期
// ════════════════════════════════════════════════════════════════════════════

func TestNode_Lifecycle(t *testing.T) {
	ctx := context.Background()
	node, err := New(ctx, WithConfig(nameserverConfig("", "")))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, node.State())
	assert.ErrorIs(t, node.Stop(ctx), ErrNotStarted)

	require.NoError(t, node.Start(ctx))
	assert.Equal(t, StateRunning, node.State())
	assert.NotEmpty(t, node.DirectoryAddr())
	assert.ErrorIs(t, node.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, node.Stop(ctx))
	assert.Equal(t, StateStopped, node.State())
	assert.ErrorIs(t, node.Start(ctx), ErrNodeClosed)
	assert.ErrorIs(t, node.Stop(ctx), ErrNodeClosed)
	assert.NoError(t, node.Close())
	assert.NoError(t, node.Close())

	t.Log("✅ 节点生命周期正确")
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(ctx, WithRole("relay"))
		assert.Error(t, err)
	})

	t.Run("mailbox without keys", func(t *testing.T) {
		cfg := mailboxConfig("127.0.0.1:1")
		_, err := New(ctx, WithConfig(cfg))
		assert.ErrorIs(t, err, ErrMissingKeys)
	})

	t.Run("mailbox without users", func(t *testing.T) {
		cfg := mailboxConfig("127.0.0.1:1")
		cfg.Users.Users = nil
		_, err := New(ctx, WithConfig(cfg), WithKeyStore(mailboxKeys(t)))
		assert.ErrorIs(t, err, ErrMissingUsers)
	})

	t.Run("nil options", func(t *testing.T) {
		_, err := New(ctx, WithConfig(nil))
		assert.Error(t, err)
		_, err = New(ctx, WithDirectory(nil))
		assert.Error(t, err)
	})
}

func TestNode_MailboxRegistrationConflict(t *testing.T) {
	root := directory.NewZone("")
	require.NoError(t, root.RegisterZone(context.Background(), "planet", directory.NewZone("planet")))
	require.NoError(t, root.RegisterMailbox(context.Background(), "earth.planet", "10.0.0.1:1"))

	node, err := New(context.Background(),
		WithConfig(mailboxConfig("")),
		WithKeyStore(mailboxKeys(t)),
		WithDirectory(root),
	)
	require.NoError(t, err)
	err = node.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, directory.ErrAlreadyRegistered)
	assert.ErrorIs(t, node.Start(context.Background()), ErrNodeClosed)
}

// ════════════════════════════════════════════════════════════════════════════
// 场景
// ════════════════════════════════════════════════════════════════════════════

// TestMailboxNode_SubmitListShowDelete 直接提交到邮箱节点并经 DMAP 取回
func TestMailboxNode_SubmitListShowDelete(t *testing.T) {
	ctx := context.Background()
	root := directory.NewZone("")

	cfg := mailboxConfig("")
	cfg.Node.Domain = "x"
	cfg.Users.Users = map[string]string{"b": "secret"}
	node := startNode(t, cfg, WithKeyStore(mailboxKeys(t)), WithDirectory(root))

	addr, err := root.Resolve(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, node.SubmissionAddr(), addr)

	submit(t, node.SubmissionAddr(), &types.Message{
		From:    "a@x",
		To:      []string{"b@x"},
		Subject: "hi",
		Data:    "hello",
		Hash:    "H",
	})

	clientKeys := keystore.NewMemory(sharedSecret)
	clientKeys.AddPublicKey(earthComponent, &mailboxKey(t).PublicKey)
	rc, err := retrieval.Dial(ctx, node.RetrievalAddr(), retrieval.ClientOptions{ReplyTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer rc.Close()
	_, err = rc.StartSecure(ctx, clientKeys)
	require.NoError(t, err)
	require.NoError(t, rc.Login(ctx, "b", "secret"))

	list, err := rc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []retrieval.Summary{{Index: 1, From: "a@x", Subject: "hi"}}, list)

	msg, err := rc.Show(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a@x", msg.From)
	assert.Equal(t, []string{"b@x"}, msg.To)
	assert.Equal(t, "hi", msg.Subject)
	assert.Equal(t, "hello", msg.Data)
	assert.Equal(t, "H", msg.Hash)

	require.NoError(t, rc.Delete(ctx, 1))
	list, err = rc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	t.Log("✅ 提交、列出、查看、删除")
}

// TestMailFlow 全部角色经网络协作：提交、解析、投递、统计、取信与校验
func TestMailFlow(t *testing.T) {
	ctx := context.Background()

	rootNS := startNode(t, nameserverConfig("", ""))
	startNode(t, nameserverConfig("planet", rootNS.DirectoryAddr()))

	monitorCfg := config.NewConfig()
	monitorCfg.Node.Role = config.RoleMonitor
	monitorCfg.Monitoring.Addr = "127.0.0.1:0"
	monitor := startNode(t, monitorCfg)

	earth := startNode(t, mailboxConfig(rootNS.DirectoryAddr()), WithKeyStore(mailboxKeys(t)))
	transfer := startNode(t, transferConfig(rootNS.DirectoryAddr(), monitor.MonitorAddr()),
		WithKeyStore(keystore.NewMemory(sharedSecret)))

	submit(t, transfer.SubmissionAddr(), &types.Message{
		From:    "zaphod@univer.ze",
		To:      []string{"trillian@earth.planet", "arthur@earth.planet"},
		Subject: "hitchhiking",
		Data:    "don't panic",
	})

	require.Eventually(t, func() bool {
		a, _ := earth.Store().List("arthur")
		tr, _ := earth.Store().List("trillian")
		return len(a) == 1 && len(tr) == 1
	}, 10*time.Second, 20*time.Millisecond)

	// 客户端只持有公钥与共享密钥
	clientKeys := keystore.NewMemory(sharedSecret)
	clientKeys.AddPublicKey(earthComponent, &mailboxKey(t).PublicKey)

	rc, err := retrieval.Dial(ctx, earth.RetrievalAddr(), retrieval.ClientOptions{ReplyTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer rc.Close()
	_, err = rc.StartSecure(ctx, clientKeys)
	require.NoError(t, err)
	require.NoError(t, rc.Login(ctx, "trillian", "heart"))

	list, err := rc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "zaphod@univer.ze", list[0].From)
	assert.Equal(t, "hitchhiking", list[0].Subject)

	msg, err := rc.Verify(ctx, sharedSecret, list[0].Index)
	require.NoError(t, err)
	assert.Equal(t, "don't panic", msg.Data)
	assert.Equal(t, []string{"trillian@earth.planet", "arthur@earth.planet"}, msg.To)
	require.NoError(t, rc.Quit(ctx))

	// 一个目标域只产生一条统计
	require.Eventually(t, func() bool {
		return len(monitor.Collector().Servers()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []stats.Count{{Key: transfer.SubmissionAddr(), Count: 1}}, monitor.Collector().Servers())
	assert.Equal(t, []stats.Count{{Key: "zaphod@univer.ze", Count: 1}}, monitor.Collector().Addresses())

	assert.Equal(t, []string{"planet"}, rootNS.Zones())
	assert.Equal(t, 0, transfer.Queue().Len())

	t.Log("✅ 邮件经中转节点投递并可在邮箱节点读取")
}

// TestTransfer_BouncesUnregisteredDomain 进程内目录，未登记的域产生退信
func TestTransfer_BouncesUnregisteredDomain(t *testing.T) {
	root := directory.NewZone("")
	require.NoError(t, root.RegisterZone(context.Background(), "planet", directory.NewZone("planet")))

	users, err := userstore.New(map[string]string{"arthur": "towel"})
	require.NoError(t, err)
	mailboxCfg := mailboxConfig("")
	mailboxCfg.Users.Users = nil
	earth := startNode(t, mailboxCfg,
		WithKeyStore(mailboxKeys(t)),
		WithUsers(users),
		WithDirectory(root),
	)

	transferCfg := transferConfig("", "")
	transfer := startNode(t, transferCfg, WithDirectory(root))

	submit(t, transfer.SubmissionAddr(), &types.Message{
		From:    "arthur@earth.planet",
		To:      []string{"ghost@nowhere.planet"},
		Subject: "anyone there",
		Data:    "hello",
	})

	require.Eventually(t, func() bool {
		list, _ := earth.Store().List("arthur")
		return len(list) == 1
	}, 10*time.Second, 20*time.Millisecond)

	list, err := earth.Store().List("arthur")
	require.NoError(t, err)
	bounce := list[0].Message
	assert.Equal(t, dispatch.BounceSubject, bounce.Subject)
	assert.Equal(t, "mailer@[127.0.0.1]", bounce.From)
	assert.Contains(t, bounce.Data, "nowhere.planet")
	// 中转节点没有密钥，退信不带标签
	assert.Empty(t, bounce.Hash)

	t.Log("✅ 未登记的域产生退信")
}
