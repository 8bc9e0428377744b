// Package mailmesh 提供一个小型联邦邮件骨干网的节点
//
// 网络由四种角色的节点组成：
//
//   - transfer: 中转节点，经 DMTP 接收邮件，放入节点唯一的投递队列，
//     按目标域查询名字目录后转发给邮箱节点，失败时退信
//   - mailbox: 邮箱节点，最终一跳，存储邮件并通过 DMAP 提供访问
//   - nameserver: 名字目录的一个区域，按标签自右向左委派
//   - monitor: 收集中转节点发送的 UDP 统计
//
// # 快速开始
//
//	cfg := config.NewConfig()
//	cfg.Node.Role = config.RoleTransfer
//	cfg.Directory.RootAddr = "127.0.0.1:16400"
//
//	node, err := mailmesh.Start(ctx, mailmesh.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
// # 协议
//
//	┌──────────┐  DMTP   ┌──────────┐  DMTP   ┌──────────┐  DMAP   ┌──────────┐
//	│  client  │ ──────▶ │ transfer │ ──────▶ │ mailbox  │ ◀────── │  client  │
//	└──────────┘         └────┬─────┘         └────┬─────┘         └──────────┘
//	                          │ resolve            │ register
//	                          ▼                    ▼
//	                     ┌─────────────────────────────┐
//	                     │     nameserver (zones)      │
//	                     └─────────────────────────────┘
//
// 组件通过 fx 装配，每个组件包提供 Module()，根包按角色选择模块。
package mailmesh
