// Package directory 实现分层名字目录
//
// 域名 a.b.c 自右向左解析：根区域持有以顶级标签 c 为键的子区域，
// 子区域再持有 b，依此类推；终端区域保存叶子名到邮箱节点地址的映射。
//
//	root := directory.NewZone("")
//	_ = root.RegisterZone(ctx, "planet", directory.NewZone("planet"))
//	_ = root.RegisterMailbox(ctx, "earth.planet", "10.0.0.7:16502")
//	addr, _ := directory.Lookup(ctx, root, "earth.planet")
//
// 区域可以分布在多个进程中：每个名字服务节点通过 Server 暴露自己的区域，
// 其他节点经 Pool 得到 RemoteZone 句柄。RPC 运行在 TCP + yamux 之上，
// 每次调用占用一个流，请求与响应以长度前缀的 protobuf 线格式编码。
// 区域句柄跨进程传递时即为其 RPC 地址。
//
// 每个区域的子区域表与叶子表各自并发安全，不存在全局锁。
package directory
