// Package retrieval 实现邮箱访问协议（DMAP）
//
// 服务端问候 "ok DMAP2.0"。握手前只接受 startsecure 与 quit；
// startsecure 之后按 securechannel 完成密钥交换，此后每一行都以 AES-CTR 加密。
//
//	login <user> <password>
//	list                      每封邮件一行 "<序号> <发件人> <主题>"，以 ok 结束
//	show <序号>                from/to/subject/data/hash 各一行，以 ok 结束
//	delete <序号>
//	logout
//	quit                      回复 ok bye 并关闭
//
// 握手失败时直接关闭连接，不做任何应答。
package retrieval
