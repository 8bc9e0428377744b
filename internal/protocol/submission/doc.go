// Package submission 实现邮件提交协议（DMTP）
//
// 服务端问候 "ok DMTP2.0"，之后一问一答：
//
//	begin                      开启事务
//	from <address>             发件人
//	to <a@x>,<b@y>             收件人，回复 ok <n>
//	subject <text>             主题
//	data <text>                正文
//	hash <tag>                 完整性标签（可选）
//	send                       提交并结束事务
//	quit                       回复 ok bye 并关闭
//
// 收件人检查与邮件去向由 interfaces.Acceptor 决定：中转节点放入投递队列，
// 邮箱节点直接存入本地用户的邮箱。
package submission
