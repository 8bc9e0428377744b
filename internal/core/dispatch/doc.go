// Package dispatch 实现中转节点的投递队列与投递工作者
//
// 每个节点只有一个有界 FIFO 队列，所有提交会话共用；队列满时 send 阻塞，
// 队列空时工作者阻塞。唯一的工作者按目标域名逐个投递：经名字目录解析
// 邮箱节点地址，复用或新建提交协议连接并回放事务，成功后上报统计，
// 失败则向发件人所在域发送退信。退信只尝试一次。
//
// 投递为至多一次：出队后进程崩溃会丢失该邮件。
package dispatch
