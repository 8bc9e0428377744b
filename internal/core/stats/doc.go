// Package stats 实现投递统计的 UDP 上报与收集
//
// 中转节点每完成一次按域名的投递，就向监控节点发送一个数据报
// "<host:port> <发件人地址>"。UDP 不保证送达，丢失的数据报不会重发。
package stats
