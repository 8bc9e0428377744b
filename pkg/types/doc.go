// Package types 定义 mailmesh 的共享数据类型
//
// Message 是协议层、存储层与投递层之间传递的唯一载体；
// 交给 DispatchQueue 或写入 Mailbox 后不再修改。
package types
