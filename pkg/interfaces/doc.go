// Package interfaces 定义 mailmesh 组件之间的契约
//
// 一个接口文件对应一个实现目录：
//   - keystore.go   - 密钥提供者（internal/core/keystore）
//   - users.go      - 用户注册表（internal/core/userstore）
//   - directory.go  - 分层名字目录（internal/core/directory）
//   - mailbox.go    - 邮箱存储（internal/core/mailbox）
//   - acceptor.go   - 提交会话的收件策略（mailbox / dispatch）
//   - stats.go      - 投递统计汇（internal/core/stats）
package interfaces
