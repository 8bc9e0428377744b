package interfaces

// StatsSink 接收投递统计
type StatsSink interface {
	// Record 记录一次成功投递：server 为本节点 host:port，sender 为发件人地址
	Record(server, sender string) error
}
