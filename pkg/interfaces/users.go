package interfaces

// UserRegistry 本地用户注册表，启动时加载一次
type UserRegistry interface {
	// Users 返回排序后的全部用户名
	Users() []string

	// Has 判断用户是否存在
	Has(user string) bool

	// Authenticate 校验口令
	Authenticate(user, password string) bool
}
