// Package mailbox 实现每用户的只增邮件存储
//
// 邮箱在构造时按用户注册表一次性创建，之后用户集合不变，
// 因此用户映射本身无需加锁；每个邮箱有独立的锁与递增序号。
package mailbox

import (
	"sort"
	"sync"

	"github.com/dep2p/go-mailmesh/internal/util/logger"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

var log = logger.Logger("mailbox")

// box 单个用户的邮箱
type box struct {
	mu       sync.Mutex
	next     int
	messages map[int]*types.Message
}

// Store 邮箱存储
type Store struct {
	boxes map[string]*box
}

// 确保实现接口
var _ pkgif.MailStore = (*Store)(nil)

// NewStore 为每个用户创建空邮箱
func NewStore(users []string) *Store {
	s := &Store{boxes: make(map[string]*box, len(users))}
	for _, u := range users {
		s.boxes[u] = &box{next: 1, messages: make(map[int]*types.Message)}
	}
	return s
}

func (s *Store) box(user string) (*box, error) {
	b, ok := s.boxes[user]
	if !ok {
		return nil, ErrUnknownUser
	}
	return b, nil
}

// HasUser 实现 MailStore
func (s *Store) HasUser(user string) bool {
	_, ok := s.boxes[user]
	return ok
}

// Users 返回排序后的用户列表
func (s *Store) Users() []string {
	users := make([]string, 0, len(s.boxes))
	for u := range s.boxes {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Put 实现 MailStore，分配序号与写入在同一临界区内完成
func (s *Store) Put(user string, msg *types.Message) (int, error) {
	b, err := s.box(user)
	if err != nil {
		return 0, err
	}
	stored := msg.Clone()

	b.mu.Lock()
	idx := b.next
	b.next++
	b.messages[idx] = stored
	b.mu.Unlock()

	log.Debug("邮件已存储", "user", user, "index", idx, "id", msg.ID)
	return idx, nil
}

// Get 实现 MailStore
func (s *Store) Get(user string, index int) (*types.Message, error) {
	b, err := s.box(user)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.messages[index]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

// Delete 实现 MailStore，序号不会被复用
func (s *Store) Delete(user string, index int) error {
	b, err := s.box(user)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.messages[index]; !ok {
		return ErrNotFound
	}
	delete(b.messages, index)
	return nil
}

// List 实现 MailStore
func (s *Store) List(user string) ([]types.Entry, error) {
	b, err := s.box(user)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	entries := make([]types.Entry, 0, len(b.messages))
	for idx, m := range b.messages {
		entries = append(entries, types.Entry{Index: idx, Message: m.Clone()})
	}
	b.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries, nil
}
