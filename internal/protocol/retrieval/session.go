package retrieval

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	"github.com/dep2p/go-mailmesh/internal/core/mailbox"
	"github.com/dep2p/go-mailmesh/internal/core/securechannel"
	"github.com/dep2p/go-mailmesh/internal/protocol/command"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

// Greeting 服务端问候
const Greeting = "ok DMAP2.0"

// Protocol 指标中使用的协议名
const Protocol = "dmap"

type state int

const (
	stateInsecure state = iota
	stateAnonymous
	stateAuthenticated
)

const deniedAnonymous = "not logged in"

var commands = command.Table[state, *session]{
	"startsecure": {States: []state{stateInsecure}, Arity: []int{0}, Denied: "already secured", Handle: (*session).handleStartSecure},
	"login":       {States: []state{stateAnonymous}, Arity: []int{2}, Denied: "already logged in", Handle: (*session).handleLogin},
	"list":        {States: []state{stateAuthenticated}, Arity: []int{0}, Denied: deniedAnonymous, Handle: (*session).handleList},
	"show":        {States: []state{stateAuthenticated}, Arity: []int{1}, Denied: deniedAnonymous, Handle: (*session).handleShow},
	"delete":      {States: []state{stateAuthenticated}, Arity: []int{1}, Denied: deniedAnonymous, Handle: (*session).handleDelete},
	"logout":      {States: []state{stateAuthenticated}, Arity: []int{0}, Denied: deniedAnonymous, Handle: (*session).handleLogout},
	"quit":        {States: []state{stateInsecure, stateAnonymous, stateAuthenticated}, Arity: []int{0}, Handle: (*session).handleQuit},
}

var (
	errQuit      = errors.New("quit")
	errHandshake = errors.New("handshake aborted")
)

// session 单个连接的邮箱访问会话，只由其连接的 goroutine 访问
type session struct {
	srv   *Server
	ch    *securechannel.Channel
	state state
	user  string
}

func newSession(srv *Server, conn *lineconn.Conn) *session {
	return &session{srv: srv, ch: securechannel.New(conn)}
}

func (s *session) serve(remote string) {
	log.Debug("访问会话开始", "remote", remote)
	defer log.Debug("访问会话结束", "remote", remote, "user", s.user)

	if err := s.ch.WriteLine(Greeting); err != nil {
		return
	}
	for {
		line, err := s.ch.ReadLine()
		if err != nil {
			if errors.Is(err, lineconn.ErrLineTooLong) {
				_ = s.ch.WriteLine("error line too long")
			}
			return
		}

		err = s.dispatch(line)
		if err == nil {
			continue
		}
		if errors.Is(err, errQuit) || errors.Is(err, errHandshake) {
			return
		}
		if rej, ok := command.IsReject(err); ok {
			if werr := s.ch.WriteLine("error " + rej.Reason); werr != nil {
				return
			}
			continue
		}
		log.Debug("访问会话异常终止", "remote", remote, "err", err)
		return
	}
}

func (s *session) dispatch(line string) error {
	if s.state == stateInsecure {
		name, _, _ := strings.Cut(line, " ")
		if name = strings.ToLower(name); name != "startsecure" && name != "quit" {
			return command.Rejectf("secure channel required, use startsecure")
		}
	}
	return commands.Dispatch(s, s.state, line)
}

func (s *session) handleStartSecure([]string) error {
	priv, err := s.srv.keys.PrivateKey(s.srv.componentID)
	if err != nil {
		log.Warn("缺少组件私钥", "component", s.srv.componentID, "err", err)
		return command.Rejectf("secure channel unavailable")
	}

	// 握手总时长受限，超时即关闭连接
	timer := time.AfterFunc(s.srv.handshakeTimeout, func() { _ = s.ch.Close() })
	err = s.ch.Accept(s.srv.componentID, priv)
	timer.Stop()

	s.srv.metrics.Handshake(err == nil)
	if err != nil {
		return errHandshake
	}
	s.state = stateAnonymous
	return nil
}

func (s *session) handleLogin(args []string) error {
	ok := s.srv.users.Authenticate(args[0], args[1])
	s.srv.metrics.Login(ok)
	if !ok {
		return command.Rejectf("wrong username or password")
	}
	s.user = args[0]
	s.state = stateAuthenticated
	log.Debug("用户已登录", "user", s.user)
	return s.ch.WriteLine("ok")
}

func (s *session) handleList([]string) error {
	entries, err := s.srv.store.List(s.user)
	if err != nil {
		return command.Rejectf("mailbox unavailable")
	}
	for _, e := range entries {
		if err := s.ch.WriteLine(strconv.Itoa(e.Index) + " " + e.Message.From + " " + e.Message.Subject); err != nil {
			return err
		}
	}
	return s.ch.WriteLine("ok")
}

func (s *session) handleShow(args []string) error {
	msg, err := s.message(args[0])
	if err != nil {
		return err
	}
	for _, l := range []string{
		"from " + msg.From,
		"to " + types.JoinRecipients(msg.To),
		"subject " + msg.Subject,
		"data " + msg.Data,
		"hash " + msg.Hash,
		"ok",
	} {
		if err := s.ch.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) handleDelete(args []string) error {
	idx, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if err := s.srv.store.Delete(s.user, idx); err != nil {
		return command.Rejectf("unknown message id")
	}
	return s.ch.WriteLine("ok")
}

func (s *session) handleLogout([]string) error {
	log.Debug("用户已登出", "user", s.user)
	s.user = ""
	s.state = stateAnonymous
	return s.ch.WriteLine("ok")
}

func (s *session) handleQuit([]string) error {
	_ = s.ch.WriteLine("ok bye")
	return errQuit
}

func (s *session) message(arg string) (*types.Message, error) {
	idx, err := parseIndex(arg)
	if err != nil {
		return nil, err
	}
	msg, err := s.srv.store.Get(s.user, idx)
	if err != nil {
		if errors.Is(err, mailbox.ErrNotFound) {
			return nil, command.Rejectf("unknown message id")
		}
		return nil, command.Rejectf("mailbox unavailable")
	}
	return msg, nil
}

func parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil || idx <= 0 {
		return 0, command.Rejectf("invalid message id")
	}
	return idx, nil
}
