package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	"github.com/dep2p/go-mailmesh/internal/protocol/command"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

// Greeting 服务端问候
const Greeting = "ok DMTP2.0"

// Protocol 指标中使用的协议名
const Protocol = "dmtp"

type state int

const (
	stateIdle state = iota
	stateTransaction
)

var (
	inTx       = []state{stateTransaction}
	anyTx      = []state{stateIdle, stateTransaction}
	deniedNoTx = "no transaction, use begin"
)

var commands = command.Table[state, *session]{
	"begin":   {States: []state{stateIdle}, Arity: []int{0}, Denied: "transaction already open", Handle: (*session).handleBegin},
	"from":    {States: inTx, Arity: []int{1}, Denied: deniedNoTx, Handle: (*session).handleFrom},
	"to":      {States: inTx, Text: true, Denied: deniedNoTx, Handle: (*session).handleTo},
	"subject": {States: inTx, Text: true, Denied: deniedNoTx, Handle: (*session).handleSubject},
	"data":    {States: inTx, Text: true, Denied: deniedNoTx, Handle: (*session).handleData},
	"hash":    {States: inTx, Arity: []int{1}, Denied: deniedNoTx, Handle: (*session).handleHash},
	"send":    {States: inTx, Arity: []int{0}, Denied: deniedNoTx, Handle: (*session).handleSend},
	"quit":    {States: anyTx, Arity: []int{0}, Handle: (*session).handleQuit},
}

// errQuit 结束会话
var errQuit = errors.New("quit")

// draft 事务中尚未提交的邮件
type draft struct {
	msg        types.Message
	hasFrom    bool
	hasTo      bool
	hasSubject bool
	hasData    bool
}

// session 单个连接的提交会话，只由其连接的 goroutine 访问
type session struct {
	srv   *Server
	ctx   context.Context
	conn  *lineconn.Conn
	state state
	draft *draft
}

func (s *session) serve() {
	remote := s.conn.RemoteAddr().String()
	log.Debug("提交会话开始", "remote", remote)
	defer log.Debug("提交会话结束", "remote", remote)

	if err := s.conn.WriteLine(Greeting); err != nil {
		return
	}
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			if errors.Is(err, lineconn.ErrLineTooLong) {
				_ = s.conn.WriteLine("error line too long")
			}
			return
		}

		err = commands.Dispatch(s, s.state, line)
		if err == nil {
			continue
		}
		if errors.Is(err, errQuit) {
			return
		}
		if rej, ok := command.IsReject(err); ok {
			if werr := s.conn.WriteLine("error " + rej.Reason); werr != nil {
				return
			}
			continue
		}
		log.Debug("提交会话异常终止", "remote", remote, "err", err)
		return
	}
}

func (s *session) ok(detail ...string) error {
	if len(detail) == 0 {
		return s.conn.WriteLine("ok")
	}
	return s.conn.WriteLine("ok " + strings.Join(detail, " "))
}

func (s *session) handleBegin([]string) error {
	s.state = stateTransaction
	s.draft = &draft{msg: types.Message{ID: uuid.NewString()}}
	return s.ok()
}

func (s *session) handleFrom(args []string) error {
	if _, _, err := types.SplitAddress(args[0]); err != nil {
		return command.Rejectf("invalid sender address")
	}
	s.draft.msg.From = args[0]
	s.draft.hasFrom = true
	return s.ok()
}

func (s *session) handleTo(args []string) error {
	to, err := types.ParseRecipients(args[0])
	if err != nil {
		if errors.Is(err, types.ErrNoRecipients) {
			return command.Rejectf("no recipients")
		}
		return command.Rejectf("invalid recipient address")
	}
	n, err := s.srv.acceptor.Recipients(to)
	if err != nil {
		return command.Rejectf("%s", err.Error())
	}
	s.draft.msg.To = to
	s.draft.hasTo = true
	return s.ok(fmt.Sprint(n))
}

func (s *session) handleSubject(args []string) error {
	s.draft.msg.Subject = args[0]
	s.draft.hasSubject = true
	return s.ok()
}

func (s *session) handleData(args []string) error {
	s.draft.msg.Data = args[0]
	s.draft.hasData = true
	return s.ok()
}

func (s *session) handleHash(args []string) error {
	s.draft.msg.Hash = args[0]
	return s.ok()
}

func (s *session) handleSend([]string) error {
	d := s.draft
	var missing []string
	for _, f := range []struct {
		name string
		set  bool
	}{{"from", d.hasFrom}, {"to", d.hasTo}, {"subject", d.hasSubject}, {"data", d.hasData}} {
		if !f.set {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return command.Rejectf("missing %s", strings.Join(missing, ","))
	}

	msg := d.msg.Clone()
	if msg.Hash == "" {
		s.srv.sign(msg)
	}

	s.srv.metrics.Submission(Protocol)
	if err := s.srv.acceptor.Accept(s.ctx, msg); err != nil {
		log.Info("邮件未被受理", "id", msg.ID, "from", msg.From, "err", err)
		return command.Rejectf("%s", err.Error())
	}
	s.srv.metrics.Accepted()
	log.Info("邮件已受理", "id", msg.ID, "from", msg.From, "to", types.JoinRecipients(msg.To))

	s.state = stateIdle
	s.draft = nil
	return s.ok()
}

func (s *session) handleQuit([]string) error {
	_ = s.conn.WriteLine("ok bye")
	return errQuit
}
