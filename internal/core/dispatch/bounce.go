package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dep2p/go-mailmesh/internal/core/integrity"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

// BounceSubject 退信主题
const BounceSubject = "Failed to send Email"

// BounceAddress 返回退信发件人地址 <sender>@[<host>]
func (w *Worker) BounceAddress() string {
	return fmt.Sprintf("%s@[%s]", w.opts.BounceSender, w.opts.Host)
}

// bounce 向原发件人所在域发送退信，失败只记录
func (w *Worker) bounce(ctx context.Context, orig *types.Message, domain string, cause error) {
	if orig.From == w.BounceAddress() {
		log.Warn("退信本身投递失败，不再退信", "id", orig.ID, "domain", domain)
		return
	}
	home := types.DomainOf(orig.From)
	if home == "" {
		log.Warn("发件人地址非法，无法退信", "id", orig.ID, "from", orig.From)
		w.opts.Metrics.Bounce(false)
		return
	}

	msg := &types.Message{
		ID:      uuid.NewString(),
		From:    w.BounceAddress(),
		To:      []string{orig.From},
		Subject: BounceSubject,
		Data:    bounceText(orig, domain, cause),
	}
	w.sign(msg)

	err := w.deliverTo(ctx, home, msg)
	w.opts.Metrics.Bounce(err == nil)
	if err != nil {
		log.Warn("退信失败", "id", orig.ID, "to", orig.From, "err", err)
		return
	}
	log.Info("已退信", "id", orig.ID, "bounce", msg.ID, "to", orig.From)
}

func bounceText(orig *types.Message, domain string, cause error) string {
	reason := cause.Error()
	if de, ok := cause.(*DeliveryError); ok {
		reason = fmt.Sprintf("%s failed: %v", de.Stage, de.Err)
	}
	text := fmt.Sprintf("could not deliver message %q to domain %s: %s", orig.Subject, domain, reason)
	// data 为单行字段
	return strings.Join(strings.Fields(text), " ")
}

func (w *Worker) sign(msg *types.Message) {
	if w.opts.Keys == nil {
		return
	}
	secret, err := w.opts.Keys.SharedSecret()
	if err != nil {
		return
	}
	if tag, err := integrity.Sign(secret, msg); err == nil {
		msg.Hash = tag
	}
}
