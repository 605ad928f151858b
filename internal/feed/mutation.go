package feed

import "context"

// MarkAsRead は通知を即座に既読にし、通知サービスへの反映をバックグラウンドで行う。
//
// 反映に失敗してもログに残すだけで、既読を未読に戻すことはしない
// （既読→未読→既読のちらつきを避けるため）。手元とサーバーの差は、次回の
// PreserveOptimisticReads付きの突き合わせで解消される。重複呼び出しもそのまま送信する。
func (f *Feed) MarkAsRead(id string) {
	var (
		sess   Session
		remote bool
	)
	if !f.exec(func() {
		n, ok := f.store.Get(id)
		if ok {
			f.store.Update(id, func(n *Notification) { n.Read = true })
		}
		remote = !ok || n.Origin != OriginLocal
		sess = f.session
	}) {
		return
	}

	if !remote {
		return
	}
	f.syncInBackground("mark_read", sess, func(ctx context.Context) error {
		return f.backend.MarkRead(ctx, id)
	})
}

// MarkAllAsRead はすべての通知を即座に既読にし、通知サービスへ一括の既読化を1回だけ送る。
func (f *Feed) MarkAllAsRead() {
	var sess Session
	if !f.exec(func() {
		f.store.UpdateAll(func(n *Notification) { n.Read = true })
		sess = f.session
	}) {
		return
	}

	f.syncInBackground("mark_all_read", sess, func(ctx context.Context) error {
		return f.backend.MarkAllRead(ctx)
	})
}

// syncInBackground は通知サービスへの反映を待たずに実行する。
// 結果は呼び出し元に返さず、失敗はログにのみ残す。
func (f *Feed) syncInBackground(op string, sess Session, call func(ctx context.Context) error) {
	if !sess.Valid() {
		return
	}
	f.goBackground(func() {
		if err := call(WithSession(f.ctx, sess)); err != nil {
			f.logFailure(op, err)
		}
	})
}
