// internal/application/usecase/notifier.go
package usecase

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// NoticeKind classifies user-facing cart notifications.
type NoticeKind string

const (
	// NoticeAdded: a line was inserted or its quantity increased as requested.
	NoticeAdded NoticeKind = "added"

	// NoticeAdjusted: the requested quantity was clamped to available stock.
	NoticeAdjusted NoticeKind = "adjusted"

	// NoticeOutOfStock: the stock ceiling resolved to 0; the line was not
	// inserted (or was dropped during a merge).
	NoticeOutOfStock NoticeKind = "out_of_stock"

	// NoticeRemoved: a line was removed at the user's request.
	NoticeRemoved NoticeKind = "removed"

	// NoticeCleared: the whole cart was emptied.
	NoticeCleared NoticeKind = "cleared"
)

// Notice is a user-facing notification produced by a cart mutation or merge.
type Notice struct {
	ID        string     `json:"id"`
	Kind      NoticeKind `json:"kind"`
	ProductID string     `json:"productId,omitempty"`
	Qty       int        `json:"qty,omitempty"`
	Message   string     `json:"message"`
	At        time.Time  `json:"at"`
}

func newNotice(kind NoticeKind, productID string, qty int, msg string, now time.Time) Notice {
	return Notice{
		ID:        uuid.NewString(),
		Kind:      kind,
		ProductID: productID,
		Qty:       qty,
		Message:   msg,
		At:        now,
	}
}

// Notifier receives notices for passive display (toasts, SSE stream).
// Implementations must not block the mutation path.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to the process log. Default when no UI channel
// is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	log.Printf("[notice] kind=%s productId=%q qty=%d msg=%q", n.Kind, n.ProductID, n.Qty, n.Message)
}

// MultiNotifier fans a notice out to every given notifier. Nil entries are
// skipped.
func MultiNotifier(ns ...Notifier) Notifier {
	return NotifierFunc(func(n Notice) {
		for _, nf := range ns {
			if nf != nil {
				nf.Notify(n)
			}
		}
	})
}
