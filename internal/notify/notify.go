// Package notify delivers the post-commit purchase event to an external
// marketing endpoint. Delivery is best-effort: the order is already
// committed, so failures are logged and swallowed.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/feastly/cloudkitchen/internal/domain/order"
)

var _ order.Notifier = (*PixelNotifier)(nil)

// PixelNotifier posts a JSON purchase event to a configured URL.
type PixelNotifier struct {
	url    string
	client *http.Client
}

// NewPixelNotifier creates a PixelNotifier. A short client timeout keeps the
// post-commit path from blocking checkout responses.
func NewPixelNotifier(url string) *PixelNotifier {
	return &PixelNotifier{
		url:    url,
		client: &http.Client{Timeout: 3 * time.Second},
	}
}

type purchaseEvent struct {
	OrderID  string              `json:"order_id"`
	Total    string              `json:"total"`
	Discount string              `json:"discount"`
	Items    []purchaseEventItem `json:"items"`
}

type purchaseEventItem struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SendPurchaseEvent fires the event for a committed order. Errors never
// propagate: a failed pixel must not make a successful order look failed.
func (n *PixelNotifier) SendPurchaseEvent(ctx context.Context, o *order.Order) {
	lg := zctx.From(ctx)

	ev := purchaseEvent{
		OrderID:  o.ID,
		Total:    o.Total.StringFixed(2),
		Discount: o.DiscountAmount.StringFixed(2),
		Items:    make([]purchaseEventItem, len(o.Items)),
	}
	for i, item := range o.Items {
		ev.Items[i] = purchaseEventItem{ItemID: item.MenuItemID, Name: item.Name, Quantity: item.Quantity}
	}

	body, err := json.Marshal(ev)
	if err != nil {
		lg.Warn("Failed to encode purchase event", zap.String("order_id", o.ID), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		lg.Warn("Failed to build purchase event request", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		lg.Warn("Purchase event delivery failed", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		lg.Warn("Purchase event rejected",
			zap.String("order_id", o.ID),
			zap.Int("status", resp.StatusCode),
		)
	}
}

// NopNotifier discards purchase events. Used when no pixel URL is
// configured.
type NopNotifier struct{}

// SendPurchaseEvent does nothing.
func (NopNotifier) SendPurchaseEvent(context.Context, *order.Order) {}
