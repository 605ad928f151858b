package feed

import (
	"fmt"

	"github.com/nao1215/alertfeed/pkg/event"
)

// eventRules はイベントの種類ごとの通知への変換規則。
var eventRules = map[event.Type]func(e *event.Event) (Input, error){
	event.TypeStockLow: func(e *event.Event) (Input, error) {
		d, err := event.DecodeData[event.StockAlertData](e)
		if err != nil {
			return Input{}, err
		}
		return Input{
			Type:     TypeWarning,
			Priority: PriorityMedium,
			Title:    "在庫が少なくなっています",
			Message:  fmt.Sprintf("%s (%s) の在庫が残り%d個です（閾値: %d）", d.ProductName, d.SKU, d.Quantity, d.Threshold),
			Data:     map[string]any{"sku": d.SKU, "quantity": d.Quantity, "threshold": d.Threshold},
		}, nil
	},
	event.TypeStockOut: func(e *event.Event) (Input, error) {
		d, err := event.DecodeData[event.StockAlertData](e)
		if err != nil {
			return Input{}, err
		}
		return Input{
			Type:     TypeError,
			Priority: PriorityHigh,
			Title:    "在庫切れ",
			Message:  fmt.Sprintf("%s (%s) の在庫がなくなりました", d.ProductName, d.SKU),
			Data:     map[string]any{"sku": d.SKU, "quantity": d.Quantity},
		}, nil
	},
	event.TypeSaleCompleted: func(e *event.Event) (Input, error) {
		d, err := event.DecodeData[event.SaleCompletedData](e)
		if err != nil {
			return Input{}, err
		}
		return Input{
			Type:     TypeSuccess,
			Priority: PriorityLow,
			Title:    "売上が確定しました",
			Message:  fmt.Sprintf("注文 %s: %d %s", d.OrderID, d.Amount, d.Currency),
			Data:     map[string]any{"order_id": d.OrderID, "amount": d.Amount, "currency": d.Currency},
		}, nil
	},
	event.TypePaymentReceived: func(e *event.Event) (Input, error) {
		d, err := event.DecodeData[event.PaymentData](e)
		if err != nil {
			return Input{}, err
		}
		return Input{
			Type:     TypeSuccess,
			Priority: PriorityMedium,
			Title:    "入金を確認しました",
			Message:  fmt.Sprintf("注文 %s: %d %s", d.OrderID, d.Amount, d.Currency),
			Data:     map[string]any{"payment_id": d.PaymentID, "order_id": d.OrderID, "amount": d.Amount},
		}, nil
	},
	event.TypePaymentFailed: func(e *event.Event) (Input, error) {
		d, err := event.DecodeData[event.PaymentData](e)
		if err != nil {
			return Input{}, err
		}
		return Input{
			Type:     TypeError,
			Priority: PriorityHigh,
			Title:    "決済に失敗しました",
			Message:  fmt.Sprintf("注文 %s: %s", d.OrderID, d.Reason),
			Data:     map[string]any{"payment_id": d.PaymentID, "order_id": d.OrderID},
		}, nil
	},
	event.TypeSystemMessage: func(e *event.Event) (Input, error) {
		d, err := event.DecodeData[event.SystemMessageData](e)
		if err != nil {
			return Input{}, err
		}
		return Input{
			Type:     parseType(d.Level),
			Priority: PriorityMedium,
			Title:    d.Title,
			Message:  d.Message,
		}, nil
	},
}

// InputFromEvent は業務イベントをローカル通知の入力に変換する。
func InputFromEvent(e *event.Event) (Input, error) {
	if e == nil {
		return Input{}, fmt.Errorf("イベントがnil")
	}
	rule, ok := eventRules[e.EventType]
	if !ok {
		return Input{}, fmt.Errorf("通知に変換できないイベント種類: %q", e.EventType)
	}

	in, err := rule(e)
	if err != nil {
		return Input{}, fmt.Errorf("%sイベントの変換に失敗: %w", e.EventType, err)
	}
	if in.Data == nil {
		in.Data = map[string]any{}
	}
	in.Data["event_id"] = e.ID
	in.Data["event_type"] = string(e.EventType)
	return in, nil
}

// Ingest は業務イベントをローカル通知としてフィードに追加する。
func (f *Feed) Ingest(e *event.Event) (Notification, error) {
	in, err := InputFromEvent(e)
	if err != nil {
		return Notification{}, err
	}
	return f.AddNotification(in)
}
