package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/alertfeed/pkg/event"
)

func TestInputFromEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		eventType    event.Type
		data         any
		wantType     Type
		wantPriority Priority
		wantTitle    string
	}{
		{
			name:         "在庫僅少は警告",
			eventType:    event.TypeStockLow,
			data:         event.StockAlertData{SKU: "SKU-1", ProductName: "りんご", Quantity: 3, Threshold: 10},
			wantType:     TypeWarning,
			wantPriority: PriorityMedium,
			wantTitle:    "在庫が少なくなっています",
		},
		{
			name:         "在庫切れはエラー",
			eventType:    event.TypeStockOut,
			data:         event.StockAlertData{SKU: "SKU-1", ProductName: "りんご"},
			wantType:     TypeError,
			wantPriority: PriorityHigh,
			wantTitle:    "在庫切れ",
		},
		{
			name:         "売上確定は成功",
			eventType:    event.TypeSaleCompleted,
			data:         event.SaleCompletedData{OrderID: "order-1", Amount: 1200, Currency: "JPY"},
			wantType:     TypeSuccess,
			wantPriority: PriorityLow,
			wantTitle:    "売上が確定しました",
		},
		{
			name:         "決済失敗はエラー",
			eventType:    event.TypePaymentFailed,
			data:         event.PaymentData{PaymentID: "pay-1", OrderID: "order-1", Reason: "card declined"},
			wantType:     TypeError,
			wantPriority: PriorityHigh,
			wantTitle:    "決済に失敗しました",
		},
		{
			name:         "システムメッセージはレベルを種類に使う",
			eventType:    event.TypeSystemMessage,
			data:         event.SystemMessageData{Title: "メンテナンス", Message: "22時から", Level: "warning"},
			wantType:     TypeWarning,
			wantPriority: PriorityMedium,
			wantTitle:    "メンテナンス",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, err := event.New(tt.eventType, tt.data)
			require.NoError(t, err)

			in, err := InputFromEvent(e)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, in.Type)
			assert.Equal(t, tt.wantPriority, in.Priority)
			assert.Equal(t, tt.wantTitle, in.Title)
			assert.Equal(t, e.ID, in.Data["event_id"])
			assert.Equal(t, string(tt.eventType), in.Data["event_type"])
		})
	}

	t.Run("未知のイベント種類はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := InputFromEvent(&event.Event{ID: "e-1", EventType: "AlbumCreated"})
		assert.Error(t, err)
	})

	t.Run("データが壊れている場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := InputFromEvent(&event.Event{ID: "e-1", EventType: event.TypeStockLow, Data: json.RawMessage(`"oops"`)})
		assert.Error(t, err)
	})

	t.Run("nilはエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := InputFromEvent(nil)
		assert.Error(t, err)
	})
}

func TestFeed_Ingest(t *testing.T) {
	t.Parallel()

	t.Run("イベントがローカル通知として先頭に追加されること", func(t *testing.T) {
		t.Parallel()

		f := newTestFeed(t, "[]")
		e, err := event.New(event.TypeStockLow, event.StockAlertData{SKU: "SKU-9", ProductName: "みかん", Quantity: 1, Threshold: 5})
		require.NoError(t, err)

		n, err := f.Ingest(e)
		require.NoError(t, err)
		assert.Equal(t, OriginLocal, n.Origin)
		assert.Equal(t, TypeWarning, n.Type)
		assert.Contains(t, n.Message, "SKU-9")

		items := f.Notifications()
		require.Len(t, items, 1)
		assert.Equal(t, n.ID, items[0].ID)
	})
}
