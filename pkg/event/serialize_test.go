package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("StockAlertDataでイベントを正常に生成できること", func(t *testing.T) {
		t.Parallel()

		before := time.Now().UTC()
		ev, err := New(TypeStockLow, StockAlertData{SKU: "SKU-1", ProductName: "コーヒー豆", Quantity: 3, Threshold: 5})
		after := time.Now().UTC()
		require.NoError(t, err)

		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, SourceInventory, ev.Source)
		assert.Equal(t, TypeStockLow, ev.EventType)
		assert.False(t, ev.CreatedAt.Before(before))
		assert.False(t, ev.CreatedAt.After(after))
		assert.JSONEq(t, `{"sku":"SKU-1","product_name":"コーヒー豆","quantity":3,"threshold":5}`, string(ev.Data))
	})

	t.Run("未知のイベント種類でエラーが返ること", func(t *testing.T) {
		t.Parallel()

		_, err := New(Type("Unknown"), struct{}{})
		require.Error(t, err)
	})

	t.Run("シリアライズできないデータでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		_, err := New(TypeSystemMessage, make(chan int))
		require.Error(t, err)
	})

	t.Run("生成されるIDが毎回異なること", func(t *testing.T) {
		t.Parallel()

		a, err := New(TypeSaleCompleted, SaleCompletedData{OrderID: "o-1"})
		require.NoError(t, err)
		b, err := New(TypeSaleCompleted, SaleCompletedData{OrderID: "o-1"})
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestDecodeData(t *testing.T) {
	t.Parallel()

	t.Run("PaymentDataに正しくデコードできること", func(t *testing.T) {
		t.Parallel()

		ev, err := New(TypePaymentFailed, PaymentData{PaymentID: "p-1", OrderID: "o-1", Amount: 1500, Currency: "JPY", Reason: "カードの有効期限切れ"})
		require.NoError(t, err)

		got, err := DecodeData[PaymentData](ev)
		require.NoError(t, err)
		assert.Equal(t, "p-1", got.PaymentID)
		assert.Equal(t, int64(1500), got.Amount)
		assert.Equal(t, "カードの有効期限切れ", got.Reason)
	})

	t.Run("不正なJSONでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ev := &Event{EventType: TypeStockOut, Data: []byte(`{invalid`)}
		_, err := DecodeData[StockAlertData](ev)
		require.Error(t, err)
	})
}

func TestType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		typ    Type
		source Source
	}{
		{name: "StockOutは在庫管理", typ: TypeStockOut, source: SourceInventory},
		{name: "SaleCompletedは販売", typ: TypeSaleCompleted, source: SourceSales},
		{name: "PaymentReceivedは決済", typ: TypePaymentReceived, source: SourcePayment},
		{name: "SystemMessageはシステム", typ: TypeSystemMessage, source: SourceSystem},
		{name: "未知の種類は空", typ: Type("Nope"), source: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.source, tt.typ.Source())
			assert.Equal(t, tt.source != "", tt.typ.Valid())
		})
	}
}
