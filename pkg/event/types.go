package event

import (
	"encoding/json"
	"time"
)

// Source はイベントの発生元となる業務領域を表す。
type Source string

const (
	// SourceInventory は在庫管理を表す。
	SourceInventory Source = "Inventory"
	// SourceSales は販売を表す。
	SourceSales Source = "Sales"
	// SourcePayment は決済を表す。
	SourcePayment Source = "Payment"
	// SourceSystem はシステムを表す。
	SourceSystem Source = "System"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeStockLow は在庫が閾値を下回ったことを表す。
	TypeStockLow Type = "StockLow"
	// TypeStockOut は在庫が無くなったことを表す。
	TypeStockOut Type = "StockOut"
	// TypeSaleCompleted は販売が確定したことを表す。
	TypeSaleCompleted Type = "SaleCompleted"
	// TypePaymentReceived は入金を確認したことを表す。
	TypePaymentReceived Type = "PaymentReceived"
	// TypePaymentFailed は決済が失敗したことを表す。
	TypePaymentFailed Type = "PaymentFailed"
	// TypeSystemMessage はシステムからのお知らせを表す。
	TypeSystemMessage Type = "SystemMessage"
)

// sources はイベントの種類と発生元の対応。
var sources = map[Type]Source{
	TypeStockLow:        SourceInventory,
	TypeStockOut:        SourceInventory,
	TypeSaleCompleted:   SourceSales,
	TypePaymentReceived: SourcePayment,
	TypePaymentFailed:   SourcePayment,
	TypeSystemMessage:   SourceSystem,
}

// Source はイベントの種類に対応する発生元を返す。未知の種類の場合は空文字列を返す。
func (t Type) Source() Source {
	return sources[t]
}

// Valid は既知のイベント種類かどうかを返す。
func (t Type) Valid() bool {
	_, ok := sources[t]
	return ok
}

// Event はフィードに取り込まれる不変のイベントレコード。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Source はイベントの発生元。
	Source Source `json:"source"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// StockAlertData はStockLow / StockOutイベントのデータ。
type StockAlertData struct {
	// SKU は商品の在庫管理単位。
	SKU string `json:"sku"`
	// ProductName は商品名。
	ProductName string `json:"product_name"`
	// Quantity は現在の在庫数。
	Quantity int `json:"quantity"`
	// Threshold はアラートの閾値。
	Threshold int `json:"threshold"`
}

// SaleCompletedData はSaleCompletedイベントのデータ。
type SaleCompletedData struct {
	// OrderID は注文ID。
	OrderID string `json:"order_id"`
	// Amount は売上金額（最小通貨単位）。
	Amount int64 `json:"amount"`
	// Currency は通貨コード。
	Currency string `json:"currency"`
	// CustomerName は購入者名。
	CustomerName string `json:"customer_name,omitempty"`
}

// PaymentData はPaymentReceived / PaymentFailedイベントのデータ。
type PaymentData struct {
	// PaymentID は決済ID。
	PaymentID string `json:"payment_id"`
	// OrderID は対象の注文ID。
	OrderID string `json:"order_id"`
	// Amount は決済金額（最小通貨単位）。
	Amount int64 `json:"amount"`
	// Currency は通貨コード。
	Currency string `json:"currency"`
	// Reason は失敗理由。PaymentFailedのみ。
	Reason string `json:"reason,omitempty"`
}

// SystemMessageData はSystemMessageイベントのデータ。
type SystemMessageData struct {
	// Title はお知らせのタイトル。
	Title string `json:"title"`
	// Message はお知らせの本文。
	Message string `json:"message"`
	// Level は重要度（info, warning, error）。
	Level string `json:"level,omitempty"`
}
