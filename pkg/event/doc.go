// Package event は通知フィードに流れ込むローカルな業務イベントを定義する。
//
// 在庫アラート、売上、決済、システムメッセージなど、クライアント側で
// 発生したイベントを共通のエンベロープで扱う。
package event
