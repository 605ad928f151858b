// Package storage は通知フィードの永続化層を提供する。
//
// 値はJSONにシリアライズしてキーごとに保存する。SQLite実装とメモリ実装があり、
// TombstoneRepositoryはその上にユーザーごとのトゥームストーンの保存を載せる。
package storage
