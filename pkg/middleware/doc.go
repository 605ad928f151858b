// Package middleware は通知フィードのHTTP APIで使用するGinミドルウェアを提供する。
//
// JWT認証トークンの検証、zerologによるリクエストログ、パニックリカバリ、
// CORS設定を含む。
package middleware
