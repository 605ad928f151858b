// Package httpclient はJSON APIを呼び出すHTTPクライアントを提供する。
//
// 通知フィードがリモートの通知サービスを呼び出す際に使用する。
// 認証トークンとユーザーIDはcontextから伝播し、2xx以外の応答はStatusErrorとして返す。
package httpclient
