// Package feed はクライアントに表示する通知フィードの同期コアを提供する。
//
// ローカルで発生したイベントとリモートの通知サービスのスナップショットを、
// 楽観的な既読状態と永続化された「二度と表示しない」集合（トゥームストーン）を
// 考慮してマージする。ストアへの変更はすべて単一のオーナーゴルーチンを通して
// 直列化され、ネットワーク呼び出しはバックグラウンドで実行される。
package feed
