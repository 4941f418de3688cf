// Package server は、カメラ操作と画像ギャラリーのHTTP APIを提供します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - パスごとのハンドラへのディスパッチ
//   - 1フレームずつのJPEG配信と連続MJPEG配信
//   - 保存済み画像の一覧・取得・削除
//
// 仕様:
//   - ルーティングはgin、MJPEG配信はgo-mjpegを使用
//   - ハンドラはdevice.Deviceを経由してのみハードウェアにアクセスする
//   - レスポンスのフィールド名とメッセージは既存クライアント互換
//   - /view と /download は同じハンドラで処理する
package server
