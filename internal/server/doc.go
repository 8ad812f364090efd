// Package server は、HTTPサーバーとリクエストの振り分けを管理します。
//
// このパッケージは、HTTPサーバーの起動、順序付きルールによる振り分け、
// 静的ファイルの配信、固定JSONエンドポイント、SSRへのフォールバックを担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 登録順に評価し最初に一致したルールだけを実行するディスパッチャ
//   - ビルド済みアセット（1年・immutable）と公開ファイル（1時間）の配信
//   - /api/users と /api/status の応答
//   - 一致しなかったリクエストのレンダラへの委譲
//
// 仕様:
//   - ルーティングと共通ミドルウェアは gin を使用
//   - ルール一覧は起動時に一度だけ構築し、以後変更しない
//   - 開発サーバーが設定された開発モードでは静的配信の代わりに開発サーバーへプロキシする
//   - グレースフルシャットダウンに対応
package server
