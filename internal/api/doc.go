// Package api は公開JSONエンドポイントのペイロード型と契約を定義します。
//
// 責務:
//   - ユーザー一覧のレスポンスエンベロープとステータス文書の型
//   - プロセス全体で不変な固定ユーザー一覧
//   - 埋め込みの OpenAPI 文書 (openapi.yaml) の読み込みと検証
//
// タイムスタンプはすべて UTC のミリ秒精度 RFC 3339 形式で出力します。
package api
