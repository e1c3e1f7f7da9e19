package warehouse

import "context"

// Request-scoped identity and warehouse scope. The core never reads ambient
// global state; every operation takes these from the supplied context, so
// concurrent contexts with different warehouses are safe.
// リクエストスコープの実行者と倉庫スコープ。コアはグローバル状態を参照せず、
// すべての操作が渡されたコンテキストから取得するため、異なる倉庫の
// 並行コンテキストでも安全に動作する。

type contextKey string

const (
	actorContextKey     contextKey = "actor_id"
	warehouseContextKey contextKey = "warehouse_id"
)

// WithActor returns a context carrying the acting user
// 実行者を保持するコンテキストを返す
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorContextKey, actorID)
}

// ActorFromContext extracts the acting user, defaulting to "system"
// コンテキストから実行者を取得（未設定時は"system"）
func ActorFromContext(ctx context.Context) string {
	if actorID, ok := ctx.Value(actorContextKey).(string); ok && actorID != "" {
		return actorID
	}
	return "system"
}

// WithWarehouse returns a context scoped to one warehouse
// 単一倉庫にスコープされたコンテキストを返す
func WithWarehouse(ctx context.Context, warehouseID string) context.Context {
	return context.WithValue(ctx, warehouseContextKey, warehouseID)
}

// WarehouseFromContext extracts the warehouse scope; empty means unscoped
// コンテキストから倉庫スコープを取得（空はスコープなし）
func WarehouseFromContext(ctx context.Context) string {
	if warehouseID, ok := ctx.Value(warehouseContextKey).(string); ok {
		return warehouseID
	}
	return ""
}

// inWarehouseScope reports whether an entity's warehouse is visible to the caller.
// Entities outside the caller's scope are treated as not found.
// エンティティの倉庫が呼び出し側から見えるかを判定。スコープ外は存在しない扱い。
func inWarehouseScope(ctx context.Context, warehouseID string) bool {
	scope := WarehouseFromContext(ctx)
	return scope == "" || scope == warehouseID
}
