package warehouse

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// appendAudit appends an immutable audit record after a committed mutation.
// It runs outside the operation's transaction so audit history exists only
// for committed effects; an append failure is logged, never propagated.
// コミット済みの変更後に不変の監査記録を追記する。操作のトランザクション外で
// 実行されるため、監査履歴はコミットされた効果に対してのみ残る。
// 追記失敗はログのみで、呼び出し側へは伝播しない。
func appendAudit(ctx context.Context, storage Storage, logger *zap.Logger, enabled bool, operation string, key InventoryKey, delta int64, reason string) {
	if !enabled {
		return
	}
	record := &AuditRecord{
		ID:          NewID(),
		Operation:   operation,
		ActorID:     ActorFromContext(ctx),
		WarehouseID: key.WarehouseID,
		ProductID:   key.ProductID,
		LocationID:  key.LocationID,
		BatchNumber: key.BatchNumber,
		LotCode:     key.LotCode,
		Delta:       delta,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	if err := storage.AppendAudit(ctx, record); err != nil {
		logger.Error("監査記録の追記に失敗しました",
			zap.String("operation", operation),
			zap.String("key", key.String()),
			zap.Error(err),
		)
	}
}
