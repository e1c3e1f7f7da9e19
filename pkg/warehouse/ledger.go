package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the movement engine
// 在庫移動エンジンの設定を保持
type Config struct {
	AuditEnabled          bool `yaml:"audit_enabled"`            // 監査ログ有効
	DefaultShelfLifeYears int  `yaml:"default_shelf_life_years"` // 商品マスタ未設定時の有効年数
}

// DefaultConfig returns the default engine configuration
// エンジンのデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		AuditEnabled:          true,
		DefaultShelfLifeYears: 6,
	}
}

// AdjustOptions carries optional metadata for a ledger adjustment
// 台帳調整の任意メタデータを保持
type AdjustOptions struct {
	ExpiryDate *time.Time // 新規記録作成時の有効期限
	Reason     string     // 監査記録に残す理由
}

// Ledger is the single source of truth for on-hand quantity. Adjust is the
// only way quantity ever changes; every other component funnels its
// mutations through it so the capacity and non-negativity checks stay
// centralized.
// 現在庫数量の唯一の真実。数量変更はAdjustのみで行われ、他のすべての
// コンポーネントが変更をここへ集約するため、収容数と非負チェックが一元化される。
type Ledger struct {
	storage  Storage     // ストレージ層
	registry *Registry   // ロケーションレジストリ
	logger   *zap.Logger // ログ
	config   *Config     // 設定
}

// NewLedger creates a new inventory ledger
// 新しい在庫台帳を作成
func NewLedger(storage Storage, registry *Registry, logger *zap.Logger, config *Config) *Ledger {
	if config == nil {
		config = DefaultConfig()
	}
	return &Ledger{
		storage:  storage,
		registry: registry,
		logger:   logger,
		config:   config,
	}
}

// Adjust applies one quantity delta to the record at key inside its own
// transaction. Returns the new quantity at the key (zero when pruned).
// 単独トランザクション内でキーの記録に数量変化を適用。
// 適用後の数量を返す（削除された場合はゼロ）。
func (l *Ledger) Adjust(ctx context.Context, key InventoryKey, delta int64, opts AdjustOptions) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	if err := ValidateDelta(delta); err != nil {
		return 0, err
	}

	var newQuantity int64
	err := l.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		quantity, err := l.adjust(ctx, st, key, delta, opts)
		if err != nil {
			return err
		}
		newQuantity = quantity
		return nil
	})
	if err != nil {
		return 0, err
	}

	appendAudit(ctx, l.storage, l.logger, l.config.AuditEnabled, "adjust", key, delta, opts.Reason)

	l.logger.Info("在庫調整完了",
		zap.String("key", key.String()),
		zap.Int64("delta", delta),
		zap.Int64("new_quantity", newQuantity),
	)

	return newQuantity, nil
}

// adjust applies a delta inside an ambient transaction. This is the single
// primitive every other component calls; it may create, update, or remove
// the key's quantity mapping.
// 進行中のトランザクション内で数量変化を適用。他のすべてのコンポーネントが
// 呼び出す唯一のプリミティブで、キーの数量マッピングを作成・更新・削除しうる。
func (l *Ledger) adjust(ctx context.Context, st Store, key InventoryKey, delta int64, opts AdjustOptions) (int64, error) {
	location, err := l.registry.requireMutable(ctx, st, key.LocationID)
	if err != nil {
		return 0, err
	}
	if location.WarehouseID != key.WarehouseID {
		return 0, NewValidationError("warehouse_id", "ロケーションは指定された倉庫に属していません", key.LocationID)
	}
	if err := l.registry.checkCapacity(ctx, st, location, delta); err != nil {
		return 0, err
	}

	record, err := st.GetInventory(ctx, key)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return 0, NewStorageError("get_inventory", "在庫記録の取得に失敗しました", err)
	}

	if record == nil {
		if delta < 0 {
			return 0, &DomainError{
				Kind:    KindInsufficientStock,
				Message: "在庫が不足しています",
				Context: fmt.Sprintf("key=%s, on_hand=0, delta=%d", key.String(), delta),
			}
		}
		record = &InventoryRecord{
			ID:          NewID(),
			WarehouseID: key.WarehouseID,
			ProductID:   key.ProductID,
			LocationID:  key.LocationID,
			BatchNumber: key.BatchNumber,
			LotCode:     key.LotCode,
			Quantity:    delta,
			ExpiryDate:  opts.ExpiryDate,
			UpdatedAt:   time.Now(),
			UpdatedBy:   ActorFromContext(ctx),
		}
		if err := st.CreateInventory(ctx, record); err != nil {
			return 0, NewStorageError("create_inventory", "在庫記録の作成に失敗しました", err)
		}
		return record.Quantity, nil
	}

	newQuantity := record.Quantity + delta
	if newQuantity < 0 {
		return 0, &DomainError{
			Kind:    KindInsufficientStock,
			Message: "在庫が不足しています",
			Context: fmt.Sprintf("key=%s, on_hand=%d, delta=%d", key.String(), record.Quantity, delta),
		}
	}

	// 数量ゼロの記録は保持せず削除する
	if newQuantity == 0 {
		if err := st.DeleteInventory(ctx, key); err != nil {
			return 0, NewStorageError("delete_inventory", "在庫記録の削除に失敗しました", err)
		}
		return 0, nil
	}

	record.Quantity = newQuantity
	record.UpdatedAt = time.Now()
	record.UpdatedBy = ActorFromContext(ctx)
	if err := st.UpdateInventory(ctx, record); err != nil {
		return 0, NewStorageError("update_inventory", "在庫記録の更新に失敗しました", err)
	}
	return newQuantity, nil
}

// Find looks up ledger records for allocation and reporting. Read-only.
// 引当・レポート用の在庫記録照会。読み取り専用。
func (l *Ledger) Find(ctx context.Context, filter InventoryFilter) ([]InventoryRecord, error) {
	if scope := WarehouseFromContext(ctx); scope != "" && filter.WarehouseID == "" {
		filter.WarehouseID = scope
	}
	records, err := l.storage.FindInventory(ctx, filter)
	if err != nil {
		return nil, NewStorageError("find_inventory", "在庫照会に失敗しました", err)
	}
	return records, nil
}

// GetQuantity returns the on-hand quantity at one exact key, zero when the
// mapping is absent
// 指定キーの現在庫数量を返す（マッピングが無い場合はゼロ）
func (l *Ledger) GetQuantity(ctx context.Context, key InventoryKey) (int64, error) {
	record, err := l.storage.GetInventory(ctx, key)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return 0, nil
		}
		return 0, NewStorageError("get_inventory", "在庫記録の取得に失敗しました", err)
	}
	return record.Quantity, nil
}

// validateKey validates the identifier fields of an inventory key
// 在庫キーの識別子フィールドをバリデーション
func validateKey(key InventoryKey) error {
	if err := ValidateID("warehouse_id", key.WarehouseID); err != nil {
		return err
	}
	if err := ValidateID("product_id", key.ProductID); err != nil {
		return err
	}
	return ValidateID("location_id", key.LocationID)
}
