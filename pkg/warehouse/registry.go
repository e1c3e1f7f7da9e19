package warehouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Registry provides location master data and centralizes the placement
// checks (existence, active, lock, capacity, type) every component runs
// before touching the ledger
// ロケーションマスタを提供し、台帳操作前に全コンポーネントが行う
// 配置チェック（存在・アクティブ・ロック・収容数・タイプ）を一元化
type Registry struct {
	storage Storage     // ストレージ層
	logger  *zap.Logger // ログ
}

// NewRegistry creates a new location registry
// 新しいロケーションレジストリを作成
func NewRegistry(storage Storage, logger *zap.Logger) *Registry {
	return &Registry{
		storage: storage,
		logger:  logger,
	}
}

// GetLocation retrieves a location visible to the caller's warehouse scope
// 呼び出し側の倉庫スコープから見えるロケーションを取得
func (r *Registry) GetLocation(ctx context.Context, locationID string) (*Location, error) {
	location, err := r.storage.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, location.WarehouseID) {
		return nil, ErrLocationNotFound
	}
	return location, nil
}

// ListLocations lists the locations of one warehouse
// 倉庫のロケーション一覧を取得
func (r *Registry) ListLocations(ctx context.Context, warehouseID string) ([]Location, error) {
	if err := ValidateID("warehouse_id", warehouseID); err != nil {
		return nil, err
	}
	return r.storage.ListLocationsByWarehouse(ctx, warehouseID)
}

// requireActive loads a location and verifies it exists, is active and is in scope
// ロケーションを取得し、存在・アクティブ・スコープ内であることを確認
func (r *Registry) requireActive(ctx context.Context, st Store, locationID string) (*Location, error) {
	location, err := st.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, location.WarehouseID) {
		return nil, ErrLocationNotFound
	}
	if !location.IsActive {
		return nil, ErrLocationNotFound
	}
	return location, nil
}

// requireMutable additionally rejects locked locations
// ロック中のロケーションをさらに拒否
func (r *Registry) requireMutable(ctx context.Context, st Store, locationID string) (*Location, error) {
	location, err := r.requireActive(ctx, st, locationID)
	if err != nil {
		return nil, err
	}
	if location.IsLocked {
		return nil, &DomainError{
			Kind:    KindLockedResource,
			Message: "ロケーションはロックされています",
			Context: location.Code,
		}
	}
	return location, nil
}

// checkCapacity verifies that adding delta units keeps occupancy within the
// location's capacity limit. Unlimited when no limit is set.
// delta単位の追加が収容数上限に収まることを確認。上限未設定は無制限。
func (r *Registry) checkCapacity(ctx context.Context, st Store, location *Location, delta int64) error {
	if delta <= 0 || location.MaxCapacityUnits == nil {
		return nil
	}
	occupancy, err := st.SumQuantityByLocation(ctx, location.ID)
	if err != nil {
		return NewStorageError("sum_quantity", "ロケーション占有数の取得に失敗しました", err)
	}
	if occupancy+delta > *location.MaxCapacityUnits {
		return &DomainError{
			Kind:    KindCapacityExceeded,
			Message: "ロケーションの収容数を超えています",
			Context: fmt.Sprintf("location=%s, occupancy=%d, delta=%d, capacity=%d", location.Code, occupancy, delta, *location.MaxCapacityUnits),
		}
	}
	return nil
}
