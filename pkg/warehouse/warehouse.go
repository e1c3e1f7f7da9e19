package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Engine bundles every component of the fulfillment core over one storage
// backend
// フルフィルメントコアの全コンポーネントを1つのストレージバックエンド上に束ねる
type Engine struct {
	Registry    *Registry                // ロケーションレジストリ
	Ledger      *Ledger                  // 在庫台帳
	Receiving   *ReceivingPipeline       // 受領パイプライン
	Picking     *PickingEngine           // ピッキングエンジン
	Fulfillment *FulfillmentStateMachine // 注文状態機械
	Returns     *ReturnsProcessor        // 返品プロセッサ
	Transfers   *TransferOrchestrator    // 在庫移動オーケストレータ

	storage Storage
	logger  *zap.Logger
}

// NewEngine wires all components over the given storage backend
// 指定されたストレージバックエンド上に全コンポーネントを構築
func NewEngine(storage Storage, logger *zap.Logger, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	registry := NewRegistry(storage, logger)
	ledger := NewLedger(storage, registry, logger, config)
	return &Engine{
		Registry:    registry,
		Ledger:      ledger,
		Receiving:   NewReceivingPipeline(storage, ledger, registry, logger, config),
		Picking:     NewPickingEngine(storage, ledger, logger, config),
		Fulfillment: NewFulfillmentStateMachine(storage, ledger, registry, logger, config),
		Returns:     NewReturnsProcessor(storage, ledger, registry, logger, config),
		Transfers:   NewTransferOrchestrator(storage, ledger, logger, config),
		storage:     storage,
		logger:      logger,
	}
}

// CreateProduct registers a product in the master data
// 商品マスタに商品を登録
func (e *Engine) CreateProduct(ctx context.Context, product *Product) error {
	if err := ValidateID("id", product.ID); err != nil {
		return err
	}
	if product.SKU == "" {
		return NewValidationError("sku", "SKUが必要です", "")
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()
	if err := e.storage.CreateProduct(ctx, product); err != nil {
		return NewStorageError("create_product", "商品の登録に失敗しました", err)
	}
	e.logger.Info("商品登録完了", zap.String("product_id", product.ID), zap.String("sku", product.SKU))
	return nil
}

// GetProduct retrieves a product by ID
// IDで商品を取得
func (e *Engine) GetProduct(ctx context.Context, productID string) (*Product, error) {
	if err := ValidateID("product_id", productID); err != nil {
		return nil, err
	}
	return e.storage.GetProduct(ctx, productID)
}

// CreateLocation registers a location in the master data
// ロケーションマスタにロケーションを登録
func (e *Engine) CreateLocation(ctx context.Context, location *Location) error {
	if err := ValidateID("id", location.ID); err != nil {
		return err
	}
	if err := ValidateID("warehouse_id", location.WarehouseID); err != nil {
		return err
	}
	if !location.Type.IsValid() {
		return NewValidationError("type", "不正なロケーションタイプです", string(location.Type))
	}
	if location.MaxCapacityUnits != nil && *location.MaxCapacityUnits <= 0 {
		return NewValidationError("max_capacity_units", "キャパシティは正の値である必要があります", fmt.Sprintf("%d", *location.MaxCapacityUnits))
	}
	location.CreatedAt = time.Now()
	location.UpdatedAt = time.Now()
	if err := e.storage.CreateLocation(ctx, location); err != nil {
		return NewStorageError("create_location", "ロケーションの登録に失敗しました", err)
	}
	e.logger.Info("ロケーション登録完了",
		zap.String("location_id", location.ID),
		zap.String("warehouse_id", location.WarehouseID),
		zap.String("type", string(location.Type)),
	)
	return nil
}

// SetLocationLock locks or unlocks a location for stock mutations
// ロケーションの在庫変更ロックを設定・解除
func (e *Engine) SetLocationLock(ctx context.Context, locationID string, locked bool) error {
	if err := ValidateID("location_id", locationID); err != nil {
		return err
	}
	return e.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		location, err := st.GetLocation(ctx, locationID)
		if err != nil {
			return err
		}
		if !inWarehouseScope(ctx, location.WarehouseID) {
			return ErrLocationNotFound
		}
		location.IsLocked = locked
		location.UpdatedAt = time.Now()
		if err := st.UpdateLocation(ctx, location); err != nil {
			return NewStorageError("update_location", "ロケーションの更新に失敗しました", err)
		}
		e.logger.Info("ロケーションロック変更",
			zap.String("location_id", locationID),
			zap.Bool("locked", locked),
		)
		return nil
	})
}

// ListAuditRecords queries the audit trail
// 監査記録を検索
func (e *Engine) ListAuditRecords(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	if filter.WarehouseID == "" {
		filter.WarehouseID = WarehouseFromContext(ctx)
	}
	return e.storage.ListAuditRecords(ctx, filter)
}

// ListUnitTokens lists the unit tokens emitted by a putaway, pick, or restock
// 格納・ピック・再入庫で発行された単品トークン一覧を取得
func (e *Engine) ListUnitTokens(ctx context.Context, sourceID string) ([]UnitToken, error) {
	if err := ValidateID("source_id", sourceID); err != nil {
		return nil, err
	}
	return e.storage.ListUnitTokensBySource(ctx, sourceID)
}

// Ping checks storage connectivity
// ストレージ接続を確認
func (e *Engine) Ping(ctx context.Context) error {
	return e.storage.Ping(ctx)
}

// Close releases the storage backend
// ストレージバックエンドを解放
func (e *Engine) Close() error {
	return e.storage.Close()
}
