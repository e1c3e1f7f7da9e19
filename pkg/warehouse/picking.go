package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PickingEngine removes stock against order lines and supports exact reversal
// of individual picks
// 注文明細に対して在庫を引き当て、個別ピックの正確な取り消しをサポート
type PickingEngine struct {
	storage Storage     // ストレージ層
	ledger  *Ledger     // 在庫台帳
	logger  *zap.Logger // ログ
	config  *Config     // 設定
}

// NewPickingEngine creates a new picking engine
// 新しいピッキングエンジンを作成
func NewPickingEngine(storage Storage, ledger *Ledger, logger *zap.Logger, config *Config) *PickingEngine {
	if config == nil {
		config = DefaultConfig()
	}
	return &PickingEngine{
		storage: storage,
		ledger:  ledger,
		logger:  logger,
		config:  config,
	}
}

// PickRequest identifies the exact ledger key and quantity for one pick
// 1回のピック対象となる台帳キーと数量を指定
type PickRequest struct {
	OrderID     string `json:"order_id"`     // 注文ID
	ProductID   string `json:"product_id"`   // 商品ID
	LocationID  string `json:"location_id"`  // ピック元ロケーションID
	BatchNumber string `json:"batch_number"` // バッチ番号
	LotCode     string `json:"lot_code"`     // ロットコード
	Quantity    int64  `json:"quantity"`     // ピック数量
}

// Pick removes stock at the requested ledger key and records it against the
// matching order line. The line total can never exceed the ordered quantity.
// 指定された台帳キーから在庫を引き当て、対応する注文明細に記録する。
// 明細合計が注文数量を超えることはない。
func (p *PickingEngine) Pick(ctx context.Context, req PickRequest) (*Pick, error) {
	if err := ValidatePositiveQuantity(req.Quantity); err != nil {
		return nil, err
	}

	var pick *Pick
	err := p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		order, err := p.requireOrder(ctx, st, req.OrderID)
		if err != nil {
			return err
		}
		if !order.Status.CanPick() {
			return NewInvalidTransitionError(string(order.Status), "pick")
		}

		line, err := st.FindOrderLineByProduct(ctx, order.ID, req.ProductID)
		if err != nil {
			if errors.Is(err, ErrOrderLineNotFound) {
				return NewValidationError("product_id", "この商品は注文に含まれていません", req.ProductID)
			}
			return err
		}
		// オーバーピック防止:明細合計は注文数量を超えられない
		if line.PickedQuantity+req.Quantity > line.OrderedQuantity {
			return &DomainError{
				Kind:    KindOverPick,
				Message: "ピック数量が注文数量を超えています",
				Context: fmt.Sprintf("order_line=%s, ordered=%d, picked=%d, requested=%d",
					line.ID, line.OrderedQuantity, line.PickedQuantity, req.Quantity),
			}
		}

		key := InventoryKey{
			WarehouseID: order.WarehouseID,
			ProductID:   req.ProductID,
			LocationID:  req.LocationID,
			BatchNumber: req.BatchNumber,
			LotCode:     req.LotCode,
		}
		if _, err := p.ledger.adjust(ctx, st, key, -req.Quantity, AdjustOptions{}); err != nil {
			return err
		}

		pick = &Pick{
			ID:          NewID(),
			OrderID:     order.ID,
			OrderLineID: line.ID,
			WarehouseID: order.WarehouseID,
			ProductID:   req.ProductID,
			LocationID:  req.LocationID,
			BatchNumber: req.BatchNumber,
			LotCode:     req.LotCode,
			Quantity:    req.Quantity,
			CreatedBy:   ActorFromContext(ctx),
			CreatedAt:   time.Now(),
		}
		if err := st.CreatePick(ctx, pick); err != nil {
			return NewStorageError("create_pick", "ピック記録の作成に失敗しました", err)
		}
		if err := st.CreateUnitTokens(ctx, newUnitTokens(TokenTypePick, pick.ID, key, req.Quantity)); err != nil {
			return NewStorageError("create_unit_tokens", "ピックトークンの作成に失敗しました", err)
		}

		line.PickedQuantity += req.Quantity
		line.UpdatedAt = time.Now()
		if err := st.UpdateOrderLine(ctx, line); err != nil {
			return NewStorageError("update_order_line", "注文明細の更新に失敗しました", err)
		}

		return recomputeOrderPickStatus(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}

	appendAudit(ctx, p.storage, p.logger, p.config.AuditEnabled, "pick", pick.Key(), -pick.Quantity, "注文ピック")

	p.logger.Info("ピック完了",
		zap.String("pick_id", pick.ID),
		zap.String("order_id", pick.OrderID),
		zap.String("product_id", pick.ProductID),
		zap.Int64("quantity", pick.Quantity),
	)
	return pick, nil
}

// Unpick reverses a single pick: the exact quantity returns to the exact
// ledger key it was taken from, and the pick record is hard-deleted. Only
// allowed while the order has not shipped.
// 単一ピックを取り消す:引き当てた数量を元の台帳キーへ正確に戻し、
// ピック記録を物理削除する。注文が出荷前の場合のみ許可。
func (p *PickingEngine) Unpick(ctx context.Context, pickID string) error {
	if err := ValidateID("pick_id", pickID); err != nil {
		return err
	}

	var pick *Pick
	err := p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		pick, err = st.GetPick(ctx, pickID)
		if err != nil {
			return err
		}
		order, err := p.requireOrder(ctx, st, pick.OrderID)
		if err != nil {
			return err
		}
		if !order.Status.IsPreShipment() {
			return NewInvalidTransitionError(string(order.Status), "unpick")
		}

		// 元のロットコードから有効期限を再計算して復元
		expiry, err := restoreExpiry(ctx, st, p.config, pick.ProductID, pick.LotCode)
		if err != nil {
			return err
		}
		if _, err := p.ledger.adjust(ctx, st, pick.Key(), pick.Quantity, AdjustOptions{ExpiryDate: expiry}); err != nil {
			return err
		}

		if err := st.DeletePick(ctx, pick.ID); err != nil {
			return NewStorageError("delete_pick", "ピック記録の削除に失敗しました", err)
		}
		if err := st.DeleteUnitTokensBySource(ctx, pick.ID); err != nil {
			return NewStorageError("delete_unit_tokens", "ピックトークンの削除に失敗しました", err)
		}

		line, err := st.GetOrderLine(ctx, pick.OrderLineID)
		if err != nil {
			return err
		}
		line.PickedQuantity -= pick.Quantity
		if line.PickedQuantity < 0 {
			line.PickedQuantity = 0
		}
		line.UpdatedAt = time.Now()
		if err := st.UpdateOrderLine(ctx, line); err != nil {
			return NewStorageError("update_order_line", "注文明細の更新に失敗しました", err)
		}

		return recomputeOrderPickStatus(ctx, st, order)
	})
	if err != nil {
		return err
	}

	appendAudit(ctx, p.storage, p.logger, p.config.AuditEnabled, "unpick", pick.Key(), pick.Quantity, "ピック取り消し")

	p.logger.Info("ピック取り消し完了",
		zap.String("pick_id", pickID),
		zap.String("order_id", pick.OrderID),
		zap.Int64("quantity", pick.Quantity),
	)
	return nil
}

// ListPicks lists the picks recorded against an order
// 注文に記録されたピック一覧を取得
func (p *PickingEngine) ListPicks(ctx context.Context, orderID string) ([]Pick, error) {
	if err := ValidateID("order_id", orderID); err != nil {
		return nil, err
	}
	order, err := p.storage.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, order.WarehouseID) {
		return nil, ErrOrderNotFound
	}
	return p.storage.ListPicksByOrder(ctx, orderID)
}

// requireOrder loads an order and verifies the caller's warehouse scope
// 注文を取得し、呼び出し側の倉庫スコープを確認
func (p *PickingEngine) requireOrder(ctx context.Context, st Store, orderID string) (*Order, error) {
	if err := ValidateID("order_id", orderID); err != nil {
		return nil, err
	}
	order, err := st.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, order.WarehouseID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
