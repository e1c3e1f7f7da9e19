package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ReturnsProcessor manages the RMA lifecycle: returnable-quantity bounds at
// creation, per-item condition routing at processing, and restock of
// good-condition units through the ledger
// RMAライフサイクルを管理:作成時の返品可能数量上限、処理時の状態別ルーティング、
// 良品の台帳経由での再入庫
type ReturnsProcessor struct {
	storage  Storage     // ストレージ層
	ledger   *Ledger     // 在庫台帳
	registry *Registry   // ロケーションレジストリ
	logger   *zap.Logger // ログ
	config   *Config     // 設定
}

// NewReturnsProcessor creates a new returns processor
// 新しい返品プロセッサを作成
func NewReturnsProcessor(storage Storage, ledger *Ledger, registry *Registry, logger *zap.Logger, config *Config) *ReturnsProcessor {
	if config == nil {
		config = DefaultConfig()
	}
	return &ReturnsProcessor{
		storage:  storage,
		ledger:   ledger,
		registry: registry,
		logger:   logger,
		config:   config,
	}
}

// ReturnLineRequest carries one requested return quantity against an
// original order line
// 元注文明細に対する返品数量リクエストを保持
type ReturnLineRequest struct {
	OrderLineID string `json:"order_line_id"` // 元注文明細ID
	Quantity    int64  `json:"quantity"`      // 返品予定数量
}

// CreateReturn opens a return against a shipped or delivered order. Each
// line's quantity is bounded by what was picked minus what other active
// returns already claim. Lot codes are traced from the original pick records,
// never supplied by the caller.
// 出荷済または配達済の注文に対して返品を開始する。各明細の数量は、ピッキング済
// 数量から他のアクティブな返品が確保済みの分を引いた値が上限となる。
// ロットコードは元のピック記録から引き継がれ、呼び出し側は指定しない。
func (r *ReturnsProcessor) CreateReturn(ctx context.Context, orderID string, lines []ReturnLineRequest) (*Return, error) {
	if err := ValidateID("order_id", orderID); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, NewValidationError("lines", "返品明細が1件以上必要です", "")
	}
	for _, line := range lines {
		if err := ValidateID("order_line_id", line.OrderLineID); err != nil {
			return nil, err
		}
		if err := ValidatePositiveQuantity(line.Quantity); err != nil {
			return nil, err
		}
	}

	var ret *Return
	err := r.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		order, err := st.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !inWarehouseScope(ctx, order.WarehouseID) {
			return ErrOrderNotFound
		}
		if !order.Status.CanCreateReturn() {
			return NewInvalidTransitionError(string(order.Status), "create_return")
		}

		ret = &Return{
			ID:          NewID(),
			OrderID:     order.ID,
			WarehouseID: order.WarehouseID,
			Status:      ReturnStatusPending,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
			CreatedBy:   ActorFromContext(ctx),
		}
		if err := st.CreateReturn(ctx, ret); err != nil {
			return NewStorageError("create_return", "返品の作成に失敗しました", err)
		}

		for _, req := range lines {
			orderLine, err := st.GetOrderLine(ctx, req.OrderLineID)
			if err != nil {
				return err
			}
			if orderLine.OrderID != order.ID {
				return NewValidationError("order_line_id", "注文明細が対象の注文に属していません", req.OrderLineID)
			}

			claimed, err := st.SumActiveReturnExpected(ctx, orderLine.ID)
			if err != nil {
				return NewStorageError("sum_return_expected", "返品確保済数量の集計に失敗しました", err)
			}
			returnable := orderLine.PickedQuantity - claimed
			if req.Quantity > returnable {
				return &DomainError{
					Kind:    KindExceedsReturnable,
					Message: "返品数量が返品可能数量を超えています",
					Context: fmt.Sprintf("order_line=%s, picked=%d, claimed=%d, returnable=%d, requested=%d",
						orderLine.ID, orderLine.PickedQuantity, claimed, returnable, req.Quantity),
				}
			}

			lotCode, err := r.traceLotCode(ctx, st, orderLine.ID)
			if err != nil {
				return err
			}

			line := &ReturnLine{
				ID:               NewID(),
				ReturnID:         ret.ID,
				OrderLineID:      orderLine.ID,
				ProductID:        orderLine.ProductID,
				LotCode:          lotCode,
				ExpectedQuantity: req.Quantity,
				CreatedAt:        time.Now(),
				UpdatedAt:        time.Now(),
			}
			if err := st.CreateReturnLine(ctx, line); err != nil {
				return NewStorageError("create_return_line", "返品明細の作成に失敗しました", err)
			}
		}

		return recomputeOrderReturnStatus(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("返品作成完了",
		zap.String("return_id", ret.ID),
		zap.String("order_id", orderID),
		zap.Int("lines", len(lines)),
	)
	return ret, nil
}

// ProcessReturnItem processes received return units against a return line.
// Good-condition units restock through the ledger into the given location
// under a fresh batch, with expiry recomputed from the original lot code.
// Damaged and defective units advance the lifecycle without touching stock.
// 返品明細に対して受け取った数量を処理する。良品は指定ロケーションへ新しい
// バッチ番号で台帳経由で再入庫され、有効期限は元のロットコードから再計算される。
// 破損品・不良品はライフサイクルのみ進み、在庫には触れない。
func (r *ReturnsProcessor) ProcessReturnItem(ctx context.Context, returnLineID string, quantity int64, condition ReturnCondition, locationID string) (*ReturnLine, error) {
	if err := ValidateID("return_line_id", returnLineID); err != nil {
		return nil, err
	}
	if err := ValidatePositiveQuantity(quantity); err != nil {
		return nil, err
	}
	if !condition.IsValid() {
		return nil, NewValidationError("condition", "不正な返品状態です", string(condition))
	}

	var line *ReturnLine
	var restockKey *InventoryKey
	err := r.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		line, err = st.GetReturnLine(ctx, returnLineID)
		if err != nil {
			return err
		}
		ret, err := r.requireOpenReturn(ctx, st, line.ReturnID)
		if err != nil {
			return err
		}
		if line.ProcessedQuantity+quantity > line.ExpectedQuantity {
			return NewValidationError("quantity", "処理数量が返品予定数量を超えています", fmt.Sprintf("%d", quantity))
		}

		if condition == ReturnConditionGood {
			if locationID == "" {
				return NewValidationError("location_id", "良品の再入庫にはロケーションが必要です", "")
			}
			location, err := r.registry.requireMutable(ctx, st, locationID)
			if err != nil {
				return err
			}
			if !location.Type.AllowsRestock() {
				return NewValidationError("location_id", "このロケーションタイプには再入庫できません", string(location.Type))
			}
			if location.WarehouseID != ret.WarehouseID {
				return NewValidationError("location_id", "再入庫先は返品と同じ倉庫である必要があります", locationID)
			}

			expiry, err := restoreExpiry(ctx, st, r.config, line.ProductID, line.LotCode)
			if err != nil {
				return err
			}
			key := InventoryKey{
				WarehouseID: ret.WarehouseID,
				ProductID:   line.ProductID,
				LocationID:  location.ID,
				BatchNumber: NewBatchNumber(),
				LotCode:     line.LotCode,
			}
			if _, err := r.ledger.adjust(ctx, st, key, quantity, AdjustOptions{ExpiryDate: expiry}); err != nil {
				return err
			}
			if err := st.CreateUnitTokens(ctx, newUnitTokens(TokenTypeRestock, line.ID, key, quantity)); err != nil {
				return NewStorageError("create_unit_tokens", "再入庫トークンの作成に失敗しました", err)
			}
			restockKey = &key
		}

		line.ProcessedQuantity += quantity
		line.Condition = condition
		line.UpdatedAt = time.Now()
		if err := st.UpdateReturnLine(ctx, line); err != nil {
			return NewStorageError("update_return_line", "返品明細の更新に失敗しました", err)
		}

		return r.recomputeReturnStatus(ctx, st, ret)
	})
	if err != nil {
		return nil, err
	}

	if restockKey != nil {
		appendAudit(ctx, r.storage, r.logger, r.config.AuditEnabled, "return_restock", *restockKey, quantity, "返品良品の再入庫")
	}

	r.logger.Info("返品処理完了",
		zap.String("return_line_id", returnLineID),
		zap.String("condition", string(condition)),
		zap.Int64("quantity", quantity),
	)
	return line, nil
}

// CancelReturn cancels a pending return before any processing has happened,
// releasing its claimed quantities back to the returnable pool
// 処理開始前の返品をキャンセルし、確保済み数量を返品可能プールへ解放
func (r *ReturnsProcessor) CancelReturn(ctx context.Context, returnID string) (*Return, error) {
	var ret *Return
	err := r.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		ret, err = r.requireOpenReturn(ctx, st, returnID)
		if err != nil {
			return err
		}
		lines, err := st.ListReturnLines(ctx, ret.ID)
		if err != nil {
			return NewStorageError("list_return_lines", "返品明細の取得に失敗しました", err)
		}
		for _, line := range lines {
			if line.ProcessedQuantity > 0 {
				return NewInvalidTransitionError(string(ret.Status), "cancel_return")
			}
		}

		ret.Status = ReturnStatusCancelled
		ret.UpdatedAt = time.Now()
		if err := st.UpdateReturn(ctx, ret); err != nil {
			return NewStorageError("update_return", "返品の更新に失敗しました", err)
		}

		order, err := st.GetOrder(ctx, ret.OrderID)
		if err != nil {
			return err
		}
		return recomputeOrderReturnStatus(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("返品キャンセル完了", zap.String("return_id", returnID))
	return ret, nil
}

// GetReturn retrieves a return within the caller's warehouse scope
// 倉庫スコープ内の返品を取得
func (r *ReturnsProcessor) GetReturn(ctx context.Context, returnID string) (*Return, error) {
	if err := ValidateID("return_id", returnID); err != nil {
		return nil, err
	}
	ret, err := r.storage.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, ret.WarehouseID) {
		return nil, ErrReturnNotFound
	}
	return ret, nil
}

// ListReturnLines lists the lines of a return
// 返品の明細一覧を取得
func (r *ReturnsProcessor) ListReturnLines(ctx context.Context, returnID string) ([]ReturnLine, error) {
	if _, err := r.GetReturn(ctx, returnID); err != nil {
		return nil, err
	}
	return r.storage.ListReturnLines(ctx, returnID)
}

// ヘルパーメソッド

// requireOpenReturn loads a return that is still pending
// 処理中（pending）の返品を取得
func (r *ReturnsProcessor) requireOpenReturn(ctx context.Context, st Store, returnID string) (*Return, error) {
	if err := ValidateID("return_id", returnID); err != nil {
		return nil, err
	}
	ret, err := st.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, ret.WarehouseID) {
		return nil, ErrReturnNotFound
	}
	if ret.Status != ReturnStatusPending {
		return nil, NewInvalidTransitionError(string(ret.Status), "process_return")
	}
	return ret, nil
}

// traceLotCode resolves the lot code for a return line from the original
// pick records of its order line. The earliest pick wins when a line was
// picked from multiple lots.
// 返品明細のロットコードを元注文明細のピック記録から解決する。複数ロットから
// ピックされていた場合は最初のピックを採用する。
func (r *ReturnsProcessor) traceLotCode(ctx context.Context, st Store, orderLineID string) (string, error) {
	picks, err := st.ListPicksByOrderLine(ctx, orderLineID)
	if err != nil {
		return "", NewStorageError("list_picks", "ピック記録の取得に失敗しました", err)
	}
	if len(picks) == 0 {
		return "", nil
	}
	return picks[0].LotCode, nil
}

// recomputeReturnStatus completes the return header once every line is fully
// processed, then rolls the aggregate up to the order
// すべての明細が処理完了したら返品ヘッダを完了にし、注文へ集計を反映
func (r *ReturnsProcessor) recomputeReturnStatus(ctx context.Context, st Store, ret *Return) error {
	lines, err := st.ListReturnLines(ctx, ret.ID)
	if err != nil {
		return NewStorageError("list_return_lines", "返品明細の取得に失敗しました", err)
	}
	derived := DeriveReturnStatus(lines)
	if derived != ret.Status {
		ret.Status = derived
		ret.UpdatedAt = time.Now()
		if err := st.UpdateReturn(ctx, ret); err != nil {
			return NewStorageError("update_return", "返品の更新に失敗しました", err)
		}
	}
	order, err := st.GetOrder(ctx, ret.OrderID)
	if err != nil {
		return err
	}
	return recomputeOrderReturnStatus(ctx, st, order)
}

// recomputeOrderReturnStatus rewrites the order's return aggregate status.
// With no active return claims the order reverts to its last shipment status.
// 注文の返品集計ステータスを再計算。アクティブな返品確保がなくなった場合は
// 直近の出荷系ステータスへ戻す。
func recomputeOrderReturnStatus(ctx context.Context, st Store, order *Order) error {
	lines, err := st.ListOrderLines(ctx, order.ID)
	if err != nil {
		return NewStorageError("list_order_lines", "注文明細の取得に失敗しました", err)
	}

	var totalPicked, totalClaimed int64
	for _, line := range lines {
		totalPicked += line.PickedQuantity
		claimed, err := st.SumActiveReturnExpected(ctx, line.ID)
		if err != nil {
			return NewStorageError("sum_return_expected", "返品確保済数量の集計に失敗しました", err)
		}
		totalClaimed += claimed
	}

	var next OrderStatus
	switch {
	case totalClaimed == 0:
		if order.Status != OrderStatusPartiallyReturned && order.Status != OrderStatusReturned {
			return nil
		}
		next, err = lastShipmentStatus(ctx, st, order.ID)
		if err != nil {
			return err
		}
	case totalPicked > 0 && totalClaimed >= totalPicked:
		next = OrderStatusReturned
	default:
		next = OrderStatusPartiallyReturned
	}

	if next == order.Status {
		return nil
	}
	order.Status = next
	order.UpdatedAt = time.Now()
	if err := st.UpdateOrder(ctx, order); err != nil {
		return NewStorageError("update_order", "注文の更新に失敗しました", err)
	}
	event := &OrderEvent{
		ID:        NewID(),
		OrderID:   order.ID,
		EventType: EventStatusChanged,
		Detail:    string(next),
		ActorID:   ActorFromContext(ctx),
		CreatedAt: time.Now(),
	}
	if err := st.CreateOrderEvent(ctx, event); err != nil {
		return NewStorageError("create_order_event", "注文イベントの作成に失敗しました", err)
	}
	return nil
}

// lastShipmentStatus finds the most recent shipment-side status from the
// order's event history. Defaults to Shipped when the history is silent.
// 注文イベント履歴から直近の出荷系ステータスを探す。履歴がなければ出荷済とする。
func lastShipmentStatus(ctx context.Context, st Store, orderID string) (OrderStatus, error) {
	events, err := st.ListOrderEvents(ctx, orderID)
	if err != nil {
		return "", NewStorageError("list_order_events", "注文イベントの取得に失敗しました", err)
	}
	shipmentSide := map[OrderStatus]bool{
		OrderStatusShipped:        true,
		OrderStatusOutForDelivery: true,
		OrderStatusDelivered:      true,
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].EventType != EventStatusChanged {
			continue
		}
		status := OrderStatus(events[i].Detail)
		if shipmentSide[status] {
			return status, nil
		}
	}
	return OrderStatusShipped, nil
}
