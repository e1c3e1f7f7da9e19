package warehouse

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Order lifecycle event types
// 注文ライフサイクルのイベントタイプ
const (
	EventStatusChanged  = "status_changed"  // ステータス変更
	EventDeliveryFailed = "delivery_failed" // 配達コード不一致
)

// FulfillmentStateMachine derives and transitions order status from line
// aggregates and explicit lifecycle actions
// 明細集計と明示的アクションから注文ステータスを導出・遷移させる
type FulfillmentStateMachine struct {
	storage  Storage     // ストレージ層
	ledger   *Ledger     // 在庫台帳（キャンセル時の復元に使用)
	registry *Registry   // ロケーションレジストリ
	logger   *zap.Logger // ログ
	config   *Config     // 設定
}

// NewFulfillmentStateMachine creates a new fulfillment state machine
// 新しいフルフィルメント状態機械を作成
func NewFulfillmentStateMachine(storage Storage, ledger *Ledger, registry *Registry, logger *zap.Logger, config *Config) *FulfillmentStateMachine {
	if config == nil {
		config = DefaultConfig()
	}
	return &FulfillmentStateMachine{
		storage:  storage,
		ledger:   ledger,
		registry: registry,
		logger:   logger,
		config:   config,
	}
}

// OrderLineRequest carries one requested product quantity for a new order
// 新規注文の商品数量リクエストを保持
type OrderLineRequest struct {
	ProductID string `json:"product_id"` // 商品ID
	Quantity  int64  `json:"quantity"`   // 注文数量
}

// CreateOrder opens a new order and its lines
// 新しい注文と明細を作成
func (f *FulfillmentStateMachine) CreateOrder(ctx context.Context, warehouseID, customerRef string, lines []OrderLineRequest) (*Order, error) {
	if err := ValidateID("warehouse_id", warehouseID); err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, warehouseID) {
		return nil, NewValidationError("warehouse_id", "倉庫スコープ外の注文は作成できません", warehouseID)
	}
	for _, line := range lines {
		if err := ValidateID("product_id", line.ProductID); err != nil {
			return nil, err
		}
		if err := ValidatePositiveQuantity(line.Quantity); err != nil {
			return nil, err
		}
	}

	var order *Order
	err := f.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		status := OrderStatusNew
		if len(lines) > 0 {
			status = OrderStatusPendingPick
		}
		order = &Order{
			ID:          NewID(),
			WarehouseID: warehouseID,
			CustomerRef: customerRef,
			Status:      status,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := st.CreateOrder(ctx, order); err != nil {
			return NewStorageError("create_order", "注文の作成に失敗しました", err)
		}
		for _, req := range lines {
			if _, err := st.GetProduct(ctx, req.ProductID); err != nil {
				return err
			}
			line := &OrderLine{
				ID:              NewID(),
				OrderID:         order.ID,
				ProductID:       req.ProductID,
				OrderedQuantity: req.Quantity,
				PickedQuantity:  0,
				CreatedAt:       time.Now(),
				UpdatedAt:       time.Now(),
			}
			if err := st.CreateOrderLine(ctx, line); err != nil {
				return NewStorageError("create_order_line", "注文明細の作成に失敗しました", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("注文作成完了",
		zap.String("order_id", order.ID),
		zap.String("warehouse_id", warehouseID),
		zap.Int("lines", len(lines)),
	)
	return order, nil
}

// Stage places a picked order into a shipping-area location
// ピッキング済注文を出荷エリアのロケーションへステージング
func (f *FulfillmentStateMachine) Stage(ctx context.Context, orderID, locationID string) (*Order, error) {
	var order *Order
	err := f.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		order, err = f.requireOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		location, err := f.registry.requireActive(ctx, st, locationID)
		if err != nil {
			return err
		}
		if location.Type != LocationTypeShippingArea {
			return NewValidationError("location_id", "ステージング先は出荷エリアタイプである必要があります", string(location.Type))
		}
		if location.WarehouseID != order.WarehouseID {
			return NewValidationError("location_id", "ステージング先は注文と同じ倉庫である必要があります", locationID)
		}
		next, err := NextOrderStatus(order.Status, ActionStage)
		if err != nil {
			return err
		}
		order.StagingLocationID = location.ID
		return f.applyStatus(ctx, st, order, next)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// AssignDriver assigns a delivery driver to a staged order
// ステージング済注文に配送ドライバーを割当
func (f *FulfillmentStateMachine) AssignDriver(ctx context.Context, orderID, driverID string) (*Order, error) {
	if err := ValidateID("driver_id", driverID); err != nil {
		return nil, err
	}

	var order *Order
	err := f.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		order, err = f.requireOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		next, err := NextOrderStatus(order.Status, ActionAssignDriver)
		if err != nil {
			return err
		}
		order.DriverID = driverID
		return f.applyStatus(ctx, st, order, next)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Ship marks an order as shipped, fixing its tracking number and delivery
// confirmation code. Both are immutable once set.
// 注文を出荷済にし、追跡番号と配達確認コードを確定する。確定後は変更不可。
func (f *FulfillmentStateMachine) Ship(ctx context.Context, orderID string) (*Order, error) {
	var order *Order
	err := f.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		order, err = f.requireOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		next, err := NextOrderStatus(order.Status, ActionShip)
		if err != nil {
			return err
		}
		if order.TrackingNumber == "" {
			order.TrackingNumber = NewTrackingNumber()
		}
		if order.DeliveryCode == "" {
			code, err := newDeliveryCode()
			if err != nil {
				return NewStorageError("delivery_code", "配達確認コードの生成に失敗しました", err)
			}
			order.DeliveryCode = code
		}
		return f.applyStatus(ctx, st, order, next)
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("出荷完了",
		zap.String("order_id", order.ID),
		zap.String("tracking_number", order.TrackingNumber),
	)
	return order, nil
}

// MarkOutForDelivery marks a shipped order as out for delivery
// 出荷済注文を配達中に変更
func (f *FulfillmentStateMachine) MarkOutForDelivery(ctx context.Context, orderID string) (*Order, error) {
	var order *Order
	err := f.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		order, err = f.requireOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		next, err := NextOrderStatus(order.Status, ActionMarkOutForDelivery)
		if err != nil {
			return err
		}
		return f.applyStatus(ctx, st, order, next)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// MarkDelivered completes delivery when the supplied confirmation code
// matches. A mismatch is recorded as a failed-delivery event and the status
// is left unchanged.
// 確認コードが一致した場合に配達を完了する。不一致は配達失敗イベントとして
// 記録され、ステータスは変更されない。
func (f *FulfillmentStateMachine) MarkDelivered(ctx context.Context, orderID, code, receiver string) (*Order, error) {
	order, err := f.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, err := NextOrderStatus(order.Status, ActionMarkDelivered)
	if err != nil {
		return nil, err
	}

	if code != order.DeliveryCode {
		// 不一致は履歴イベントのみ残し、ステータスは変えない
		f.appendEvent(ctx, f.storage, order.ID, EventDeliveryFailed,
			fmt.Sprintf("receiver=%s", receiver))
		f.logger.Warn("配達確認コードが一致しません",
			zap.String("order_id", orderID),
			zap.String("receiver", receiver),
		)
		return nil, NewValidationError("delivery_code", "配達確認コードが一致しません", "")
	}

	err = f.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		order, err = f.requireOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		if _, err := NextOrderStatus(order.Status, ActionMarkDelivered); err != nil {
			return err
		}
		if err := f.applyStatus(ctx, st, order, next); err != nil {
			return err
		}
		event := &OrderEvent{
			ID:        NewID(),
			OrderID:   order.ID,
			EventType: "delivered",
			Detail:    fmt.Sprintf("receiver=%s", receiver),
			ActorID:   ActorFromContext(ctx),
			CreatedAt: time.Now(),
		}
		if err := st.CreateOrderEvent(ctx, event); err != nil {
			return NewStorageError("create_order_event", "注文イベントの作成に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel cancels a pre-shipment order, reversing every existing pick at its
// exact original ledger key, deleting the pick rows, and zeroing line
// aggregates. Cancellation after shipment is forbidden.
// 出荷前の注文をキャンセルし、既存のすべてのピックを元の台帳キーへ正確に
// 復元して、ピック行を削除し明細集計をゼロにする。出荷後のキャンセルは不可。
func (f *FulfillmentStateMachine) Cancel(ctx context.Context, orderID string) (*Order, error) {
	var order *Order
	var reversed []Pick
	err := f.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		order, err = f.requireOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		next, err := NextOrderStatus(order.Status, ActionCancel)
		if err != nil {
			return err
		}

		picks, err := st.ListPicksByOrder(ctx, order.ID)
		if err != nil {
			return NewStorageError("list_picks", "ピック記録の取得に失敗しました", err)
		}
		// ピックごとに元のキーへ数量を戻す（合算ではなく個別復元）
		for i := range picks {
			pick := picks[i]
			expiry, err := restoreExpiry(ctx, st, f.config, pick.ProductID, pick.LotCode)
			if err != nil {
				return err
			}
			if _, err := f.ledger.adjust(ctx, st, pick.Key(), pick.Quantity, AdjustOptions{ExpiryDate: expiry}); err != nil {
				return err
			}
			if err := st.DeletePick(ctx, pick.ID); err != nil {
				return NewStorageError("delete_pick", "ピック記録の削除に失敗しました", err)
			}
			if err := st.DeleteUnitTokensBySource(ctx, pick.ID); err != nil {
				return NewStorageError("delete_unit_tokens", "ピックトークンの削除に失敗しました", err)
			}
			reversed = append(reversed, pick)
		}

		lines, err := st.ListOrderLines(ctx, order.ID)
		if err != nil {
			return NewStorageError("list_order_lines", "注文明細の取得に失敗しました", err)
		}
		for i := range lines {
			if lines[i].PickedQuantity == 0 {
				continue
			}
			lines[i].PickedQuantity = 0
			lines[i].UpdatedAt = time.Now()
			if err := st.UpdateOrderLine(ctx, &lines[i]); err != nil {
				return NewStorageError("update_order_line", "注文明細の更新に失敗しました", err)
			}
		}

		return f.applyStatus(ctx, st, order, next)
	})
	if err != nil {
		return nil, err
	}

	for _, pick := range reversed {
		appendAudit(ctx, f.storage, f.logger, f.config.AuditEnabled, "cancel_order", pick.Key(), pick.Quantity, "注文キャンセルによる復元")
	}

	f.logger.Info("注文キャンセル完了",
		zap.String("order_id", orderID),
		zap.Int("reversed_picks", len(reversed)),
	)
	return order, nil
}

// GetOrder retrieves an order within the caller's warehouse scope
// 倉庫スコープ内の注文を取得
func (f *FulfillmentStateMachine) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := ValidateID("order_id", orderID); err != nil {
		return nil, err
	}
	order, err := f.storage.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, order.WarehouseID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListLines lists the lines of an order with their picked aggregates
// 注文明細とピッキング済数量の一覧を取得
func (f *FulfillmentStateMachine) ListLines(ctx context.Context, orderID string) ([]OrderLine, error) {
	if _, err := f.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return f.storage.ListOrderLines(ctx, orderID)
}

// ListEvents lists the lifecycle events of an order
// 注文のライフサイクルイベント一覧を取得
func (f *FulfillmentStateMachine) ListEvents(ctx context.Context, orderID string) ([]OrderEvent, error) {
	if _, err := f.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return f.storage.ListOrderEvents(ctx, orderID)
}

// ヘルパーメソッド

// requireOrder loads an order and verifies the caller's warehouse scope
// 注文を取得し、呼び出し側の倉庫スコープを確認
func (f *FulfillmentStateMachine) requireOrder(ctx context.Context, st Store, orderID string) (*Order, error) {
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

// applyStatus writes a status change and its history event
// ステータス変更と履歴イベントを書き込む
func (f *FulfillmentStateMachine) applyStatus(ctx context.Context, st Store, order *Order, next OrderStatus) error {
	previous := order.Status
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
	f.logger.Info("注文ステータス遷移",
		zap.String("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
	)
	return nil
}

// appendEvent appends a history event outside any transaction. Used for
// events that must survive a failed operation, like delivery-code mismatches.
// トランザクション外で履歴イベントを追記。配達コード不一致のように
// 失敗した操作でも残すべきイベントに使用する。
func (f *FulfillmentStateMachine) appendEvent(ctx context.Context, storage Storage, orderID, eventType, detail string) {
	event := &OrderEvent{
		ID:        NewID(),
		OrderID:   orderID,
		EventType: eventType,
		Detail:    detail,
		ActorID:   ActorFromContext(ctx),
		CreatedAt: time.Now(),
	}
	if err := storage.CreateOrderEvent(ctx, event); err != nil {
		f.logger.Error("注文イベントの追記に失敗しました",
			zap.String("order_id", orderID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// recomputeOrderPickStatus rewrites the derived picking status from line
// aggregates. Statuses beyond Picked are owned by explicit actions and are
// never overwritten here.
// 明細集計から導出されるピッキングステータスを再計算。Pickedより先の状態は
// 明示的アクションが所有し、ここでは上書きしない。
func recomputeOrderPickStatus(ctx context.Context, st Store, order *Order) error {
	if !order.Status.isPickDerived() {
		return nil
	}
	lines, err := st.ListOrderLines(ctx, order.ID)
	if err != nil {
		return NewStorageError("list_order_lines", "注文明細の取得に失敗しました", err)
	}
	derived := DeriveOrderPickStatus(lines)
	if derived == order.Status {
		return nil
	}
	order.Status = derived
	order.UpdatedAt = time.Now()
	if err := st.UpdateOrder(ctx, order); err != nil {
		return NewStorageError("update_order", "注文の更新に失敗しました", err)
	}
	return nil
}

// restoreExpiry recomputes the expiry date for a ledger restore from the
// original lot code. The lot code was validated when first received, so a
// parse failure here yields no expiry instead of blocking the restore.
// 台帳復元時に元のロットコードから有効期限を再計算。受領時に検証済みのため、
// 解析に失敗した場合は復元を妨げず期限なしとする。
func restoreExpiry(ctx context.Context, st Store, config *Config, productID, lotCode string) (*time.Time, error) {
	if lotCode == "" {
		return nil, nil
	}
	product, err := st.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	shelfLife := product.ShelfLifeYears
	if shelfLife <= 0 {
		shelfLife = config.DefaultShelfLifeYears
	}
	expiry, err := ExpiryFromLotCode(lotCode, shelfLife)
	if err != nil {
		return nil, nil
	}
	return expiry, nil
}

// newDeliveryCode generates a 6-digit random delivery confirmation code
// 6桁のランダムな配達確認コードを生成
func newDeliveryCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	n := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}
