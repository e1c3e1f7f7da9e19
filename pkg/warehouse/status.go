package warehouse

// OrderStatus defines the closed set of order lifecycle states
// 注文ライフサイクル状態の閉じた集合を定義
type OrderStatus string

const (
	OrderStatusNew               OrderStatus = "new"                // 新規
	OrderStatusPendingPick       OrderStatus = "pending_pick"       // ピッキング待ち
	OrderStatusPartiallyPicked   OrderStatus = "partially_picked"   // 一部ピッキング済
	OrderStatusPicked            OrderStatus = "picked"             // ピッキング済
	OrderStatusReadyForPickup    OrderStatus = "ready_for_pickup"   // 集荷待ち（ステージング済）
	OrderStatusAssigned          OrderStatus = "assigned"           // ドライバー割当済
	OrderStatusShipped           OrderStatus = "shipped"            // 出荷済
	OrderStatusOutForDelivery    OrderStatus = "out_for_delivery"   // 配達中
	OrderStatusDelivered         OrderStatus = "delivered"          // 配達完了
	OrderStatusPartiallyReturned OrderStatus = "partially_returned" // 一部返品済
	OrderStatusReturned          OrderStatus = "returned"           // 返品済
	OrderStatusCancelled         OrderStatus = "cancelled"          // キャンセル済
)

// OrderAction defines the explicit lifecycle actions beyond derived picking states
// 導出状態の先にある明示的なライフサイクルアクションを定義
type OrderAction string

const (
	ActionStage              OrderAction = "stage"                 // ステージング
	ActionAssignDriver       OrderAction = "assign_driver"         // ドライバー割当
	ActionShip               OrderAction = "ship"                  // 出荷
	ActionMarkOutForDelivery OrderAction = "mark_out_for_delivery" // 配達開始
	ActionMarkDelivered      OrderAction = "mark_delivered"        // 配達完了
	ActionCancel             OrderAction = "cancel"                // キャンセル
)

// orderTransitions encodes the allowed explicit transitions as data.
// 許可された明示的遷移をデータとして表現。
// from-status → action → to-status
var orderTransitions = map[OrderStatus]map[OrderAction]OrderStatus{
	OrderStatusNew: {
		ActionCancel: OrderStatusCancelled,
	},
	OrderStatusPendingPick: {
		ActionCancel: OrderStatusCancelled,
	},
	OrderStatusPartiallyPicked: {
		ActionStage:  OrderStatusReadyForPickup,
		ActionCancel: OrderStatusCancelled,
	},
	OrderStatusPicked: {
		ActionStage:        OrderStatusReadyForPickup,
		ActionAssignDriver: OrderStatusAssigned,
		ActionShip:         OrderStatusShipped,
		ActionCancel:       OrderStatusCancelled,
	},
	OrderStatusReadyForPickup: {
		ActionAssignDriver: OrderStatusAssigned,
		ActionShip:         OrderStatusShipped,
		ActionCancel:       OrderStatusCancelled,
	},
	OrderStatusAssigned: {
		ActionShip:   OrderStatusShipped,
		ActionCancel: OrderStatusCancelled,
	},
	OrderStatusShipped: {
		ActionMarkOutForDelivery: OrderStatusOutForDelivery,
		ActionMarkDelivered:      OrderStatusDelivered,
	},
	OrderStatusOutForDelivery: {
		ActionMarkDelivered: OrderStatusDelivered,
	},
}

// NextOrderStatus resolves an explicit action against the transition table
// 明示的アクションを遷移テーブルで解決
func NextOrderStatus(from OrderStatus, action OrderAction) (OrderStatus, error) {
	actions, ok := orderTransitions[from]
	if !ok {
		return "", NewInvalidTransitionError(string(from), string(action))
	}
	next, ok := actions[action]
	if !ok {
		return "", NewInvalidTransitionError(string(from), string(action))
	}
	return next, nil
}

// IsPreShipment reports whether picks may still be reversed in this status
// この状態でピッキングをまだ取消できるかを判定
func (s OrderStatus) IsPreShipment() bool {
	switch s {
	case OrderStatusNew, OrderStatusPendingPick, OrderStatusPartiallyPicked,
		OrderStatusPicked, OrderStatusReadyForPickup, OrderStatusAssigned:
		return true
	}
	return false
}

// isPickDerived reports whether the status is owned by the derived picking rule
// 導出ルールが所有する状態かを判定
func (s OrderStatus) isPickDerived() bool {
	switch s {
	case OrderStatusNew, OrderStatusPendingPick, OrderStatusPartiallyPicked, OrderStatusPicked:
		return true
	}
	return false
}

// DeriveOrderPickStatus computes the picking-related status purely from line
// aggregates. Statuses beyond Picked are never produced here.
// 明細集計のみから導出されるピッキング関連ステータスを計算。
// Pickedより先の状態はここでは生成されない。
func DeriveOrderPickStatus(lines []OrderLine) OrderStatus {
	if len(lines) == 0 {
		return OrderStatusNew
	}
	var ordered, picked int64
	for _, line := range lines {
		ordered += line.OrderedQuantity
		picked += line.PickedQuantity
	}
	switch {
	case picked == 0:
		return OrderStatusPendingPick
	case picked < ordered:
		return OrderStatusPartiallyPicked
	default:
		return OrderStatusPicked
	}
}

// ReceiptStatus defines the closed set of receipt states
// 入荷ステータスの閉じた集合を定義
type ReceiptStatus string

const (
	ReceiptStatusPending          ReceiptStatus = "pending"           // 処理待ち
	ReceiptStatusPartiallyPutaway ReceiptStatus = "partially_putaway" // 一部格納済
	ReceiptStatusCompleted        ReceiptStatus = "completed"         // 完了
	ReceiptStatusCancelled        ReceiptStatus = "cancelled"         // キャンセル済
)

// DeriveReceiptStatus computes the receipt status from its lines' aggregates
// 明細集計から入荷ステータスを導出
func DeriveReceiptStatus(lines []ReceivedLine) ReceiptStatus {
	var received, putaway int64
	for _, line := range lines {
		received += line.ReceivedQuantity
		putaway += line.PutawayQuantity
	}
	switch {
	case putaway == 0:
		return ReceiptStatusPending
	case putaway < received:
		return ReceiptStatusPartiallyPutaway
	default:
		return ReceiptStatusCompleted
	}
}

// ContainerStatus defines the closed set of container states
// コンテナステータスの閉じた集合を定義
type ContainerStatus string

const (
	ContainerStatusExpected         ContainerStatus = "expected"          // 入荷予定
	ContainerStatusArrived          ContainerStatus = "arrived"           // 到着済
	ContainerStatusProcessing       ContainerStatus = "processing"        // 処理中（明示的に開封）
	ContainerStatusPartiallyPutaway ContainerStatus = "partially_putaway" // 一部格納済
	ContainerStatusCompleted        ContainerStatus = "completed"         // 完了
)

// DeriveContainerStatus computes the container status from its lines.
// The explicit Processing marker survives only while no putaway has happened.
// 明細からコンテナステータスを導出。明示的なProcessingは格納開始まで保持される。
func DeriveContainerStatus(current ContainerStatus, lines []ReceivedLine) ContainerStatus {
	var received, putaway int64
	for _, line := range lines {
		received += line.ReceivedQuantity
		putaway += line.PutawayQuantity
	}
	switch {
	case received == 0:
		return ContainerStatusExpected
	case putaway == 0:
		if current == ContainerStatusProcessing {
			return ContainerStatusProcessing
		}
		return ContainerStatusArrived
	case putaway < received:
		return ContainerStatusPartiallyPutaway
	default:
		return ContainerStatusCompleted
	}
}

// ReturnStatus defines the closed set of return states
// 返品ステータスの閉じた集合を定義
type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"   // 処理待ち
	ReturnStatusCompleted ReturnStatus = "completed" // 完了
	ReturnStatusCancelled ReturnStatus = "cancelled" // キャンセル済
)

// DeriveReturnStatus computes the return status from its lines' aggregates
// 明細集計から返品ステータスを導出
func DeriveReturnStatus(lines []ReturnLine) ReturnStatus {
	var expected, processed int64
	for _, line := range lines {
		expected += line.ExpectedQuantity
		processed += line.ProcessedQuantity
	}
	if expected > 0 && processed >= expected {
		return ReturnStatusCompleted
	}
	return ReturnStatusPending
}

// TransferStatus defines the closed set of transfer states
// 在庫移動ステータスの閉じた集合を定義
type TransferStatus string

const (
	TransferStatusCompleted TransferStatus = "completed" // 完了
)

// returnEligibleStatuses are the order statuses from which a return may be created
// 返品を作成できる注文ステータス
var returnEligibleStatuses = map[OrderStatus]bool{
	OrderStatusShipped:           true,
	OrderStatusDelivered:         true,
	OrderStatusPartiallyReturned: true,
}

// CanCreateReturn reports whether a return may be opened against this status
// この状態の注文に対して返品を開始できるかを判定
func (s OrderStatus) CanCreateReturn() bool {
	return returnEligibleStatuses[s]
}

// pickableStatuses are the order statuses in which picking is allowed
// ピッキングが許可される注文ステータス
var pickableStatuses = map[OrderStatus]bool{
	OrderStatusPendingPick:     true,
	OrderStatusPartiallyPicked: true,
}

// CanPick reports whether picking is allowed in this status
// この状態でピッキングできるかを判定
func (s OrderStatus) CanPick() bool {
	return pickableStatuses[s]
}
