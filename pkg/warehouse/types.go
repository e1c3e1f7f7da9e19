// Package warehouse provides the multi-warehouse stock ledger and movement engine
package warehouse

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents product master data consumed from the catalog module
// カタログモジュールから提供される商品マスタデータを表現
type Product struct {
	ID             string    `json:"id" db:"id"`                             // 商品ID
	Name           string    `json:"name" db:"name"`                         // 商品名
	SKU            string    `json:"sku" db:"sku"`                           // SKU（在庫管理単位）
	ShelfLifeYears int       `json:"shelf_life_years" db:"shelf_life_years"` // 製造からの有効年数
	CreatedAt      time.Time `json:"created_at" db:"created_at"`             // 作成日時
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`             // 更新日時
}

// LocationType defines the physical role of a storage location
// 保管ロケーションの物理的な役割を定義
type LocationType string

const (
	LocationTypeBin           LocationType = "bin"            // 棚
	LocationTypeBlockArea     LocationType = "block_area"     // 平置きエリア
	LocationTypeDock          LocationType = "dock"           // ドック
	LocationTypeReceivingArea LocationType = "receiving_area" // 入荷エリア
	LocationTypeShippingArea  LocationType = "shipping_area"  // 出荷エリア
	LocationTypeQuarantine    LocationType = "quarantine"     // 検疫エリア
)

// IsValid reports whether the value is a known location type
// 既知のロケーションタイプかを判定
func (t LocationType) IsValid() bool {
	switch t {
	case LocationTypeBin, LocationTypeBlockArea, LocationTypeDock,
		LocationTypeReceivingArea, LocationTypeShippingArea, LocationTypeQuarantine:
		return true
	}
	return false
}

// AllowsRestock reports whether returned goods may be restocked into this type
// 返品された商品をこのタイプへ再入庫できるかを判定
func (t LocationType) AllowsRestock() bool {
	switch t {
	case LocationTypeBin, LocationTypeBlockArea, LocationTypeReceivingArea:
		return true
	}
	return false
}

// Location represents a storage location within a warehouse
// 倉庫内の保管ロケーションを表現
type Location struct {
	ID               string       `json:"id" db:"id"`                                 // ロケーションID
	Code             string       `json:"code" db:"code"`                             // ロケーションコード
	WarehouseID      string       `json:"warehouse_id" db:"warehouse_id"`             // 倉庫ID
	Type             LocationType `json:"type" db:"type"`                             // タイプ
	MaxCapacityUnits *int64       `json:"max_capacity_units" db:"max_capacity_units"` // 最大収容数（nilは無制限）
	IsLocked         bool         `json:"is_locked" db:"is_locked"`                   // ロック状態
	IsActive         bool         `json:"is_active" db:"is_active"`                   // アクティブ状態
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`                 // 作成日時
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`                 // 更新日時
}

// InventoryKey identifies one quantity bucket in the stock ledger
// 在庫台帳の数量バケットを一意に識別
type InventoryKey struct {
	WarehouseID string `json:"warehouse_id" db:"warehouse_id"` // 倉庫ID
	ProductID   string `json:"product_id" db:"product_id"`     // 商品ID
	LocationID  string `json:"location_id" db:"location_id"`   // ロケーションID
	BatchNumber string `json:"batch_number" db:"batch_number"` // バッチ番号（空は未指定）
	LotCode     string `json:"lot_code" db:"lot_code"`         // ロットコード（空は未指定）
}

// String returns a human-readable representation of the key
// キーの可読表現を返す
func (k InventoryKey) String() string {
	return fmt.Sprintf("%s/%s@%s[%s:%s]", k.WarehouseID, k.ProductID, k.LocationID, k.BatchNumber, k.LotCode)
}

// InventoryRecord represents the on-hand quantity for one inventory key.
// A record exists only while its quantity is positive; the ledger prunes
// records at zero.
// 在庫キーごとの現在庫数を表現。数量が正の間のみ存在し、ゼロになると台帳が削除する。
type InventoryRecord struct {
	ID          string     `json:"id" db:"id"`                     // 在庫記録ID
	WarehouseID string     `json:"warehouse_id" db:"warehouse_id"` // 倉庫ID
	ProductID   string     `json:"product_id" db:"product_id"`     // 商品ID
	LocationID  string     `json:"location_id" db:"location_id"`   // ロケーションID
	BatchNumber string     `json:"batch_number" db:"batch_number"` // バッチ番号
	LotCode     string     `json:"lot_code" db:"lot_code"`         // ロットコード
	Quantity    int64      `json:"quantity" db:"quantity"`         // 在庫数量
	ExpiryDate  *time.Time `json:"expiry_date" db:"expiry_date"`   // 有効期限（ロットコード由来）
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`     // 最終更新日時
	UpdatedBy   string     `json:"updated_by" db:"updated_by"`     // 更新者
}

// Key returns the inventory key of the record
// 在庫記録のキーを返す
func (r *InventoryRecord) Key() InventoryKey {
	return InventoryKey{
		WarehouseID: r.WarehouseID,
		ProductID:   r.ProductID,
		LocationID:  r.LocationID,
		BatchNumber: r.BatchNumber,
		LotCode:     r.LotCode,
	}
}

// InventoryFilter selects ledger records for read-only lookups
// 読み取り専用照会のための在庫記録フィルタ
type InventoryFilter struct {
	WarehouseID string `json:"warehouse_id"` // 倉庫ID（空は全件）
	ProductID   string `json:"product_id"`   // 商品ID（空は全件）
	LocationID  string `json:"location_id"`  // ロケーションID（空は全件）
	BatchNumber string `json:"batch_number"` // バッチ番号（空は全件）
	LotCode     string `json:"lot_code"`     // ロットコード（空は全件）
}

// Receipt represents one expected supplier shipment
// 仕入先からの入荷予定を表現
type Receipt struct {
	ID          string        `json:"id" db:"id"`                     // 入荷ID
	WarehouseID string        `json:"warehouse_id" db:"warehouse_id"` // 倉庫ID
	SupplierRef string        `json:"supplier_ref" db:"supplier_ref"` // 仕入先参照番号
	Status      ReceiptStatus `json:"status" db:"status"`             // ステータス
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`     // 作成日時
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`     // 更新日時
	CreatedBy   string        `json:"created_by" db:"created_by"`     // 作成者
}

// Container represents one physical container within a receipt
// 入荷内の物理コンテナを表現
type Container struct {
	ID        string          `json:"id" db:"id"`                 // コンテナID
	ReceiptID string          `json:"receipt_id" db:"receipt_id"` // 入荷ID
	Code      string          `json:"code" db:"code"`             // コンテナコード
	Status    ContainerStatus `json:"status" db:"status"`         // ステータス
	CreatedAt time.Time       `json:"created_at" db:"created_at"` // 作成日時
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"` // 更新日時
}

// ReceivedLine represents received quantity of one product/lot in a container
// コンテナ内の商品・ロット単位の受領明細を表現
type ReceivedLine struct {
	ID               string          `json:"id" db:"id"`                               // 明細ID
	ReceiptID        string          `json:"receipt_id" db:"receipt_id"`               // 入荷ID
	ContainerID      string          `json:"container_id" db:"container_id"`           // コンテナID
	ProductID        string          `json:"product_id" db:"product_id"`               // 商品ID
	BatchNumber      string          `json:"batch_number" db:"batch_number"`           // 生成されたバッチ番号
	LotCode          string          `json:"lot_code" db:"lot_code"`                   // ロットコード
	ExpiryDate       *time.Time      `json:"expiry_date" db:"expiry_date"`             // 有効期限
	ExpectedQuantity int64           `json:"expected_quantity" db:"expected_quantity"` // 予定数量
	ReceivedQuantity int64           `json:"received_quantity" db:"received_quantity"` // 受領数量
	PutawayQuantity  int64           `json:"putaway_quantity" db:"putaway_quantity"`   // 格納済数量
	UnitCost         decimal.Decimal `json:"unit_cost" db:"unit_cost"`                 // 単価
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`               // 作成日時
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`               // 更新日時
}

// RemainingPutaway returns the quantity still waiting to be put away
// 未格納の残数量を返す
func (l *ReceivedLine) RemainingPutaway() int64 {
	return l.ReceivedQuantity - l.PutawayQuantity
}

// LineValue returns the monetary value of the received quantity
// 受領数量の金額を返す
func (l *ReceivedLine) LineValue() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(l.ReceivedQuantity))
}

// Order represents a customer order header
// 顧客注文ヘッダを表現
type Order struct {
	ID                string      `json:"id" db:"id"`                                   // 注文ID
	WarehouseID       string      `json:"warehouse_id" db:"warehouse_id"`               // 倉庫ID
	CustomerRef       string      `json:"customer_ref" db:"customer_ref"`               // 顧客参照番号
	Status            OrderStatus `json:"status" db:"status"`                           // ステータス
	StagingLocationID string      `json:"staging_location_id" db:"staging_location_id"` // ステージングロケーション
	DriverID          string      `json:"driver_id" db:"driver_id"`                     // 配送ドライバーID
	TrackingNumber    string      `json:"tracking_number" db:"tracking_number"`         // 追跡番号（出荷時に確定、変更不可）
	DeliveryCode      string      `json:"delivery_code" db:"delivery_code"`             // 配達確認コード（出荷時に確定、変更不可）
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`                   // 作成日時
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`                   // 更新日時
}

// OrderLine represents one ordered product with its derived picked aggregate
// 注文商品明細と導出されたピッキング済数量を表現
type OrderLine struct {
	ID              string    `json:"id" db:"id"`                             // 明細ID
	OrderID         string    `json:"order_id" db:"order_id"`                 // 注文ID
	ProductID       string    `json:"product_id" db:"product_id"`             // 商品ID
	OrderedQuantity int64     `json:"ordered_quantity" db:"ordered_quantity"` // 注文数量
	PickedQuantity  int64     `json:"picked_quantity" db:"picked_quantity"`   // ピッキング済数量（導出値）
	CreatedAt       time.Time `json:"created_at" db:"created_at"`             // 作成日時
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`             // 更新日時
}

// Pick records exactly where and from which batch one allocation was taken.
// Unpick and order cancellation reverse the ledger using this record.
// 引当がどのロケーション・バッチから取られたかを正確に記録。
// ピッキング取消と注文キャンセルはこの記録を使って台帳を復元する。
type Pick struct {
	ID          string    `json:"id" db:"id"`                     // ピックID
	OrderID     string    `json:"order_id" db:"order_id"`         // 注文ID
	OrderLineID string    `json:"order_line_id" db:"order_line_id"` // 注文明細ID
	ProductID   string    `json:"product_id" db:"product_id"`     // 商品ID
	WarehouseID string    `json:"warehouse_id" db:"warehouse_id"` // 倉庫ID
	LocationID  string    `json:"location_id" db:"location_id"`   // ロケーションID
	BatchNumber string    `json:"batch_number" db:"batch_number"` // バッチ番号
	LotCode     string    `json:"lot_code" db:"lot_code"`         // ロットコード
	Quantity    int64     `json:"quantity" db:"quantity"`         // 数量
	CreatedAt   time.Time `json:"created_at" db:"created_at"`     // 作成日時
	CreatedBy   string    `json:"created_by" db:"created_by"`     // 作成者
}

// Key returns the exact ledger key this pick consumed
// このピックが消費した台帳キーを返す
func (p *Pick) Key() InventoryKey {
	return InventoryKey{
		WarehouseID: p.WarehouseID,
		ProductID:   p.ProductID,
		LocationID:  p.LocationID,
		BatchNumber: p.BatchNumber,
		LotCode:     p.LotCode,
	}
}

// ReturnCondition classifies the physical state of returned units
// 返品された商品の物理状態を分類
type ReturnCondition string

const (
	ReturnConditionGood      ReturnCondition = "good"      // 良品
	ReturnConditionDamaged   ReturnCondition = "damaged"   // 破損
	ReturnConditionDefective ReturnCondition = "defective" // 不良
)

// IsValid reports whether the condition is a known value
// 既知の状態値かを判定
func (c ReturnCondition) IsValid() bool {
	switch c {
	case ReturnConditionGood, ReturnConditionDamaged, ReturnConditionDefective:
		return true
	}
	return false
}

// Return represents an RMA header against one shipped order
// 出荷済注文に対する返品（RMA）ヘッダを表現
type Return struct {
	ID          string       `json:"id" db:"id"`                     // 返品ID
	OrderID     string       `json:"order_id" db:"order_id"`         // 注文ID
	WarehouseID string       `json:"warehouse_id" db:"warehouse_id"` // 倉庫ID
	Status      ReturnStatus `json:"status" db:"status"`             // ステータス
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`     // 作成日時
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`     // 更新日時
	CreatedBy   string       `json:"created_by" db:"created_by"`     // 作成者
}

// ReturnLine represents the returnable quantity of one original order line.
// The lot code is captured from the original pick records at creation and is
// never re-entered by the caller.
// 元注文明細ごとの返品数量を表現。ロットコードは作成時に元のピック記録から
// 引き継がれ、呼び出し側が再入力することはない。
type ReturnLine struct {
	ID                string          `json:"id" db:"id"`                               // 明細ID
	ReturnID          string          `json:"return_id" db:"return_id"`                 // 返品ID
	OrderLineID       string          `json:"order_line_id" db:"order_line_id"`         // 元注文明細ID
	ProductID         string          `json:"product_id" db:"product_id"`               // 商品ID
	LotCode           string          `json:"lot_code" db:"lot_code"`                   // 元ピック由来のロットコード
	ExpectedQuantity  int64           `json:"expected_quantity" db:"expected_quantity"` // 返品予定数量
	ProcessedQuantity int64           `json:"processed_quantity" db:"processed_quantity"` // 処理済数量
	Condition         ReturnCondition `json:"condition" db:"condition"`                 // 状態（処理時に設定）
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`               // 作成日時
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`               // 更新日時
}

// TransferOrder represents a header for paired-move stock transfers
// 在庫移動（対になった入出庫）のヘッダを表現
type TransferOrder struct {
	ID        string         `json:"id" db:"id"`                 // 移動ID
	Reference string         `json:"reference" db:"reference"`   // 参照番号
	Status    TransferStatus `json:"status" db:"status"`         // ステータス
	CreatedAt time.Time      `json:"created_at" db:"created_at"` // 作成日時
	CreatedBy string         `json:"created_by" db:"created_by"` // 作成者
}

// TransferLine represents one zero-sum quantity move between two locations
// 2ロケーション間のゼロサム数量移動を表現
type TransferLine struct {
	ID                string `json:"id" db:"id"`                                   // 明細ID
	TransferOrderID   string `json:"transfer_order_id" db:"transfer_order_id"`     // 移動ID
	ProductID         string `json:"product_id" db:"product_id"`                   // 商品ID
	SourceWarehouseID string `json:"source_warehouse_id" db:"source_warehouse_id"` // 移動元倉庫ID
	SourceLocationID  string `json:"source_location_id" db:"source_location_id"`   // 移動元ロケーション
	DestWarehouseID   string `json:"dest_warehouse_id" db:"dest_warehouse_id"`     // 移動先倉庫ID
	DestLocationID    string `json:"dest_location_id" db:"dest_location_id"`       // 移動先ロケーション
	BatchNumber       string `json:"batch_number" db:"batch_number"`               // バッチ番号
	LotCode           string `json:"lot_code" db:"lot_code"`                       // ロットコード
	Quantity          int64  `json:"quantity" db:"quantity"`                       // 数量
}

// TokenType defines the origin of a unit-level token
// 単品トークンの発生源タイプを定義
type TokenType string

const (
	TokenTypePlacement TokenType = "placement" // 格納トークン
	TokenTypePick      TokenType = "pick"      // ピッキングトークン
	TokenTypeRestock   TokenType = "restock"   // 返品再入庫トークン
)

// UnitToken represents one physical unit for label rendering and tracing.
// One token is emitted per unit on putaway, pick, and return restock.
// ラベル印刷・単品追跡用の物理単品トークンを表現。
// 格納・ピッキング・返品再入庫の際に1単位ごとに発行される。
type UnitToken struct {
	ID          string    `json:"id" db:"id"`                     // トークンID
	Type        TokenType `json:"type" db:"type"`                 // トークンタイプ
	SourceID    string    `json:"source_id" db:"source_id"`       // 発生源ID（受領明細、ピック、返品明細）
	ProductID   string    `json:"product_id" db:"product_id"`     // 商品ID
	WarehouseID string    `json:"warehouse_id" db:"warehouse_id"` // 倉庫ID
	LocationID  string    `json:"location_id" db:"location_id"`   // ロケーションID
	BatchNumber string    `json:"batch_number" db:"batch_number"` // バッチ番号
	LotCode     string    `json:"lot_code" db:"lot_code"`         // ロットコード
	CreatedAt   time.Time `json:"created_at" db:"created_at"`     // 作成日時
}

// AuditRecord is an immutable trail entry appended after every committed
// mutation. Audit history exists only for committed effects.
// コミット済みの変更ごとに追記される不変の監査記録。コミットされた効果のみが残る。
type AuditRecord struct {
	ID          string    `json:"id" db:"id"`                     // 監査ID
	Operation   string    `json:"operation" db:"operation"`       // 操作名
	ActorID     string    `json:"actor_id" db:"actor_id"`         // 実行者
	WarehouseID string    `json:"warehouse_id" db:"warehouse_id"` // 倉庫ID
	ProductID   string    `json:"product_id" db:"product_id"`     // 商品ID
	LocationID  string    `json:"location_id" db:"location_id"`   // ロケーションID
	BatchNumber string    `json:"batch_number" db:"batch_number"` // バッチ番号
	LotCode     string    `json:"lot_code" db:"lot_code"`         // ロットコード
	Delta       int64     `json:"delta" db:"delta"`               // 数量変化
	Reason      string    `json:"reason" db:"reason"`             // 理由
	CreatedAt   time.Time `json:"created_at" db:"created_at"`     // 作成日時
}

// OrderEvent records one lifecycle event on an order, including failed
// delivery-code attempts
// 注文のライフサイクルイベント（配達コード不一致を含む）を記録
type OrderEvent struct {
	ID        string    `json:"id" db:"id"`                 // イベントID
	OrderID   string    `json:"order_id" db:"order_id"`     // 注文ID
	EventType string    `json:"event_type" db:"event_type"` // イベントタイプ
	Detail    string    `json:"detail" db:"detail"`         // 詳細
	ActorID   string    `json:"actor_id" db:"actor_id"`     // 実行者
	CreatedAt time.Time `json:"created_at" db:"created_at"` // 作成日時
}

// NewID generates a new entity ID
// 新しいエンティティIDを生成
func NewID() string {
	return uuid.New().String()
}

// NewBatchNumber generates a system batch number, distinct from the
// supplier-assigned lot code
// システム採番のバッチ番号を生成（仕入先のロットコードとは別物）
func NewBatchNumber() string {
	return "B-" + strings.ToUpper(uuid.New().String()[:8])
}

// NewTrackingNumber generates an immutable shipment tracking number
// 変更不可の出荷追跡番号を生成
func NewTrackingNumber() string {
	return "TRK-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
