package warehouse

import (
	"context"
)

// Store defines the row-level persistence operations available inside a
// transaction. Every method sees the transaction's uncommitted state.
// トランザクション内で利用できる行レベルの永続化操作を定義。
// すべてのメソッドはトランザクションの未コミット状態を参照する。
type Store interface {
	// 商品マスタ - Product master
	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, productID string) (*Product, error)
	UpdateProduct(ctx context.Context, product *Product) error
	ListProducts(ctx context.Context) ([]Product, error)

	// ロケーションマスタ - Location master
	CreateLocation(ctx context.Context, location *Location) error
	GetLocation(ctx context.Context, locationID string) (*Location, error)
	UpdateLocation(ctx context.Context, location *Location) error
	ListLocationsByWarehouse(ctx context.Context, warehouseID string) ([]Location, error)

	// 在庫台帳 - Inventory ledger
	CreateInventory(ctx context.Context, record *InventoryRecord) error
	GetInventory(ctx context.Context, key InventoryKey) (*InventoryRecord, error)
	UpdateInventory(ctx context.Context, record *InventoryRecord) error
	DeleteInventory(ctx context.Context, key InventoryKey) error
	FindInventory(ctx context.Context, filter InventoryFilter) ([]InventoryRecord, error)
	SumQuantityByLocation(ctx context.Context, locationID string) (int64, error)

	// 受領 - Receiving
	CreateReceipt(ctx context.Context, receipt *Receipt) error
	GetReceipt(ctx context.Context, receiptID string) (*Receipt, error)
	UpdateReceipt(ctx context.Context, receipt *Receipt) error
	CreateContainer(ctx context.Context, container *Container) error
	GetContainer(ctx context.Context, containerID string) (*Container, error)
	UpdateContainer(ctx context.Context, container *Container) error
	ListContainersByReceipt(ctx context.Context, receiptID string) ([]Container, error)
	CreateReceivedLine(ctx context.Context, line *ReceivedLine) error
	GetReceivedLine(ctx context.Context, lineID string) (*ReceivedLine, error)
	UpdateReceivedLine(ctx context.Context, line *ReceivedLine) error
	DeleteReceivedLine(ctx context.Context, lineID string) error
	FindReceivedLine(ctx context.Context, receiptID, containerID, productID, lotCode string) (*ReceivedLine, error)
	ListReceivedLinesByContainer(ctx context.Context, containerID string) ([]ReceivedLine, error)
	ListReceivedLinesByReceipt(ctx context.Context, receiptID string) ([]ReceivedLine, error)

	// 注文 - Orders
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	UpdateOrder(ctx context.Context, order *Order) error
	CreateOrderLine(ctx context.Context, line *OrderLine) error
	GetOrderLine(ctx context.Context, lineID string) (*OrderLine, error)
	UpdateOrderLine(ctx context.Context, line *OrderLine) error
	ListOrderLines(ctx context.Context, orderID string) ([]OrderLine, error)
	FindOrderLineByProduct(ctx context.Context, orderID, productID string) (*OrderLine, error)
	CreateOrderEvent(ctx context.Context, event *OrderEvent) error
	ListOrderEvents(ctx context.Context, orderID string) ([]OrderEvent, error)

	// ピック記録 - Pick records
	CreatePick(ctx context.Context, pick *Pick) error
	GetPick(ctx context.Context, pickID string) (*Pick, error)
	DeletePick(ctx context.Context, pickID string) error
	ListPicksByOrder(ctx context.Context, orderID string) ([]Pick, error)
	ListPicksByOrderLine(ctx context.Context, orderLineID string) ([]Pick, error)

	// 返品 - Returns
	CreateReturn(ctx context.Context, ret *Return) error
	GetReturn(ctx context.Context, returnID string) (*Return, error)
	UpdateReturn(ctx context.Context, ret *Return) error
	CreateReturnLine(ctx context.Context, line *ReturnLine) error
	GetReturnLine(ctx context.Context, lineID string) (*ReturnLine, error)
	UpdateReturnLine(ctx context.Context, line *ReturnLine) error
	ListReturnLines(ctx context.Context, returnID string) ([]ReturnLine, error)
	SumActiveReturnExpected(ctx context.Context, orderLineID string) (int64, error)

	// 在庫移動 - Transfers
	CreateTransferOrder(ctx context.Context, transfer *TransferOrder) error
	GetTransferOrder(ctx context.Context, transferID string) (*TransferOrder, error)
	CreateTransferLine(ctx context.Context, line *TransferLine) error
	ListTransferLines(ctx context.Context, transferID string) ([]TransferLine, error)

	// 単品トークン - Unit tokens
	CreateUnitTokens(ctx context.Context, tokens []UnitToken) error
	DeleteUnitTokensBySource(ctx context.Context, sourceID string) error
	ListUnitTokensBySource(ctx context.Context, sourceID string) ([]UnitToken, error)

	// 監査記録 - Audit records
	AppendAudit(ctx context.Context, record *AuditRecord) error
	ListAuditRecords(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}

// Storage defines the interface for the data persistence layer. Transact runs
// fn inside one transaction: fn returning an error rolls back every write it
// made, a nil return commits them all.
// データ永続化層のインターフェースを定義。Transactはfnを1つのトランザクション
// 内で実行する:fnがエラーを返すとすべての書き込みがロールバックされ、
// nilを返すとすべてコミットされる。
type Storage interface {
	Store

	// Transaction management
	Transact(ctx context.Context, fn func(ctx context.Context, st Store) error) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// AuditFilter narrows audit trail queries
// 監査記録の検索条件を絞り込む
type AuditFilter struct {
	WarehouseID string `json:"warehouse_id,omitempty"` // 倉庫ID
	ProductID   string `json:"product_id,omitempty"`   // 商品ID
	Operation   string `json:"operation,omitempty"`    // 操作名
	Limit       int    `json:"limit,omitempty"`        // 最大件数
}
