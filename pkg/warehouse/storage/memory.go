package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// memData holds every in-memory collection. Header entities live in maps,
// line-level entities in insertion-ordered slices.
// すべてのインメモリコレクションを保持。ヘッダ系エンティティはマップ、
// 明細系エンティティは挿入順のスライスに格納する。
type memData struct {
	products      map[string]warehouse.Product
	locations     map[string]warehouse.Location
	inventory     map[warehouse.InventoryKey]warehouse.InventoryRecord
	receipts      map[string]warehouse.Receipt
	containers    []warehouse.Container
	receivedLines []warehouse.ReceivedLine
	orders        map[string]warehouse.Order
	orderLines    []warehouse.OrderLine
	orderEvents   []warehouse.OrderEvent
	picks         []warehouse.Pick
	returns       map[string]warehouse.Return
	returnLines   []warehouse.ReturnLine
	transfers     map[string]warehouse.TransferOrder
	transferLines []warehouse.TransferLine
	unitTokens    []warehouse.UnitToken
	audits        []warehouse.AuditRecord
}

func newMemData() *memData {
	return &memData{
		products:  make(map[string]warehouse.Product),
		locations: make(map[string]warehouse.Location),
		inventory: make(map[warehouse.InventoryKey]warehouse.InventoryRecord),
		receipts:  make(map[string]warehouse.Receipt),
		orders:    make(map[string]warehouse.Order),
		returns:   make(map[string]warehouse.Return),
		transfers: make(map[string]warehouse.TransferOrder),
	}
}

// clone deep-copies every collection for transaction rollback
// トランザクションロールバック用に全コレクションを複製
func (d *memData) clone() *memData {
	c := &memData{
		products:      make(map[string]warehouse.Product, len(d.products)),
		locations:     make(map[string]warehouse.Location, len(d.locations)),
		inventory:     make(map[warehouse.InventoryKey]warehouse.InventoryRecord, len(d.inventory)),
		receipts:      make(map[string]warehouse.Receipt, len(d.receipts)),
		containers:    append([]warehouse.Container(nil), d.containers...),
		receivedLines: append([]warehouse.ReceivedLine(nil), d.receivedLines...),
		orders:        make(map[string]warehouse.Order, len(d.orders)),
		orderLines:    append([]warehouse.OrderLine(nil), d.orderLines...),
		orderEvents:   append([]warehouse.OrderEvent(nil), d.orderEvents...),
		picks:         append([]warehouse.Pick(nil), d.picks...),
		returns:       make(map[string]warehouse.Return, len(d.returns)),
		returnLines:   append([]warehouse.ReturnLine(nil), d.returnLines...),
		transfers:     make(map[string]warehouse.TransferOrder, len(d.transfers)),
		transferLines: append([]warehouse.TransferLine(nil), d.transferLines...),
		unitTokens:    append([]warehouse.UnitToken(nil), d.unitTokens...),
		audits:        append([]warehouse.AuditRecord(nil), d.audits...),
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.locations {
		c.locations[k] = v
	}
	for k, v := range d.inventory {
		c.inventory[k] = v
	}
	for k, v := range d.receipts {
		c.receipts[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.returns {
		c.returns[k] = v
	}
	for k, v := range d.transfers {
		c.transfers[k] = v
	}
	return c
}

// MemoryStorage implements the Storage interface in memory. Intended for
// tests and examples; a transaction snapshots the data and restores it when
// the callback fails.
// Storageインターフェースのインメモリ実装。テストとサンプル向け。
// トランザクションはデータのスナップショットを取り、コールバックが
// 失敗した場合に復元する。
type MemoryStorage struct {
	mu   sync.Mutex
	data *memData
}

var _ warehouse.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory storage instance
// 空のインメモリストレージインスタンスを作成
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: newMemData()}
}

// Transact runs fn against the shared data under the storage lock. An error
// from fn restores the pre-transaction snapshot.
// ストレージロック下で共有データに対してfnを実行する。fnがエラーを返すと
// トランザクション前のスナップショットへ復元する。
func (s *MemoryStorage) Transact(ctx context.Context, fn func(ctx context.Context, st warehouse.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	// txはロックを共有せず同一データを操作する
	tx := &MemoryStorage{data: s.data}
	if err := fn(ctx, tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// Ping always succeeds for in-memory storage
// インメモリストレージでは常に成功
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close releases nothing for in-memory storage
// インメモリストレージでは解放するものがない
func (s *MemoryStorage) Close() error {
	return nil
}

// 商品マスタ - Product master

func (s *MemoryStorage) CreateProduct(ctx context.Context, product *warehouse.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.products[product.ID]; ok {
		return fmt.Errorf("商品は既に存在します")
	}
	s.data.products[product.ID] = *product
	return nil
}

func (s *MemoryStorage) GetProduct(ctx context.Context, productID string) (*warehouse.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.data.products[productID]
	if !ok {
		return nil, warehouse.ErrProductNotFound
	}
	return &product, nil
}

func (s *MemoryStorage) UpdateProduct(ctx context.Context, product *warehouse.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.products[product.ID]; !ok {
		return warehouse.ErrProductNotFound
	}
	s.data.products[product.ID] = *product
	return nil
}

func (s *MemoryStorage) ListProducts(ctx context.Context) ([]warehouse.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make([]warehouse.Product, 0, len(s.data.products))
	for _, p := range s.data.products {
		products = append(products, p)
	}
	return products, nil
}

// ロケーションマスタ - Location master

func (s *MemoryStorage) CreateLocation(ctx context.Context, location *warehouse.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.locations[location.ID]; ok {
		return fmt.Errorf("ロケーションは既に存在します")
	}
	s.data.locations[location.ID] = *location
	return nil
}

func (s *MemoryStorage) GetLocation(ctx context.Context, locationID string) (*warehouse.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	location, ok := s.data.locations[locationID]
	if !ok {
		return nil, warehouse.ErrLocationNotFound
	}
	return &location, nil
}

func (s *MemoryStorage) UpdateLocation(ctx context.Context, location *warehouse.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.locations[location.ID]; !ok {
		return warehouse.ErrLocationNotFound
	}
	s.data.locations[location.ID] = *location
	return nil
}

func (s *MemoryStorage) ListLocationsByWarehouse(ctx context.Context, warehouseID string) ([]warehouse.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var locations []warehouse.Location
	for _, l := range s.data.locations {
		if l.WarehouseID == warehouseID {
			locations = append(locations, l)
		}
	}
	return locations, nil
}

// 在庫台帳 - Inventory ledger

func (s *MemoryStorage) CreateInventory(ctx context.Context, record *warehouse.InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.Key()
	if _, ok := s.data.inventory[key]; ok {
		return fmt.Errorf("在庫記録は既に存在します")
	}
	s.data.inventory[key] = *record
	return nil
}

func (s *MemoryStorage) GetInventory(ctx context.Context, key warehouse.InventoryKey) (*warehouse.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.data.inventory[key]
	if !ok {
		return nil, warehouse.ErrRecordNotFound
	}
	return &record, nil
}

func (s *MemoryStorage) UpdateInventory(ctx context.Context, record *warehouse.InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.Key()
	if _, ok := s.data.inventory[key]; !ok {
		return warehouse.ErrRecordNotFound
	}
	s.data.inventory[key] = *record
	return nil
}

func (s *MemoryStorage) DeleteInventory(ctx context.Context, key warehouse.InventoryKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.inventory[key]; !ok {
		return warehouse.ErrRecordNotFound
	}
	delete(s.data.inventory, key)
	return nil
}

func (s *MemoryStorage) FindInventory(ctx context.Context, filter warehouse.InventoryFilter) ([]warehouse.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []warehouse.InventoryRecord
	for _, r := range s.data.inventory {
		if filter.WarehouseID != "" && r.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.ProductID != "" && r.ProductID != filter.ProductID {
			continue
		}
		if filter.LocationID != "" && r.LocationID != filter.LocationID {
			continue
		}
		if filter.BatchNumber != "" && r.BatchNumber != filter.BatchNumber {
			continue
		}
		if filter.LotCode != "" && r.LotCode != filter.LotCode {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *MemoryStorage) SumQuantityByLocation(ctx context.Context, locationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, r := range s.data.inventory {
		if r.LocationID == locationID {
			total += r.Quantity
		}
	}
	return total, nil
}

// 受領 - Receiving

func (s *MemoryStorage) CreateReceipt(ctx context.Context, receipt *warehouse.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.receipts[receipt.ID] = *receipt
	return nil
}

func (s *MemoryStorage) GetReceipt(ctx context.Context, receiptID string) (*warehouse.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, ok := s.data.receipts[receiptID]
	if !ok {
		return nil, warehouse.ErrReceiptNotFound
	}
	return &receipt, nil
}

func (s *MemoryStorage) UpdateReceipt(ctx context.Context, receipt *warehouse.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.receipts[receipt.ID]; !ok {
		return warehouse.ErrReceiptNotFound
	}
	s.data.receipts[receipt.ID] = *receipt
	return nil
}

func (s *MemoryStorage) CreateContainer(ctx context.Context, container *warehouse.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.containers = append(s.data.containers, *container)
	return nil
}

func (s *MemoryStorage) GetContainer(ctx context.Context, containerID string) (*warehouse.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.containers {
		if s.data.containers[i].ID == containerID {
			c := s.data.containers[i]
			return &c, nil
		}
	}
	return nil, warehouse.ErrContainerNotFound
}

func (s *MemoryStorage) UpdateContainer(ctx context.Context, container *warehouse.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.containers {
		if s.data.containers[i].ID == container.ID {
			s.data.containers[i] = *container
			return nil
		}
	}
	return warehouse.ErrContainerNotFound
}

func (s *MemoryStorage) ListContainersByReceipt(ctx context.Context, receiptID string) ([]warehouse.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var containers []warehouse.Container
	for _, c := range s.data.containers {
		if c.ReceiptID == receiptID {
			containers = append(containers, c)
		}
	}
	return containers, nil
}

func (s *MemoryStorage) CreateReceivedLine(ctx context.Context, line *warehouse.ReceivedLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.receivedLines = append(s.data.receivedLines, *line)
	return nil
}

func (s *MemoryStorage) GetReceivedLine(ctx context.Context, lineID string) (*warehouse.ReceivedLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.receivedLines {
		if s.data.receivedLines[i].ID == lineID {
			l := s.data.receivedLines[i]
			return &l, nil
		}
	}
	return nil, warehouse.ErrReceivedLineNotFound
}

func (s *MemoryStorage) UpdateReceivedLine(ctx context.Context, line *warehouse.ReceivedLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.receivedLines {
		if s.data.receivedLines[i].ID == line.ID {
			s.data.receivedLines[i] = *line
			return nil
		}
	}
	return warehouse.ErrReceivedLineNotFound
}

func (s *MemoryStorage) DeleteReceivedLine(ctx context.Context, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.receivedLines {
		if s.data.receivedLines[i].ID == lineID {
			s.data.receivedLines = append(s.data.receivedLines[:i], s.data.receivedLines[i+1:]...)
			return nil
		}
	}
	return warehouse.ErrReceivedLineNotFound
}

func (s *MemoryStorage) FindReceivedLine(ctx context.Context, receiptID, containerID, productID, lotCode string) (*warehouse.ReceivedLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.receivedLines {
		l := s.data.receivedLines[i]
		if l.ReceiptID == receiptID && l.ContainerID == containerID && l.ProductID == productID && l.LotCode == lotCode {
			return &l, nil
		}
	}
	return nil, warehouse.ErrReceivedLineNotFound
}

func (s *MemoryStorage) ListReceivedLinesByContainer(ctx context.Context, containerID string) ([]warehouse.ReceivedLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []warehouse.ReceivedLine
	for _, l := range s.data.receivedLines {
		if l.ContainerID == containerID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (s *MemoryStorage) ListReceivedLinesByReceipt(ctx context.Context, receiptID string) ([]warehouse.ReceivedLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []warehouse.ReceivedLine
	for _, l := range s.data.receivedLines {
		if l.ReceiptID == receiptID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// 注文 - Orders

func (s *MemoryStorage) CreateOrder(ctx context.Context, order *warehouse.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.orders[order.ID] = *order
	return nil
}

func (s *MemoryStorage) GetOrder(ctx context.Context, orderID string) (*warehouse.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.data.orders[orderID]
	if !ok {
		return nil, warehouse.ErrOrderNotFound
	}
	return &order, nil
}

func (s *MemoryStorage) UpdateOrder(ctx context.Context, order *warehouse.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.orders[order.ID]; !ok {
		return warehouse.ErrOrderNotFound
	}
	s.data.orders[order.ID] = *order
	return nil
}

func (s *MemoryStorage) CreateOrderLine(ctx context.Context, line *warehouse.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.orderLines = append(s.data.orderLines, *line)
	return nil
}

func (s *MemoryStorage) GetOrderLine(ctx context.Context, lineID string) (*warehouse.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.orderLines {
		if s.data.orderLines[i].ID == lineID {
			l := s.data.orderLines[i]
			return &l, nil
		}
	}
	return nil, warehouse.ErrOrderLineNotFound
}

func (s *MemoryStorage) UpdateOrderLine(ctx context.Context, line *warehouse.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.orderLines {
		if s.data.orderLines[i].ID == line.ID {
			s.data.orderLines[i] = *line
			return nil
		}
	}
	return warehouse.ErrOrderLineNotFound
}

func (s *MemoryStorage) ListOrderLines(ctx context.Context, orderID string) ([]warehouse.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []warehouse.OrderLine
	for _, l := range s.data.orderLines {
		if l.OrderID == orderID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (s *MemoryStorage) FindOrderLineByProduct(ctx context.Context, orderID, productID string) (*warehouse.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.orderLines {
		l := s.data.orderLines[i]
		if l.OrderID == orderID && l.ProductID == productID {
			return &l, nil
		}
	}
	return nil, warehouse.ErrOrderLineNotFound
}

func (s *MemoryStorage) CreateOrderEvent(ctx context.Context, event *warehouse.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.orderEvents = append(s.data.orderEvents, *event)
	return nil
}

func (s *MemoryStorage) ListOrderEvents(ctx context.Context, orderID string) ([]warehouse.OrderEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []warehouse.OrderEvent
	for _, e := range s.data.orderEvents {
		if e.OrderID == orderID {
			events = append(events, e)
		}
	}
	return events, nil
}

// ピック記録 - Pick records

func (s *MemoryStorage) CreatePick(ctx context.Context, pick *warehouse.Pick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.picks = append(s.data.picks, *pick)
	return nil
}

func (s *MemoryStorage) GetPick(ctx context.Context, pickID string) (*warehouse.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.picks {
		if s.data.picks[i].ID == pickID {
			p := s.data.picks[i]
			return &p, nil
		}
	}
	return nil, warehouse.ErrPickNotFound
}

func (s *MemoryStorage) DeletePick(ctx context.Context, pickID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.picks {
		if s.data.picks[i].ID == pickID {
			s.data.picks = append(s.data.picks[:i], s.data.picks[i+1:]...)
			return nil
		}
	}
	return warehouse.ErrPickNotFound
}

func (s *MemoryStorage) ListPicksByOrder(ctx context.Context, orderID string) ([]warehouse.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var picks []warehouse.Pick
	for _, p := range s.data.picks {
		if p.OrderID == orderID {
			picks = append(picks, p)
		}
	}
	return picks, nil
}

func (s *MemoryStorage) ListPicksByOrderLine(ctx context.Context, orderLineID string) ([]warehouse.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var picks []warehouse.Pick
	for _, p := range s.data.picks {
		if p.OrderLineID == orderLineID {
			picks = append(picks, p)
		}
	}
	return picks, nil
}

// 返品 - Returns

func (s *MemoryStorage) CreateReturn(ctx context.Context, ret *warehouse.Return) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.returns[ret.ID] = *ret
	return nil
}

func (s *MemoryStorage) GetReturn(ctx context.Context, returnID string) (*warehouse.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret, ok := s.data.returns[returnID]
	if !ok {
		return nil, warehouse.ErrReturnNotFound
	}
	return &ret, nil
}

func (s *MemoryStorage) UpdateReturn(ctx context.Context, ret *warehouse.Return) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.returns[ret.ID]; !ok {
		return warehouse.ErrReturnNotFound
	}
	s.data.returns[ret.ID] = *ret
	return nil
}

func (s *MemoryStorage) CreateReturnLine(ctx context.Context, line *warehouse.ReturnLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.returnLines = append(s.data.returnLines, *line)
	return nil
}

func (s *MemoryStorage) GetReturnLine(ctx context.Context, lineID string) (*warehouse.ReturnLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.returnLines {
		if s.data.returnLines[i].ID == lineID {
			l := s.data.returnLines[i]
			return &l, nil
		}
	}
	return nil, warehouse.ErrReturnLineNotFound
}

func (s *MemoryStorage) UpdateReturnLine(ctx context.Context, line *warehouse.ReturnLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.returnLines {
		if s.data.returnLines[i].ID == line.ID {
			s.data.returnLines[i] = *line
			return nil
		}
	}
	return warehouse.ErrReturnLineNotFound
}

func (s *MemoryStorage) ListReturnLines(ctx context.Context, returnID string) ([]warehouse.ReturnLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []warehouse.ReturnLine
	for _, l := range s.data.returnLines {
		if l.ReturnID == returnID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (s *MemoryStorage) SumActiveReturnExpected(ctx context.Context, orderLineID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, l := range s.data.returnLines {
		if l.OrderLineID != orderLineID {
			continue
		}
		ret, ok := s.data.returns[l.ReturnID]
		if !ok || ret.Status == warehouse.ReturnStatusCancelled {
			continue
		}
		total += l.ExpectedQuantity
	}
	return total, nil
}

// 在庫移動 - Transfers

func (s *MemoryStorage) CreateTransferOrder(ctx context.Context, transfer *warehouse.TransferOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.transfers[transfer.ID] = *transfer
	return nil
}

func (s *MemoryStorage) GetTransferOrder(ctx context.Context, transferID string) (*warehouse.TransferOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	transfer, ok := s.data.transfers[transferID]
	if !ok {
		return nil, warehouse.ErrTransferNotFound
	}
	return &transfer, nil
}

func (s *MemoryStorage) CreateTransferLine(ctx context.Context, line *warehouse.TransferLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.transferLines = append(s.data.transferLines, *line)
	return nil
}

func (s *MemoryStorage) ListTransferLines(ctx context.Context, transferID string) ([]warehouse.TransferLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []warehouse.TransferLine
	for _, l := range s.data.transferLines {
		if l.TransferOrderID == transferID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// 単品トークン - Unit tokens

func (s *MemoryStorage) CreateUnitTokens(ctx context.Context, tokens []warehouse.UnitToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.unitTokens = append(s.data.unitTokens, tokens...)
	return nil
}

func (s *MemoryStorage) DeleteUnitTokensBySource(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.data.unitTokens[:0]
	for _, t := range s.data.unitTokens {
		if t.SourceID != sourceID {
			kept = append(kept, t)
		}
	}
	s.data.unitTokens = kept
	return nil
}

func (s *MemoryStorage) ListUnitTokensBySource(ctx context.Context, sourceID string) ([]warehouse.UnitToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tokens []warehouse.UnitToken
	for _, t := range s.data.unitTokens {
		if t.SourceID == sourceID {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

// 監査記録 - Audit records

func (s *MemoryStorage) AppendAudit(ctx context.Context, record *warehouse.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.audits = append(s.data.audits, *record)
	return nil
}

func (s *MemoryStorage) ListAuditRecords(ctx context.Context, filter warehouse.AuditFilter) ([]warehouse.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	var records []warehouse.AuditRecord
	for i := len(s.data.audits) - 1; i >= 0 && len(records) < limit; i-- {
		r := s.data.audits[i]
		if filter.WarehouseID != "" && r.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.ProductID != "" && r.ProductID != filter.ProductID {
			continue
		}
		if filter.Operation != "" && r.Operation != filter.Operation {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
