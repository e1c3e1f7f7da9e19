package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// querier abstracts *sql.DB and *sql.Tx so the same row operations serve
// both autocommit reads and transactional writes
// *sql.DBと*sql.Txを抽象化し、同じ行操作を自動コミット読み取りと
// トランザクション書き込みの両方で使えるようにする
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// pgStore implements warehouse.Store over a querier. Inside a transaction
// single-row reads take row locks so concurrent adjustments serialize.
// querier上でwarehouse.Storeを実装。トランザクション内では単一行読み取りが
// 行ロックを取得し、並行する在庫調整を直列化する。
type pgStore struct {
	q       querier
	locking bool
	logger  *zap.Logger
}

// PostgreSQLStorage implements the Storage interface using PostgreSQL
// PostgreSQLを使用したStorageインターフェースの実装
type PostgreSQLStorage struct {
	pgStore
	db *sql.DB
}

var _ warehouse.Storage = (*PostgreSQLStorage)(nil)

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
// 新しいPostgreSQLストレージインスタンスを作成
func NewPostgreSQLStorage(dsn string, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStorage{
		pgStore: pgStore{q: db, logger: logger},
		db:      db,
	}, nil
}

// Transact runs fn inside a single database transaction. Any error from fn
// rolls back every write; a nil return commits them all.
// fnを単一のデータベーストランザクション内で実行する。fnのエラーはすべての
// 書き込みをロールバックし、nilはすべてコミットする。
func (s *PostgreSQLStorage) Transact(ctx context.Context, fn func(ctx context.Context, st warehouse.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}

	store := &pgStore{q: tx, locking: true, logger: s.logger}
	if err := fn(ctx, store); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("ロールバックに失敗しました", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗しました: %w", err)
	}
	return nil
}

// Ping checks database connectivity
// データベース接続を確認
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection pool
// データベース接続プールを閉じる
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}

// forUpdate appends a row-lock clause inside transactions
// トランザクション内で行ロック句を付与
func (s *pgStore) forUpdate() string {
	if s.locking {
		return " FOR UPDATE"
	}
	return ""
}

// 商品マスタ - Product master

// CreateProduct creates a product record
// 商品記録を作成
func (s *pgStore) CreateProduct(ctx context.Context, product *warehouse.Product) error {
	query := `
		INSERT INTO products (id, name, sku, shelf_life_years, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.q.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.SKU,
		product.ShelfLifeYears,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("商品は既に存在します")
		}
		return fmt.Errorf("商品作成に失敗しました: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by ID
// IDで商品を取得
func (s *pgStore) GetProduct(ctx context.Context, productID string) (*warehouse.Product, error) {
	query := `
		SELECT id, name, sku, shelf_life_years, created_at, updated_at
		FROM products
		WHERE id = $1`

	product := &warehouse.Product{}
	err := s.q.QueryRowContext(ctx, query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.SKU,
		&product.ShelfLifeYears,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrProductNotFound
		}
		return nil, fmt.Errorf("商品取得に失敗しました: %w", err)
	}
	return product, nil
}

// UpdateProduct updates a product record
// 商品記録を更新
func (s *pgStore) UpdateProduct(ctx context.Context, product *warehouse.Product) error {
	query := `
		UPDATE products
		SET name = $2, sku = $3, shelf_life_years = $4, updated_at = $5
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.SKU,
		product.ShelfLifeYears,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("商品更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrProductNotFound)
}

// ListProducts lists all products
// 全商品を取得
func (s *pgStore) ListProducts(ctx context.Context) ([]warehouse.Product, error) {
	query := `
		SELECT id, name, sku, shelf_life_years, created_at, updated_at
		FROM products
		ORDER BY sku`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("商品一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var products []warehouse.Product
	for rows.Next() {
		var p warehouse.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.ShelfLifeYears, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("商品行の読み取りに失敗しました: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ロケーションマスタ - Location master

// CreateLocation creates a location record
// ロケーション記録を作成
func (s *pgStore) CreateLocation(ctx context.Context, location *warehouse.Location) error {
	query := `
		INSERT INTO locations (id, code, warehouse_id, type, max_capacity_units, is_locked, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.q.ExecContext(ctx, query,
		location.ID,
		location.Code,
		location.WarehouseID,
		location.Type,
		location.MaxCapacityUnits,
		location.IsLocked,
		location.IsActive,
		location.CreatedAt,
		location.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("ロケーションは既に存在します")
		}
		return fmt.Errorf("ロケーション作成に失敗しました: %w", err)
	}
	return nil
}

// GetLocation retrieves a location by ID
// IDでロケーションを取得
func (s *pgStore) GetLocation(ctx context.Context, locationID string) (*warehouse.Location, error) {
	query := `
		SELECT id, code, warehouse_id, type, max_capacity_units, is_locked, is_active, created_at, updated_at
		FROM locations
		WHERE id = $1` + s.forUpdate()

	location := &warehouse.Location{}
	err := s.q.QueryRowContext(ctx, query, locationID).Scan(
		&location.ID,
		&location.Code,
		&location.WarehouseID,
		&location.Type,
		&location.MaxCapacityUnits,
		&location.IsLocked,
		&location.IsActive,
		&location.CreatedAt,
		&location.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrLocationNotFound
		}
		return nil, fmt.Errorf("ロケーション取得に失敗しました: %w", err)
	}
	return location, nil
}

// UpdateLocation updates a location record
// ロケーション記録を更新
func (s *pgStore) UpdateLocation(ctx context.Context, location *warehouse.Location) error {
	query := `
		UPDATE locations
		SET code = $2, type = $3, max_capacity_units = $4, is_locked = $5, is_active = $6, updated_at = $7
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query,
		location.ID,
		location.Code,
		location.Type,
		location.MaxCapacityUnits,
		location.IsLocked,
		location.IsActive,
		location.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ロケーション更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrLocationNotFound)
}

// ListLocationsByWarehouse lists all locations of a warehouse
// 倉庫内の全ロケーションを取得
func (s *pgStore) ListLocationsByWarehouse(ctx context.Context, warehouseID string) ([]warehouse.Location, error) {
	query := `
		SELECT id, code, warehouse_id, type, max_capacity_units, is_locked, is_active, created_at, updated_at
		FROM locations
		WHERE warehouse_id = $1
		ORDER BY code`

	rows, err := s.q.QueryContext(ctx, query, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("ロケーション一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var locations []warehouse.Location
	for rows.Next() {
		var l warehouse.Location
		if err := rows.Scan(&l.ID, &l.Code, &l.WarehouseID, &l.Type, &l.MaxCapacityUnits,
			&l.IsLocked, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ロケーション行の読み取りに失敗しました: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// 在庫台帳 - Inventory ledger

// CreateInventory creates an inventory record
// 在庫記録を作成
func (s *pgStore) CreateInventory(ctx context.Context, record *warehouse.InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (id, warehouse_id, product_id, location_id, batch_number, lot_code, quantity, expiry_date, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.q.ExecContext(ctx, query,
		record.ID,
		record.WarehouseID,
		record.ProductID,
		record.LocationID,
		record.BatchNumber,
		record.LotCode,
		record.Quantity,
		record.ExpiryDate,
		record.UpdatedAt,
		record.UpdatedBy,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("在庫記録は既に存在します")
		}
		return fmt.Errorf("在庫記録作成に失敗しました: %w", err)
	}
	return nil
}

// GetInventory retrieves the record at one inventory key
// 在庫キーに対応する記録を取得
func (s *pgStore) GetInventory(ctx context.Context, key warehouse.InventoryKey) (*warehouse.InventoryRecord, error) {
	query := `
		SELECT id, warehouse_id, product_id, location_id, batch_number, lot_code, quantity, expiry_date, updated_at, updated_by
		FROM inventory_records
		WHERE warehouse_id = $1 AND product_id = $2 AND location_id = $3 AND batch_number = $4 AND lot_code = $5` + s.forUpdate()

	record := &warehouse.InventoryRecord{}
	err := s.q.QueryRowContext(ctx, query,
		key.WarehouseID, key.ProductID, key.LocationID, key.BatchNumber, key.LotCode,
	).Scan(
		&record.ID,
		&record.WarehouseID,
		&record.ProductID,
		&record.LocationID,
		&record.BatchNumber,
		&record.LotCode,
		&record.Quantity,
		&record.ExpiryDate,
		&record.UpdatedAt,
		&record.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrRecordNotFound
		}
		return nil, fmt.Errorf("在庫記録取得に失敗しました: %w", err)
	}
	return record, nil
}

// UpdateInventory updates an inventory record
// 在庫記録を更新
func (s *pgStore) UpdateInventory(ctx context.Context, record *warehouse.InventoryRecord) error {
	query := `
		UPDATE inventory_records
		SET quantity = $2, expiry_date = $3, updated_at = $4, updated_by = $5
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query,
		record.ID,
		record.Quantity,
		record.ExpiryDate,
		record.UpdatedAt,
		record.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("在庫記録更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrRecordNotFound)
}

// DeleteInventory removes the record at one inventory key
// 在庫キーに対応する記録を削除
func (s *pgStore) DeleteInventory(ctx context.Context, key warehouse.InventoryKey) error {
	query := `
		DELETE FROM inventory_records
		WHERE warehouse_id = $1 AND product_id = $2 AND location_id = $3 AND batch_number = $4 AND lot_code = $5`

	result, err := s.q.ExecContext(ctx, query,
		key.WarehouseID, key.ProductID, key.LocationID, key.BatchNumber, key.LotCode)
	if err != nil {
		return fmt.Errorf("在庫記録削除に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrRecordNotFound)
}

// FindInventory lists inventory records matching the filter
// フィルタに一致する在庫記録を取得
func (s *pgStore) FindInventory(ctx context.Context, filter warehouse.InventoryFilter) ([]warehouse.InventoryRecord, error) {
	query := `
		SELECT id, warehouse_id, product_id, location_id, batch_number, lot_code, quantity, expiry_date, updated_at, updated_by
		FROM inventory_records
		WHERE ($1 = '' OR warehouse_id = $1)
		  AND ($2 = '' OR product_id = $2)
		  AND ($3 = '' OR location_id = $3)
		  AND ($4 = '' OR batch_number = $4)
		  AND ($5 = '' OR lot_code = $5)
		ORDER BY warehouse_id, product_id, location_id, batch_number, lot_code`

	rows, err := s.q.QueryContext(ctx, query,
		filter.WarehouseID, filter.ProductID, filter.LocationID, filter.BatchNumber, filter.LotCode)
	if err != nil {
		return nil, fmt.Errorf("在庫検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var records []warehouse.InventoryRecord
	for rows.Next() {
		var r warehouse.InventoryRecord
		if err := rows.Scan(&r.ID, &r.WarehouseID, &r.ProductID, &r.LocationID, &r.BatchNumber,
			&r.LotCode, &r.Quantity, &r.ExpiryDate, &r.UpdatedAt, &r.UpdatedBy); err != nil {
			return nil, fmt.Errorf("在庫行の読み取りに失敗しました: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SumQuantityByLocation returns the total on-hand units at a location
// ロケーションの現在庫合計を返す
func (s *pgStore) SumQuantityByLocation(ctx context.Context, locationID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM inventory_records
		WHERE location_id = $1`

	var total int64
	if err := s.q.QueryRowContext(ctx, query, locationID).Scan(&total); err != nil {
		return 0, fmt.Errorf("ロケーション在庫集計に失敗しました: %w", err)
	}
	return total, nil
}

// 受領 - Receiving

// CreateReceipt creates a receipt record
// 入荷記録を作成
func (s *pgStore) CreateReceipt(ctx context.Context, receipt *warehouse.Receipt) error {
	query := `
		INSERT INTO receipts (id, warehouse_id, supplier_ref, status, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.q.ExecContext(ctx, query,
		receipt.ID,
		receipt.WarehouseID,
		receipt.SupplierRef,
		receipt.Status,
		receipt.CreatedAt,
		receipt.UpdatedAt,
		receipt.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("入荷作成に失敗しました: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID
// IDで入荷を取得
func (s *pgStore) GetReceipt(ctx context.Context, receiptID string) (*warehouse.Receipt, error) {
	query := `
		SELECT id, warehouse_id, supplier_ref, status, created_at, updated_at, created_by
		FROM receipts
		WHERE id = $1` + s.forUpdate()

	receipt := &warehouse.Receipt{}
	err := s.q.QueryRowContext(ctx, query, receiptID).Scan(
		&receipt.ID,
		&receipt.WarehouseID,
		&receipt.SupplierRef,
		&receipt.Status,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
		&receipt.CreatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("入荷取得に失敗しました: %w", err)
	}
	return receipt, nil
}

// UpdateReceipt updates a receipt record
// 入荷記録を更新
func (s *pgStore) UpdateReceipt(ctx context.Context, receipt *warehouse.Receipt) error {
	query := `
		UPDATE receipts
		SET status = $2, updated_at = $3
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query, receipt.ID, receipt.Status, receipt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("入荷更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrReceiptNotFound)
}

// CreateContainer creates a container record
// コンテナ記録を作成
func (s *pgStore) CreateContainer(ctx context.Context, container *warehouse.Container) error {
	query := `
		INSERT INTO containers (id, receipt_id, code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.q.ExecContext(ctx, query,
		container.ID,
		container.ReceiptID,
		container.Code,
		container.Status,
		container.CreatedAt,
		container.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("コンテナコードは既に使用されています")
		}
		return fmt.Errorf("コンテナ作成に失敗しました: %w", err)
	}
	return nil
}

// GetContainer retrieves a container by ID
// IDでコンテナを取得
func (s *pgStore) GetContainer(ctx context.Context, containerID string) (*warehouse.Container, error) {
	query := `
		SELECT id, receipt_id, code, status, created_at, updated_at
		FROM containers
		WHERE id = $1` + s.forUpdate()

	container := &warehouse.Container{}
	err := s.q.QueryRowContext(ctx, query, containerID).Scan(
		&container.ID,
		&container.ReceiptID,
		&container.Code,
		&container.Status,
		&container.CreatedAt,
		&container.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrContainerNotFound
		}
		return nil, fmt.Errorf("コンテナ取得に失敗しました: %w", err)
	}
	return container, nil
}

// UpdateContainer updates a container record
// コンテナ記録を更新
func (s *pgStore) UpdateContainer(ctx context.Context, container *warehouse.Container) error {
	query := `
		UPDATE containers
		SET status = $2, updated_at = $3
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query, container.ID, container.Status, container.UpdatedAt)
	if err != nil {
		return fmt.Errorf("コンテナ更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrContainerNotFound)
}

// ListContainersByReceipt lists the containers of a receipt
// 入荷のコンテナ一覧を取得
func (s *pgStore) ListContainersByReceipt(ctx context.Context, receiptID string) ([]warehouse.Container, error) {
	query := `
		SELECT id, receipt_id, code, status, created_at, updated_at
		FROM containers
		WHERE receipt_id = $1
		ORDER BY code`

	rows, err := s.q.QueryContext(ctx, query, receiptID)
	if err != nil {
		return nil, fmt.Errorf("コンテナ一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var containers []warehouse.Container
	for rows.Next() {
		var c warehouse.Container
		if err := rows.Scan(&c.ID, &c.ReceiptID, &c.Code, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("コンテナ行の読み取りに失敗しました: %w", err)
		}
		containers = append(containers, c)
	}
	return containers, rows.Err()
}

// CreateReceivedLine creates a received line record
// 受領明細記録を作成
func (s *pgStore) CreateReceivedLine(ctx context.Context, line *warehouse.ReceivedLine) error {
	query := `
		INSERT INTO received_lines (id, receipt_id, container_id, product_id, batch_number, lot_code, expiry_date, expected_quantity, received_quantity, putaway_quantity, unit_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.q.ExecContext(ctx, query,
		line.ID,
		line.ReceiptID,
		line.ContainerID,
		line.ProductID,
		line.BatchNumber,
		line.LotCode,
		line.ExpiryDate,
		line.ExpectedQuantity,
		line.ReceivedQuantity,
		line.PutawayQuantity,
		line.UnitCost,
		line.CreatedAt,
		line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("受領明細作成に失敗しました: %w", err)
	}
	return nil
}

// GetReceivedLine retrieves a received line by ID
// IDで受領明細を取得
func (s *pgStore) GetReceivedLine(ctx context.Context, lineID string) (*warehouse.ReceivedLine, error) {
	query := `
		SELECT id, receipt_id, container_id, product_id, batch_number, lot_code, expiry_date, expected_quantity, received_quantity, putaway_quantity, unit_cost, created_at, updated_at
		FROM received_lines
		WHERE id = $1` + s.forUpdate()

	line := &warehouse.ReceivedLine{}
	err := s.q.QueryRowContext(ctx, query, lineID).Scan(
		&line.ID,
		&line.ReceiptID,
		&line.ContainerID,
		&line.ProductID,
		&line.BatchNumber,
		&line.LotCode,
		&line.ExpiryDate,
		&line.ExpectedQuantity,
		&line.ReceivedQuantity,
		&line.PutawayQuantity,
		&line.UnitCost,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrReceivedLineNotFound
		}
		return nil, fmt.Errorf("受領明細取得に失敗しました: %w", err)
	}
	return line, nil
}

// UpdateReceivedLine updates a received line record
// 受領明細記録を更新
func (s *pgStore) UpdateReceivedLine(ctx context.Context, line *warehouse.ReceivedLine) error {
	query := `
		UPDATE received_lines
		SET expiry_date = $2, expected_quantity = $3, received_quantity = $4, putaway_quantity = $5, unit_cost = $6, updated_at = $7
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query,
		line.ID,
		line.ExpiryDate,
		line.ExpectedQuantity,
		line.ReceivedQuantity,
		line.PutawayQuantity,
		line.UnitCost,
		line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("受領明細更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrReceivedLineNotFound)
}

// DeleteReceivedLine deletes a received line record
// 受領明細記録を削除
func (s *pgStore) DeleteReceivedLine(ctx context.Context, lineID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM received_lines WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("受領明細削除に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrReceivedLineNotFound)
}

// FindReceivedLine finds the accumulation line for one product and lot in a
// container
// コンテナ内の商品・ロットに対応する累積明細を検索
func (s *pgStore) FindReceivedLine(ctx context.Context, receiptID, containerID, productID, lotCode string) (*warehouse.ReceivedLine, error) {
	query := `
		SELECT id, receipt_id, container_id, product_id, batch_number, lot_code, expiry_date, expected_quantity, received_quantity, putaway_quantity, unit_cost, created_at, updated_at
		FROM received_lines
		WHERE receipt_id = $1 AND container_id = $2 AND product_id = $3 AND lot_code = $4` + s.forUpdate()

	line := &warehouse.ReceivedLine{}
	err := s.q.QueryRowContext(ctx, query, receiptID, containerID, productID, lotCode).Scan(
		&line.ID,
		&line.ReceiptID,
		&line.ContainerID,
		&line.ProductID,
		&line.BatchNumber,
		&line.LotCode,
		&line.ExpiryDate,
		&line.ExpectedQuantity,
		&line.ReceivedQuantity,
		&line.PutawayQuantity,
		&line.UnitCost,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrReceivedLineNotFound
		}
		return nil, fmt.Errorf("受領明細検索に失敗しました: %w", err)
	}
	return line, nil
}

// ListReceivedLinesByContainer lists the received lines of a container
// コンテナの受領明細一覧を取得
func (s *pgStore) ListReceivedLinesByContainer(ctx context.Context, containerID string) ([]warehouse.ReceivedLine, error) {
	return s.listReceivedLines(ctx, `container_id`, containerID)
}

// ListReceivedLinesByReceipt lists the received lines of a receipt
// 入荷の受領明細一覧を取得
func (s *pgStore) ListReceivedLinesByReceipt(ctx context.Context, receiptID string) ([]warehouse.ReceivedLine, error) {
	return s.listReceivedLines(ctx, `receipt_id`, receiptID)
}

func (s *pgStore) listReceivedLines(ctx context.Context, column, value string) ([]warehouse.ReceivedLine, error) {
	query := `
		SELECT id, receipt_id, container_id, product_id, batch_number, lot_code, expiry_date, expected_quantity, received_quantity, putaway_quantity, unit_cost, created_at, updated_at
		FROM received_lines
		WHERE ` + column + ` = $1
		ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("受領明細一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var lines []warehouse.ReceivedLine
	for rows.Next() {
		var l warehouse.ReceivedLine
		if err := rows.Scan(&l.ID, &l.ReceiptID, &l.ContainerID, &l.ProductID, &l.BatchNumber,
			&l.LotCode, &l.ExpiryDate, &l.ExpectedQuantity, &l.ReceivedQuantity, &l.PutawayQuantity,
			&l.UnitCost, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("受領明細行の読み取りに失敗しました: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// 注文 - Orders

// CreateOrder creates an order record
// 注文記録を作成
func (s *pgStore) CreateOrder(ctx context.Context, order *warehouse.Order) error {
	query := `
		INSERT INTO orders (id, warehouse_id, customer_ref, status, staging_location_id, driver_id, tracking_number, delivery_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.q.ExecContext(ctx, query,
		order.ID,
		order.WarehouseID,
		order.CustomerRef,
		order.Status,
		order.StagingLocationID,
		order.DriverID,
		order.TrackingNumber,
		order.DeliveryCode,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("注文作成に失敗しました: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by ID
// IDで注文を取得
func (s *pgStore) GetOrder(ctx context.Context, orderID string) (*warehouse.Order, error) {
	query := `
		SELECT id, warehouse_id, customer_ref, status, staging_location_id, driver_id, tracking_number, delivery_code, created_at, updated_at
		FROM orders
		WHERE id = $1` + s.forUpdate()

	order := &warehouse.Order{}
	err := s.q.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID,
		&order.WarehouseID,
		&order.CustomerRef,
		&order.Status,
		&order.StagingLocationID,
		&order.DriverID,
		&order.TrackingNumber,
		&order.DeliveryCode,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrOrderNotFound
		}
		return nil, fmt.Errorf("注文取得に失敗しました: %w", err)
	}
	return order, nil
}

// UpdateOrder updates an order record
// 注文記録を更新
func (s *pgStore) UpdateOrder(ctx context.Context, order *warehouse.Order) error {
	query := `
		UPDATE orders
		SET status = $2, staging_location_id = $3, driver_id = $4, tracking_number = $5, delivery_code = $6, updated_at = $7
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.StagingLocationID,
		order.DriverID,
		order.TrackingNumber,
		order.DeliveryCode,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("注文更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrOrderNotFound)
}

// CreateOrderLine creates an order line record
// 注文明細記録を作成
func (s *pgStore) CreateOrderLine(ctx context.Context, line *warehouse.OrderLine) error {
	query := `
		INSERT INTO order_lines (id, order_id, product_id, ordered_quantity, picked_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.q.ExecContext(ctx, query,
		line.ID,
		line.OrderID,
		line.ProductID,
		line.OrderedQuantity,
		line.PickedQuantity,
		line.CreatedAt,
		line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("注文明細作成に失敗しました: %w", err)
	}
	return nil
}

// GetOrderLine retrieves an order line by ID
// IDで注文明細を取得
func (s *pgStore) GetOrderLine(ctx context.Context, lineID string) (*warehouse.OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, ordered_quantity, picked_quantity, created_at, updated_at
		FROM order_lines
		WHERE id = $1` + s.forUpdate()

	line := &warehouse.OrderLine{}
	err := s.q.QueryRowContext(ctx, query, lineID).Scan(
		&line.ID,
		&line.OrderID,
		&line.ProductID,
		&line.OrderedQuantity,
		&line.PickedQuantity,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrOrderLineNotFound
		}
		return nil, fmt.Errorf("注文明細取得に失敗しました: %w", err)
	}
	return line, nil
}

// UpdateOrderLine updates an order line record
// 注文明細記録を更新
func (s *pgStore) UpdateOrderLine(ctx context.Context, line *warehouse.OrderLine) error {
	query := `
		UPDATE order_lines
		SET ordered_quantity = $2, picked_quantity = $3, updated_at = $4
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query,
		line.ID,
		line.OrderedQuantity,
		line.PickedQuantity,
		line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("注文明細更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrOrderLineNotFound)
}

// ListOrderLines lists the lines of an order
// 注文の明細一覧を取得
func (s *pgStore) ListOrderLines(ctx context.Context, orderID string) ([]warehouse.OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, ordered_quantity, picked_quantity, created_at, updated_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("注文明細一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var lines []warehouse.OrderLine
	for rows.Next() {
		var l warehouse.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.OrderedQuantity,
			&l.PickedQuantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("注文明細行の読み取りに失敗しました: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// FindOrderLineByProduct finds the line for one product in an order
// 注文内の商品に対応する明細を検索
func (s *pgStore) FindOrderLineByProduct(ctx context.Context, orderID, productID string) (*warehouse.OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, ordered_quantity, picked_quantity, created_at, updated_at
		FROM order_lines
		WHERE order_id = $1 AND product_id = $2` + s.forUpdate()

	line := &warehouse.OrderLine{}
	err := s.q.QueryRowContext(ctx, query, orderID, productID).Scan(
		&line.ID,
		&line.OrderID,
		&line.ProductID,
		&line.OrderedQuantity,
		&line.PickedQuantity,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrOrderLineNotFound
		}
		return nil, fmt.Errorf("注文明細検索に失敗しました: %w", err)
	}
	return line, nil
}

// CreateOrderEvent appends an order lifecycle event
// 注文ライフサイクルイベントを追記
func (s *pgStore) CreateOrderEvent(ctx context.Context, event *warehouse.OrderEvent) error {
	query := `
		INSERT INTO order_events (id, order_id, event_type, detail, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.q.ExecContext(ctx, query,
		event.ID,
		event.OrderID,
		event.EventType,
		event.Detail,
		event.ActorID,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("注文イベント作成に失敗しました: %w", err)
	}
	return nil
}

// ListOrderEvents lists the events of an order in creation order
// 注文のイベント一覧を作成順で取得
func (s *pgStore) ListOrderEvents(ctx context.Context, orderID string) ([]warehouse.OrderEvent, error) {
	query := `
		SELECT id, order_id, event_type, detail, actor_id, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("注文イベント一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var events []warehouse.OrderEvent
	for rows.Next() {
		var e warehouse.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.EventType, &e.Detail, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("注文イベント行の読み取りに失敗しました: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ピック記録 - Pick records

// CreatePick creates a pick record
// ピック記録を作成
func (s *pgStore) CreatePick(ctx context.Context, pick *warehouse.Pick) error {
	query := `
		INSERT INTO picks (id, order_id, order_line_id, product_id, warehouse_id, location_id, batch_number, lot_code, quantity, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.q.ExecContext(ctx, query,
		pick.ID,
		pick.OrderID,
		pick.OrderLineID,
		pick.ProductID,
		pick.WarehouseID,
		pick.LocationID,
		pick.BatchNumber,
		pick.LotCode,
		pick.Quantity,
		pick.CreatedAt,
		pick.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("ピック記録作成に失敗しました: %w", err)
	}
	return nil
}

// GetPick retrieves a pick by ID
// IDでピック記録を取得
func (s *pgStore) GetPick(ctx context.Context, pickID string) (*warehouse.Pick, error) {
	query := `
		SELECT id, order_id, order_line_id, product_id, warehouse_id, location_id, batch_number, lot_code, quantity, created_at, created_by
		FROM picks
		WHERE id = $1` + s.forUpdate()

	pick := &warehouse.Pick{}
	err := s.q.QueryRowContext(ctx, query, pickID).Scan(
		&pick.ID,
		&pick.OrderID,
		&pick.OrderLineID,
		&pick.ProductID,
		&pick.WarehouseID,
		&pick.LocationID,
		&pick.BatchNumber,
		&pick.LotCode,
		&pick.Quantity,
		&pick.CreatedAt,
		&pick.CreatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrPickNotFound
		}
		return nil, fmt.Errorf("ピック記録取得に失敗しました: %w", err)
	}
	return pick, nil
}

// DeletePick hard-deletes a pick record
// ピック記録を物理削除
func (s *pgStore) DeletePick(ctx context.Context, pickID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM picks WHERE id = $1`, pickID)
	if err != nil {
		return fmt.Errorf("ピック記録削除に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrPickNotFound)
}

// ListPicksByOrder lists the picks of an order in creation order
// 注文のピック記録一覧を作成順で取得
func (s *pgStore) ListPicksByOrder(ctx context.Context, orderID string) ([]warehouse.Pick, error) {
	return s.listPicks(ctx, `order_id`, orderID)
}

// ListPicksByOrderLine lists the picks of one order line in creation order
// 注文明細のピック記録一覧を作成順で取得
func (s *pgStore) ListPicksByOrderLine(ctx context.Context, orderLineID string) ([]warehouse.Pick, error) {
	return s.listPicks(ctx, `order_line_id`, orderLineID)
}

func (s *pgStore) listPicks(ctx context.Context, column, value string) ([]warehouse.Pick, error) {
	query := `
		SELECT id, order_id, order_line_id, product_id, warehouse_id, location_id, batch_number, lot_code, quantity, created_at, created_by
		FROM picks
		WHERE ` + column + ` = $1
		ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("ピック記録一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var picks []warehouse.Pick
	for rows.Next() {
		var p warehouse.Pick
		if err := rows.Scan(&p.ID, &p.OrderID, &p.OrderLineID, &p.ProductID, &p.WarehouseID,
			&p.LocationID, &p.BatchNumber, &p.LotCode, &p.Quantity, &p.CreatedAt, &p.CreatedBy); err != nil {
			return nil, fmt.Errorf("ピック行の読み取りに失敗しました: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// 返品 - Returns

// CreateReturn creates a return record
// 返品記録を作成
func (s *pgStore) CreateReturn(ctx context.Context, ret *warehouse.Return) error {
	query := `
		INSERT INTO returns (id, order_id, warehouse_id, status, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.q.ExecContext(ctx, query,
		ret.ID,
		ret.OrderID,
		ret.WarehouseID,
		ret.Status,
		ret.CreatedAt,
		ret.UpdatedAt,
		ret.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("返品作成に失敗しました: %w", err)
	}
	return nil
}

// GetReturn retrieves a return by ID
// IDで返品を取得
func (s *pgStore) GetReturn(ctx context.Context, returnID string) (*warehouse.Return, error) {
	query := `
		SELECT id, order_id, warehouse_id, status, created_at, updated_at, created_by
		FROM returns
		WHERE id = $1` + s.forUpdate()

	ret := &warehouse.Return{}
	err := s.q.QueryRowContext(ctx, query, returnID).Scan(
		&ret.ID,
		&ret.OrderID,
		&ret.WarehouseID,
		&ret.Status,
		&ret.CreatedAt,
		&ret.UpdatedAt,
		&ret.CreatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrReturnNotFound
		}
		return nil, fmt.Errorf("返品取得に失敗しました: %w", err)
	}
	return ret, nil
}

// UpdateReturn updates a return record
// 返品記録を更新
func (s *pgStore) UpdateReturn(ctx context.Context, ret *warehouse.Return) error {
	query := `
		UPDATE returns
		SET status = $2, updated_at = $3
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query, ret.ID, ret.Status, ret.UpdatedAt)
	if err != nil {
		return fmt.Errorf("返品更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrReturnNotFound)
}

// CreateReturnLine creates a return line record
// 返品明細記録を作成
func (s *pgStore) CreateReturnLine(ctx context.Context, line *warehouse.ReturnLine) error {
	query := `
		INSERT INTO return_lines (id, return_id, order_line_id, product_id, lot_code, expected_quantity, processed_quantity, condition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.q.ExecContext(ctx, query,
		line.ID,
		line.ReturnID,
		line.OrderLineID,
		line.ProductID,
		line.LotCode,
		line.ExpectedQuantity,
		line.ProcessedQuantity,
		line.Condition,
		line.CreatedAt,
		line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("返品明細作成に失敗しました: %w", err)
	}
	return nil
}

// GetReturnLine retrieves a return line by ID
// IDで返品明細を取得
func (s *pgStore) GetReturnLine(ctx context.Context, lineID string) (*warehouse.ReturnLine, error) {
	query := `
		SELECT id, return_id, order_line_id, product_id, lot_code, expected_quantity, processed_quantity, condition, created_at, updated_at
		FROM return_lines
		WHERE id = $1` + s.forUpdate()

	line := &warehouse.ReturnLine{}
	err := s.q.QueryRowContext(ctx, query, lineID).Scan(
		&line.ID,
		&line.ReturnID,
		&line.OrderLineID,
		&line.ProductID,
		&line.LotCode,
		&line.ExpectedQuantity,
		&line.ProcessedQuantity,
		&line.Condition,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrReturnLineNotFound
		}
		return nil, fmt.Errorf("返品明細取得に失敗しました: %w", err)
	}
	return line, nil
}

// UpdateReturnLine updates a return line record
// 返品明細記録を更新
func (s *pgStore) UpdateReturnLine(ctx context.Context, line *warehouse.ReturnLine) error {
	query := `
		UPDATE return_lines
		SET expected_quantity = $2, processed_quantity = $3, condition = $4, updated_at = $5
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query,
		line.ID,
		line.ExpectedQuantity,
		line.ProcessedQuantity,
		line.Condition,
		line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("返品明細更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrReturnLineNotFound)
}

// ListReturnLines lists the lines of a return
// 返品の明細一覧を取得
func (s *pgStore) ListReturnLines(ctx context.Context, returnID string) ([]warehouse.ReturnLine, error) {
	query := `
		SELECT id, return_id, order_line_id, product_id, lot_code, expected_quantity, processed_quantity, condition, created_at, updated_at
		FROM return_lines
		WHERE return_id = $1
		ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, returnID)
	if err != nil {
		return nil, fmt.Errorf("返品明細一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var lines []warehouse.ReturnLine
	for rows.Next() {
		var l warehouse.ReturnLine
		if err := rows.Scan(&l.ID, &l.ReturnID, &l.OrderLineID, &l.ProductID, &l.LotCode,
			&l.ExpectedQuantity, &l.ProcessedQuantity, &l.Condition, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("返品明細行の読み取りに失敗しました: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// SumActiveReturnExpected sums the expected quantities that non-cancelled
// returns hold against one order line
// 注文明細に対してキャンセルされていない返品が確保している予定数量を集計
func (s *pgStore) SumActiveReturnExpected(ctx context.Context, orderLineID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(rl.expected_quantity), 0)
		FROM return_lines rl
		JOIN returns r ON r.id = rl.return_id
		WHERE rl.order_line_id = $1 AND r.status <> 'cancelled'`

	var total int64
	if err := s.q.QueryRowContext(ctx, query, orderLineID).Scan(&total); err != nil {
		return 0, fmt.Errorf("返品確保数量の集計に失敗しました: %w", err)
	}
	return total, nil
}

// 在庫移動 - Transfers

// CreateTransferOrder creates a transfer order record
// 在庫移動記録を作成
func (s *pgStore) CreateTransferOrder(ctx context.Context, transfer *warehouse.TransferOrder) error {
	query := `
		INSERT INTO transfer_orders (id, reference, status, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.q.ExecContext(ctx, query,
		transfer.ID,
		transfer.Reference,
		transfer.Status,
		transfer.CreatedAt,
		transfer.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("在庫移動作成に失敗しました: %w", err)
	}
	return nil
}

// GetTransferOrder retrieves a transfer order by ID
// IDで在庫移動を取得
func (s *pgStore) GetTransferOrder(ctx context.Context, transferID string) (*warehouse.TransferOrder, error) {
	query := `
		SELECT id, reference, status, created_at, created_by
		FROM transfer_orders
		WHERE id = $1`

	transfer := &warehouse.TransferOrder{}
	err := s.q.QueryRowContext(ctx, query, transferID).Scan(
		&transfer.ID,
		&transfer.Reference,
		&transfer.Status,
		&transfer.CreatedAt,
		&transfer.CreatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, warehouse.ErrTransferNotFound
		}
		return nil, fmt.Errorf("在庫移動取得に失敗しました: %w", err)
	}
	return transfer, nil
}

// CreateTransferLine creates a transfer line record
// 移動明細記録を作成
func (s *pgStore) CreateTransferLine(ctx context.Context, line *warehouse.TransferLine) error {
	query := `
		INSERT INTO transfer_lines (id, transfer_order_id, product_id, source_warehouse_id, source_location_id, dest_warehouse_id, dest_location_id, batch_number, lot_code, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.q.ExecContext(ctx, query,
		line.ID,
		line.TransferOrderID,
		line.ProductID,
		line.SourceWarehouseID,
		line.SourceLocationID,
		line.DestWarehouseID,
		line.DestLocationID,
		line.BatchNumber,
		line.LotCode,
		line.Quantity,
	)
	if err != nil {
		return fmt.Errorf("移動明細作成に失敗しました: %w", err)
	}
	return nil
}

// ListTransferLines lists the lines of a transfer order
// 在庫移動の明細一覧を取得
func (s *pgStore) ListTransferLines(ctx context.Context, transferID string) ([]warehouse.TransferLine, error) {
	query := `
		SELECT id, transfer_order_id, product_id, source_warehouse_id, source_location_id, dest_warehouse_id, dest_location_id, batch_number, lot_code, quantity
		FROM transfer_lines
		WHERE transfer_order_id = $1`

	rows, err := s.q.QueryContext(ctx, query, transferID)
	if err != nil {
		return nil, fmt.Errorf("移動明細一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var lines []warehouse.TransferLine
	for rows.Next() {
		var l warehouse.TransferLine
		if err := rows.Scan(&l.ID, &l.TransferOrderID, &l.ProductID, &l.SourceWarehouseID,
			&l.SourceLocationID, &l.DestWarehouseID, &l.DestLocationID, &l.BatchNumber,
			&l.LotCode, &l.Quantity); err != nil {
			return nil, fmt.Errorf("移動明細行の読み取りに失敗しました: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// 単品トークン - Unit tokens

// CreateUnitTokens inserts a batch of unit tokens
// 単品トークンをまとめて作成
func (s *pgStore) CreateUnitTokens(ctx context.Context, tokens []warehouse.UnitToken) error {
	if len(tokens) == 0 {
		return nil
	}

	query := `
		INSERT INTO unit_tokens (id, type, source_id, product_id, warehouse_id, location_id, batch_number, lot_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i := range tokens {
		t := &tokens[i]
		if _, err := s.q.ExecContext(ctx, query,
			t.ID, t.Type, t.SourceID, t.ProductID, t.WarehouseID,
			t.LocationID, t.BatchNumber, t.LotCode, t.CreatedAt,
		); err != nil {
			return fmt.Errorf("単品トークン作成に失敗しました: %w", err)
		}
	}
	return nil
}

// DeleteUnitTokensBySource removes every token emitted by one source record
// 発生源レコードが発行した全トークンを削除
func (s *pgStore) DeleteUnitTokensBySource(ctx context.Context, sourceID string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM unit_tokens WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("単品トークン削除に失敗しました: %w", err)
	}
	return nil
}

// ListUnitTokensBySource lists the tokens emitted by one source record
// 発生源レコードが発行したトークン一覧を取得
func (s *pgStore) ListUnitTokensBySource(ctx context.Context, sourceID string) ([]warehouse.UnitToken, error) {
	query := `
		SELECT id, type, source_id, product_id, warehouse_id, location_id, batch_number, lot_code, created_at
		FROM unit_tokens
		WHERE source_id = $1
		ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("単品トークン一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tokens []warehouse.UnitToken
	for rows.Next() {
		var t warehouse.UnitToken
		if err := rows.Scan(&t.ID, &t.Type, &t.SourceID, &t.ProductID, &t.WarehouseID,
			&t.LocationID, &t.BatchNumber, &t.LotCode, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("単品トークン行の読み取りに失敗しました: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// 監査記録 - Audit records

// AppendAudit appends an immutable audit record
// 不変の監査記録を追記
func (s *pgStore) AppendAudit(ctx context.Context, record *warehouse.AuditRecord) error {
	query := `
		INSERT INTO audit_records (id, operation, actor_id, warehouse_id, product_id, location_id, batch_number, lot_code, delta, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.q.ExecContext(ctx, query,
		record.ID,
		record.Operation,
		record.ActorID,
		record.WarehouseID,
		record.ProductID,
		record.LocationID,
		record.BatchNumber,
		record.LotCode,
		record.Delta,
		record.Reason,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("監査記録追記に失敗しました: %w", err)
	}
	return nil
}

// ListAuditRecords lists audit records matching the filter, newest first
// フィルタに一致する監査記録を新しい順で取得
func (s *pgStore) ListAuditRecords(ctx context.Context, filter warehouse.AuditFilter) ([]warehouse.AuditRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, operation, actor_id, warehouse_id, product_id, location_id, batch_number, lot_code, delta, reason, created_at
		FROM audit_records
		WHERE ($1 = '' OR warehouse_id = $1)
		  AND ($2 = '' OR product_id = $2)
		  AND ($3 = '' OR operation = $3)
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := s.q.QueryContext(ctx, query, filter.WarehouseID, filter.ProductID, filter.Operation, limit)
	if err != nil {
		return nil, fmt.Errorf("監査記録一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var records []warehouse.AuditRecord
	for rows.Next() {
		var r warehouse.AuditRecord
		if err := rows.Scan(&r.ID, &r.Operation, &r.ActorID, &r.WarehouseID, &r.ProductID,
			&r.LocationID, &r.BatchNumber, &r.LotCode, &r.Delta, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("監査記録行の読み取りに失敗しました: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// requireRow converts a zero-row result into the given sentinel error
// 更新行数ゼロを指定のセンチネルエラーへ変換
func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
