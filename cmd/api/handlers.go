package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// Handlers holds HTTP handlers for the warehouse API
// 倉庫API用のHTTPハンドラーを保持
type Handlers struct {
	engine  *warehouse.Engine
	metrics *apiMetrics
	logger  *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(engine *warehouse.Engine, metrics *apiMetrics, logger *zap.Logger) *Handlers {
	return &Handlers{
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// requestContext derives actor and warehouse scope from request headers
// リクエストヘッダーから実行者と倉庫スコープを導出
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if actor := r.Header.Get("X-Actor-ID"); actor != "" {
		ctx = warehouse.WithActor(ctx, actor)
	}
	if wh := r.Header.Get("X-Warehouse-ID"); wh != "" {
		ctx = warehouse.WithWarehouse(ctx, wh)
	}
	return ctx
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Ping(r.Context()); err != nil {
		h.sendError(w, http.StatusServiceUnavailable, "ストレージに接続できません")
		return
	}
	h.sendSuccess(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "soukoGoFramework",
	})
}

// 商品管理 - Product management

// CreateProductRequest represents request to register a product
// 商品登録リクエストを表現
type CreateProductRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SKU            string `json:"sku"`
	ShelfLifeYears int    `json:"shelf_life_years"`
}

// CreateProduct handles product registration requests
// 商品登録リクエストを処理
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	product := &warehouse.Product{
		ID:             req.ID,
		Name:           req.Name,
		SKU:            req.SKU,
		ShelfLifeYears: req.ShelfLifeYears,
	}
	err := h.engine.CreateProduct(requestContext(r), product)
	h.metrics.observeOperation("create_product", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, product)
}

// GetProduct handles product lookup requests
// 商品取得リクエストを処理
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	product, err := h.engine.GetProduct(requestContext(r), productID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, product)
}

// ロケーション管理 - Location management

// CreateLocationRequest represents request to register a location
// ロケーション登録リクエストを表現
type CreateLocationRequest struct {
	ID               string `json:"id"`
	Code             string `json:"code"`
	WarehouseID      string `json:"warehouse_id"`
	Type             string `json:"type"`
	MaxCapacityUnits *int64 `json:"max_capacity_units"`
}

// CreateLocation handles location registration requests
// ロケーション登録リクエストを処理
func (h *Handlers) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	location := &warehouse.Location{
		ID:               req.ID,
		Code:             req.Code,
		WarehouseID:      req.WarehouseID,
		Type:             warehouse.LocationType(req.Type),
		MaxCapacityUnits: req.MaxCapacityUnits,
		IsActive:         true,
	}
	err := h.engine.CreateLocation(requestContext(r), location)
	h.metrics.observeOperation("create_location", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, location)
}

// GetLocation handles location lookup requests
// ロケーション取得リクエストを処理
func (h *Handlers) GetLocation(w http.ResponseWriter, r *http.Request) {
	locationID := mux.Vars(r)["locationId"]

	location, err := h.engine.Registry.GetLocation(requestContext(r), locationID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, location)
}

// ListLocations handles location list requests for one warehouse
// 倉庫のロケーション一覧リクエストを処理
func (h *Handlers) ListLocations(w http.ResponseWriter, r *http.Request) {
	warehouseID := r.URL.Query().Get("warehouse_id")

	locations, err := h.engine.Registry.ListLocations(requestContext(r), warehouseID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, locations)
}

// SetLocationLockRequest represents request to lock or unlock a location
// ロケーションロック変更リクエストを表現
type SetLocationLockRequest struct {
	Locked bool `json:"locked"`
}

// SetLocationLock handles location lock requests
// ロケーションロックリクエストを処理
func (h *Handlers) SetLocationLock(w http.ResponseWriter, r *http.Request) {
	locationID := mux.Vars(r)["locationId"]

	var req SetLocationLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	err := h.engine.SetLocationLock(requestContext(r), locationID, req.Locked)
	h.metrics.observeOperation("set_location_lock", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]interface{}{"location_id": locationID, "locked": req.Locked})
}

// 在庫台帳 - Inventory ledger

// AdjustRequest represents a raw ledger adjustment request
// 台帳直接調整リクエストを表現
type AdjustRequest struct {
	WarehouseID string `json:"warehouse_id"`
	ProductID   string `json:"product_id"`
	LocationID  string `json:"location_id"`
	BatchNumber string `json:"batch_number"`
	LotCode     string `json:"lot_code"`
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason"`
}

// AdjustInventory handles raw ledger adjustment requests
// 台帳直接調整リクエストを処理
func (h *Handlers) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	key := warehouse.InventoryKey{
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
		LocationID:  req.LocationID,
		BatchNumber: req.BatchNumber,
		LotCode:     req.LotCode,
	}
	newQuantity, err := h.engine.Ledger.Adjust(requestContext(r), key, req.Delta, warehouse.AdjustOptions{Reason: req.Reason})
	h.metrics.observeOperation("adjust", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]interface{}{"key": key, "quantity": newQuantity})
}

// FindInventory handles inventory search requests
// 在庫検索リクエストを処理
func (h *Handlers) FindInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := warehouse.InventoryFilter{
		WarehouseID: q.Get("warehouse_id"),
		ProductID:   q.Get("product_id"),
		LocationID:  q.Get("location_id"),
		BatchNumber: q.Get("batch_number"),
		LotCode:     q.Get("lot_code"),
	}

	records, err := h.engine.Ledger.Find(requestContext(r), filter)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, records)
}

// 受領 - Receiving

// CreateReceiptRequest represents request to open a receipt
// 入荷作成リクエストを表現
type CreateReceiptRequest struct {
	WarehouseID string `json:"warehouse_id"`
	SupplierRef string `json:"supplier_ref"`
}

// CreateReceipt handles receipt creation requests
// 入荷作成リクエストを処理
func (h *Handlers) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req CreateReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	receipt, err := h.engine.Receiving.CreateReceipt(requestContext(r), req.WarehouseID, req.SupplierRef)
	h.metrics.observeOperation("create_receipt", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, receipt)
}

// GetReceipt handles receipt lookup requests
// 入荷取得リクエストを処理
func (h *Handlers) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID := mux.Vars(r)["receiptId"]

	receipt, err := h.engine.Receiving.GetReceipt(requestContext(r), receiptID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, receipt)
}

// CancelReceipt handles receipt cancellation requests
// 入荷キャンセルリクエストを処理
func (h *Handlers) CancelReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID := mux.Vars(r)["receiptId"]

	receipt, err := h.engine.Receiving.CancelReceipt(requestContext(r), receiptID)
	h.metrics.observeOperation("cancel_receipt", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, receipt)
}

// AddContainerRequest represents request to add a container to a receipt
// コンテナ追加リクエストを表現
type AddContainerRequest struct {
	Code string `json:"code"`
}

// AddContainer handles container creation requests
// コンテナ追加リクエストを処理
func (h *Handlers) AddContainer(w http.ResponseWriter, r *http.Request) {
	receiptID := mux.Vars(r)["receiptId"]

	var req AddContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	container, err := h.engine.Receiving.AddContainer(requestContext(r), receiptID, req.Code)
	h.metrics.observeOperation("add_container", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, container)
}

// OpenContainer handles container open requests
// コンテナ開封リクエストを処理
func (h *Handlers) OpenContainer(w http.ResponseWriter, r *http.Request) {
	containerID := mux.Vars(r)["containerId"]

	container, err := h.engine.Receiving.OpenContainer(requestContext(r), containerID)
	h.metrics.observeOperation("open_container", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, container)
}

// ReceiveRequest represents request to record received units
// 受領記録リクエストを表現
type ReceiveRequest struct {
	ReceiptID   string `json:"receipt_id"`
	ContainerID string `json:"container_id"`
	ProductID   string `json:"product_id"`
	Quantity    int64  `json:"quantity"`
	LotCode     string `json:"lot_code"`
	UnitCost    string `json:"unit_cost"`
}

// Receive handles receive requests
// 受領リクエストを処理
func (h *Handlers) Receive(w http.ResponseWriter, r *http.Request) {
	var req ReceiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	unitCost := decimal.Zero
	if req.UnitCost != "" {
		var err error
		unitCost, err = decimal.NewFromString(req.UnitCost)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "無効な単価形式です")
			return
		}
	}

	line, err := h.engine.Receiving.Receive(requestContext(r), warehouse.ReceiveRequest{
		ReceiptID:   req.ReceiptID,
		ContainerID: req.ContainerID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		LotCode:     req.LotCode,
		UnitCost:    unitCost,
	})
	h.metrics.observeOperation("receive", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, line)
}

// PutawayRequest represents request to put received units into a location
// 格納リクエストを表現
type PutawayRequest struct {
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

// Putaway handles putaway requests
// 格納リクエストを処理
func (h *Handlers) Putaway(w http.ResponseWriter, r *http.Request) {
	lineID := mux.Vars(r)["lineId"]

	var req PutawayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	result, err := h.engine.Receiving.Putaway(requestContext(r), lineID, req.LocationID, req.Quantity)
	h.metrics.observeOperation("putaway", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, result)
}

// UpdateReceivedLineRequest represents request to correct a received line
// 受領明細修正リクエストを表現
type UpdateReceivedLineRequest struct {
	ExpectedQuantity int64 `json:"expected_quantity"`
	ReceivedQuantity int64 `json:"received_quantity"`
}

// UpdateReceivedLine handles received line correction requests
// 受領明細修正リクエストを処理
func (h *Handlers) UpdateReceivedLine(w http.ResponseWriter, r *http.Request) {
	lineID := mux.Vars(r)["lineId"]

	var req UpdateReceivedLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	line, err := h.engine.Receiving.UpdateReceivedLine(requestContext(r), lineID, req.ExpectedQuantity, req.ReceivedQuantity)
	h.metrics.observeOperation("update_received_line", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, line)
}

// DeleteReceivedLine handles received line deletion requests
// 受領明細削除リクエストを処理
func (h *Handlers) DeleteReceivedLine(w http.ResponseWriter, r *http.Request) {
	lineID := mux.Vars(r)["lineId"]

	err := h.engine.Receiving.DeleteReceivedLine(requestContext(r), lineID)
	h.metrics.observeOperation("delete_received_line", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{"message": "受領明細を削除しました"})
}

// 注文 - Orders

// CreateOrderRequest represents request to open an order
// 注文作成リクエストを表現
type CreateOrderRequest struct {
	WarehouseID string                       `json:"warehouse_id"`
	CustomerRef string                       `json:"customer_ref"`
	Lines       []warehouse.OrderLineRequest `json:"lines"`
}

// CreateOrder handles order creation requests
// 注文作成リクエストを処理
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	order, err := h.engine.Fulfillment.CreateOrder(requestContext(r), req.WarehouseID, req.CustomerRef, req.Lines)
	h.metrics.observeOperation("create_order", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, order)
}

// GetOrder handles order lookup requests
// 注文取得リクエストを処理
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	order, err := h.engine.Fulfillment.GetOrder(requestContext(r), orderID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, order)
}

// ListOrderLines handles order line listing requests
// 注文明細一覧リクエストを処理
func (h *Handlers) ListOrderLines(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	lines, err := h.engine.Fulfillment.ListLines(requestContext(r), orderID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, lines)
}

// ListOrderEvents handles order event history requests
// 注文イベント履歴リクエストを処理
func (h *Handlers) ListOrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	events, err := h.engine.Fulfillment.ListEvents(requestContext(r), orderID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, events)
}

// Pick handles pick requests
// ピッキングリクエストを処理
func (h *Handlers) Pick(w http.ResponseWriter, r *http.Request) {
	var req warehouse.PickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	pick, err := h.engine.Picking.Pick(requestContext(r), req)
	h.metrics.observeOperation("pick", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, pick)
}

// Unpick handles pick reversal requests
// ピッキング取り消しリクエストを処理
func (h *Handlers) Unpick(w http.ResponseWriter, r *http.Request) {
	pickID := mux.Vars(r)["pickId"]

	err := h.engine.Picking.Unpick(requestContext(r), pickID)
	h.metrics.observeOperation("unpick", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{"message": "ピッキングを取り消しました"})
}

// ListPicks handles pick list requests for an order
// 注文のピック一覧リクエストを処理
func (h *Handlers) ListPicks(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	picks, err := h.engine.Picking.ListPicks(requestContext(r), orderID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, picks)
}

// StageOrderRequest represents request to stage an order
// ステージングリクエストを表現
type StageOrderRequest struct {
	LocationID string `json:"location_id"`
}

// StageOrder handles order staging requests
// ステージングリクエストを処理
func (h *Handlers) StageOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	var req StageOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	order, err := h.engine.Fulfillment.Stage(requestContext(r), orderID, req.LocationID)
	h.metrics.observeOperation("stage", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, order)
}

// AssignDriverRequest represents request to assign a driver
// ドライバー割当リクエストを表現
type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

// AssignDriver handles driver assignment requests
// ドライバー割当リクエストを処理
func (h *Handlers) AssignDriver(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	var req AssignDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	order, err := h.engine.Fulfillment.AssignDriver(requestContext(r), orderID, req.DriverID)
	h.metrics.observeOperation("assign_driver", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, order)
}

// ShipOrder handles ship requests
// 出荷リクエストを処理
func (h *Handlers) ShipOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	order, err := h.engine.Fulfillment.Ship(requestContext(r), orderID)
	h.metrics.observeOperation("ship", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, order)
}

// MarkOutForDelivery handles out-for-delivery requests
// 配達中遷移リクエストを処理
func (h *Handlers) MarkOutForDelivery(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	order, err := h.engine.Fulfillment.MarkOutForDelivery(requestContext(r), orderID)
	h.metrics.observeOperation("mark_out_for_delivery", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, order)
}

// MarkDeliveredRequest represents request to confirm delivery
// 配達完了リクエストを表現
type MarkDeliveredRequest struct {
	DeliveryCode string `json:"delivery_code"`
	Receiver     string `json:"receiver"`
}

// MarkDelivered handles delivery confirmation requests
// 配達完了リクエストを処理
func (h *Handlers) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	var req MarkDeliveredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	order, err := h.engine.Fulfillment.MarkDelivered(requestContext(r), orderID, req.DeliveryCode, req.Receiver)
	h.metrics.observeOperation("mark_delivered", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, order)
}

// CancelOrder handles order cancellation requests
// 注文キャンセルリクエストを処理
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	order, err := h.engine.Fulfillment.Cancel(requestContext(r), orderID)
	h.metrics.observeOperation("cancel_order", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, order)
}

// 返品 - Returns

// CreateReturnRequest represents request to open a return
// 返品作成リクエストを表現
type CreateReturnRequest struct {
	OrderID string                        `json:"order_id"`
	Lines   []warehouse.ReturnLineRequest `json:"lines"`
}

// CreateReturn handles return creation requests
// 返品作成リクエストを処理
func (h *Handlers) CreateReturn(w http.ResponseWriter, r *http.Request) {
	var req CreateReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	ret, err := h.engine.Returns.CreateReturn(requestContext(r), req.OrderID, req.Lines)
	h.metrics.observeOperation("create_return", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, ret)
}

// GetReturn handles return lookup requests
// 返品取得リクエストを処理
func (h *Handlers) GetReturn(w http.ResponseWriter, r *http.Request) {
	returnID := mux.Vars(r)["returnId"]

	ret, err := h.engine.Returns.GetReturn(requestContext(r), returnID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, ret)
}

// ListReturnLines handles return line list requests
// 返品明細一覧リクエストを処理
func (h *Handlers) ListReturnLines(w http.ResponseWriter, r *http.Request) {
	returnID := mux.Vars(r)["returnId"]

	lines, err := h.engine.Returns.ListReturnLines(requestContext(r), returnID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, lines)
}

// ProcessReturnItemRequest represents request to process returned units
// 返品処理リクエストを表現
type ProcessReturnItemRequest struct {
	Quantity   int64  `json:"quantity"`
	Condition  string `json:"condition"`
	LocationID string `json:"location_id"`
}

// ProcessReturnItem handles return processing requests
// 返品処理リクエストを処理
func (h *Handlers) ProcessReturnItem(w http.ResponseWriter, r *http.Request) {
	lineID := mux.Vars(r)["lineId"]

	var req ProcessReturnItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	line, err := h.engine.Returns.ProcessReturnItem(requestContext(r), lineID, req.Quantity,
		warehouse.ReturnCondition(req.Condition), req.LocationID)
	h.metrics.observeOperation("process_return_item", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, line)
}

// CancelReturn handles return cancellation requests
// 返品キャンセルリクエストを処理
func (h *Handlers) CancelReturn(w http.ResponseWriter, r *http.Request) {
	returnID := mux.Vars(r)["returnId"]

	ret, err := h.engine.Returns.CancelReturn(requestContext(r), returnID)
	h.metrics.observeOperation("cancel_return", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, ret)
}

// 在庫移動 - Transfers

// CreateTransferRequest represents request to execute a transfer
// 在庫移動リクエストを表現
type CreateTransferRequest struct {
	Reference string                          `json:"reference"`
	Lines     []warehouse.TransferLineRequest `json:"lines"`
}

// CreateTransfer handles transfer requests
// 在庫移動リクエストを処理
func (h *Handlers) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	transfer, err := h.engine.Transfers.Transfer(requestContext(r), req.Reference, req.Lines)
	h.metrics.observeOperation("transfer", err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, transfer)
}

// GetTransfer handles transfer lookup requests
// 在庫移動取得リクエストを処理
func (h *Handlers) GetTransfer(w http.ResponseWriter, r *http.Request) {
	transferID := mux.Vars(r)["transferId"]

	transfer, lines, err := h.engine.Transfers.GetTransfer(requestContext(r), transferID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]interface{}{"transfer": transfer, "lines": lines})
}

// 監査・トークン - Audit and tokens

// ListAuditRecords handles audit trail queries
// 監査記録検索リクエストを処理
func (h *Handlers) ListAuditRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	filter := warehouse.AuditFilter{
		WarehouseID: q.Get("warehouse_id"),
		ProductID:   q.Get("product_id"),
		Operation:   q.Get("operation"),
		Limit:       limit,
	}

	records, err := h.engine.ListAuditRecords(requestContext(r), filter)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, records)
}

// ListUnitTokens handles unit token list requests
// 単品トークン一覧リクエストを処理
func (h *Handlers) ListUnitTokens(w http.ResponseWriter, r *http.Request) {
	sourceID := mux.Vars(r)["sourceId"]

	tokens, err := h.engine.ListUnitTokens(requestContext(r), sourceID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, tokens)
}

// レスポンスヘルパー

// sendSuccess sends a success response
// 成功レスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// sendError sends an error response
// エラーレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}

// sendDomainError maps a domain error to its HTTP status
// ドメインエラーをHTTPステータスへ対応付けて送信
func (h *Handlers) sendDomainError(w http.ResponseWriter, err error) {
	h.sendError(w, errorStatus(err), err.Error())
}

// errorStatus maps domain error kinds to HTTP status codes
// ドメインエラー種別をHTTPステータスコードへ対応付け
func errorStatus(err error) int {
	var domainErr *warehouse.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	switch domainErr.Kind {
	case warehouse.KindValidation, warehouse.KindInvalidLotCode:
		return http.StatusBadRequest
	case warehouse.KindNotFound:
		return http.StatusNotFound
	case warehouse.KindLockedResource:
		return http.StatusLocked
	case warehouse.KindCapacityExceeded, warehouse.KindInsufficientStock,
		warehouse.KindOverPick, warehouse.KindExceedsReturnable,
		warehouse.KindInvalidStateTransition:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
