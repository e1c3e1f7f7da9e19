package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/internal/config"
	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse/storage"
)

func main() {
	// ログ設定
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("設定読み込みに失敗しました", zap.Error(err))
	}

	// データベース接続
	store, err := storage.NewPostgreSQLStorage(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer store.Close()

	// 倉庫エンジン初期化
	warehouseConfig := &warehouse.Config{
		AuditEnabled:          cfg.Warehouse.AuditEnabled,
		DefaultShelfLifeYears: cfg.Warehouse.DefaultShelfLifeYears,
	}
	engine := warehouse.NewEngine(store, logger, warehouseConfig)

	// HTTPハンドラー設定
	metrics := newAPIMetrics()
	handlers := NewHandlers(engine, metrics, logger)
	router := setupRouter(handlers, metrics, cfg)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("倉庫管理APIサーバーを開始します", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, metrics *apiMetrics, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if cfg.API.EnableMetrics {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// 商品管理
	api.HandleFunc("/products", handlers.CreateProduct).Methods("POST")
	api.HandleFunc("/products/{productId}", handlers.GetProduct).Methods("GET")

	// ロケーション管理
	api.HandleFunc("/locations", handlers.CreateLocation).Methods("POST")
	api.HandleFunc("/locations", handlers.ListLocations).Methods("GET")
	api.HandleFunc("/locations/{locationId}", handlers.GetLocation).Methods("GET")
	api.HandleFunc("/locations/{locationId}/lock", handlers.SetLocationLock).Methods("POST")

	// 在庫台帳
	api.HandleFunc("/inventory/adjust", handlers.AdjustInventory).Methods("POST")
	api.HandleFunc("/inventory", handlers.FindInventory).Methods("GET")

	// 受領
	api.HandleFunc("/receipts", handlers.CreateReceipt).Methods("POST")
	api.HandleFunc("/receipts/{receiptId}", handlers.GetReceipt).Methods("GET")
	api.HandleFunc("/receipts/{receiptId}/cancel", handlers.CancelReceipt).Methods("POST")
	api.HandleFunc("/receipts/{receiptId}/containers", handlers.AddContainer).Methods("POST")
	api.HandleFunc("/containers/{containerId}/open", handlers.OpenContainer).Methods("POST")
	api.HandleFunc("/receive", handlers.Receive).Methods("POST")
	api.HandleFunc("/received-lines/{lineId}", handlers.UpdateReceivedLine).Methods("PUT")
	api.HandleFunc("/received-lines/{lineId}", handlers.DeleteReceivedLine).Methods("DELETE")
	api.HandleFunc("/received-lines/{lineId}/putaway", handlers.Putaway).Methods("POST")

	// 注文・ピッキング
	api.HandleFunc("/orders", handlers.CreateOrder).Methods("POST")
	api.HandleFunc("/orders/{orderId}", handlers.GetOrder).Methods("GET")
	api.HandleFunc("/orders/{orderId}/lines", handlers.ListOrderLines).Methods("GET")
	api.HandleFunc("/orders/{orderId}/events", handlers.ListOrderEvents).Methods("GET")
	api.HandleFunc("/orders/{orderId}/picks", handlers.ListPicks).Methods("GET")
	api.HandleFunc("/picks", handlers.Pick).Methods("POST")
	api.HandleFunc("/picks/{pickId}", handlers.Unpick).Methods("DELETE")

	// 注文ライフサイクル
	api.HandleFunc("/orders/{orderId}/stage", handlers.StageOrder).Methods("POST")
	api.HandleFunc("/orders/{orderId}/assign-driver", handlers.AssignDriver).Methods("POST")
	api.HandleFunc("/orders/{orderId}/ship", handlers.ShipOrder).Methods("POST")
	api.HandleFunc("/orders/{orderId}/out-for-delivery", handlers.MarkOutForDelivery).Methods("POST")
	api.HandleFunc("/orders/{orderId}/deliver", handlers.MarkDelivered).Methods("POST")
	api.HandleFunc("/orders/{orderId}/cancel", handlers.CancelOrder).Methods("POST")

	// 返品
	api.HandleFunc("/returns", handlers.CreateReturn).Methods("POST")
	api.HandleFunc("/returns/{returnId}", handlers.GetReturn).Methods("GET")
	api.HandleFunc("/returns/{returnId}/lines", handlers.ListReturnLines).Methods("GET")
	api.HandleFunc("/returns/{returnId}/cancel", handlers.CancelReturn).Methods("POST")
	api.HandleFunc("/return-lines/{lineId}/process", handlers.ProcessReturnItem).Methods("POST")

	// 在庫移動
	api.HandleFunc("/transfers", handlers.CreateTransfer).Methods("POST")
	api.HandleFunc("/transfers/{transferId}", handlers.GetTransfer).Methods("GET")

	// 監査・トークン
	api.HandleFunc("/audit", handlers.ListAuditRecords).Methods("GET")
	api.HandleFunc("/tokens/{sourceId}", handlers.ListUnitTokens).Methods("GET")

	// CORS設定（開発用）
	if cfg.API.EnableCORS {
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Actor-ID, X-Warehouse-ID")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// メトリクスとログ
	router.Use(metricsMiddleware(metrics))
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// リクエスト処理
			next.ServeHTTP(w, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
