package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/asset-ledger/internal/adapter/handler"
	"github.com/rl1809/asset-ledger/internal/adapter/storage"
	"github.com/rl1809/asset-ledger/internal/core/domain"
	"github.com/rl1809/asset-ledger/internal/core/service"
	"github.com/rl1809/asset-ledger/internal/port"
)

const (
	workerCount = 4
	journalSize = 1024
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpAddr := getenv("HTTP_ADDR", ":8080")
	mysqlDSN := getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/assetledger?parseTime=true")
	redisAddr := getenv("REDIS_ADDR", "localhost:6379")
	owner := getenv("LEDGER_OWNER", "")
	if owner == "" {
		log.Fatal("LEDGER_OWNER must be set to the owner principal")
	}

	// Initialize MySQL
	db, err := sqlx.Connect("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Println("connected to mysql")

	if err := storage.RunMigrations(db.DB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	// Initialize adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)

	// Initialize ledger
	ledger, err := service.NewLedger(ctx, owner, mysqlAdapter, redisAdapter, redisAdapter, journalSize)
	if err != nil {
		log.Fatalf("failed to initialize ledger: %v", err)
	}
	log.Printf("ledger owner: %s", owner)

	// Start trade journal workers
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			journalLoop(id, ledger.TradeFeed(), mysqlAdapter)
		}(i)
	}
	log.Printf("started %d journal workers", workerCount)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(ledger)
	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: httpHandler.Router(),
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	// Close trade journal and wait for workers
	ledger.Close()
	wg.Wait()
	log.Println("journal workers stopped")

	rdb.Close()
	db.Close()
	log.Println("connections closed")
}

// journalLoop persists settled trades. The journal is best-effort: a failed
// insert is logged and the trade is dropped, ledger state is already final.
func journalLoop(id int, feed <-chan domain.Trade, store port.Store) {
	for trade := range feed {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := store.RecordTrade(ctx, trade); err != nil {
			log.Printf("worker %d: failed to record trade %s: %v", id, trade.ID, err)
		} else {
			log.Printf("worker %d: recorded trade %s", id, trade.ID)
		}

		cancel()
	}
}
