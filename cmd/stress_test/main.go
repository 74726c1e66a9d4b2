package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/asset-ledger/internal/adapter/storage"
	"github.com/rl1809/asset-ledger/internal/core/service"
)

const (
	owner         = "deployer"
	verifier      = "inspector"
	totalSupply   = 20
	valuation     = 100000
	pricePerToken = 10
	totalRequests = 50
	journalSize   = 100
)

func main() {
	ctx := context.Background()

	mem := storage.NewMemoryAdapter()
	ledger, err := service.NewLedger(ctx, owner, mem, mem, mem, journalSize)
	if err != nil {
		log.Fatalf("failed to initialize ledger: %v", err)
	}
	defer ledger.Close()

	// Drain the trade journal in background
	go func() {
		for range ledger.TradeFeed() {
		}
	}()

	// Register, verify and list the full supply
	assetID, err := ledger.CreateAsset(ctx, owner, totalSupply, "1 Main St", "residential", valuation)
	if err != nil {
		log.Fatalf("failed to create asset: %v", err)
	}
	if err := ledger.AddVerifier(ctx, owner, verifier); err != nil {
		log.Fatalf("failed to add verifier: %v", err)
	}
	if err := ledger.VerifyAsset(ctx, verifier, assetID); err != nil {
		log.Fatalf("failed to verify asset: %v", err)
	}
	listingID, err := ledger.CreateListing(ctx, owner, assetID, totalSupply, pricePerToken)
	if err != nil {
		log.Fatalf("failed to create listing: %v", err)
	}

	// Fund every buyer for exactly one token
	for i := 0; i < totalRequests; i++ {
		buyer := fmt.Sprintf("buyer-%d", i)
		if err := mem.SetFunds(ctx, buyer, pricePerToken); err != nil {
			log.Fatalf("failed to fund %s: %v", buyer, err)
		}
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent buys of one token each
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			buyer := fmt.Sprintf("buyer-%d", id)
			requestID := fmt.Sprintf("stress-%d", id)
			err := ledger.BuyTokens(ctx, requestID, buyer, listingID, 1)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Listed Supply:    %d\n", totalSupply)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == totalSupply && fail == totalRequests-totalSupply {
		fmt.Printf("PASS: Exactly %d buys succeeded, %d failed\n", totalSupply, totalRequests-totalSupply)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			totalSupply, totalRequests-totalSupply, success, fail)
	}

	// Conservation: every unit is accounted for across all holders
	var held uint64
	ownerBalance, _ := ledger.TokenBalance(ctx, assetID, owner)
	held += ownerBalance
	for i := 0; i < totalRequests; i++ {
		balance, _ := ledger.TokenBalance(ctx, assetID, fmt.Sprintf("buyer-%d", i))
		held += balance
	}
	fmt.Printf("Total Held:       %d\n", held)

	if held == totalSupply {
		fmt.Println("PASS: Supply conserved")
	} else {
		fmt.Printf("FAIL: Expected total %d, got %d\n", totalSupply, held)
	}

	listing, _ := ledger.Listing(ctx, listingID)
	if listing != nil && !listing.Active && listing.Amount == 0 {
		fmt.Println("PASS: Listing fully filled and closed")
	} else {
		fmt.Printf("FAIL: Listing not closed: %+v\n", listing)
	}
}
