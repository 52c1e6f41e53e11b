package main

import (
	"context"
	"encoding/xml"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/spf13/viper"
	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/database"
	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/services"
)

// settlement worker drains the withdrawal payout queue. Until the bank
// integration lands every payout is acknowledged with an ACSC pacs.002
// status report on the status queue.
func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient == nil {
		log.Fatal("Settlement worker requires Redis")
	}
	defer redisClient.Close()

	settlement := services.NewSettlementService(redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Settlement worker shutting down...")
		cancel()
	}()

	log.Println("Settlement worker started")
	for {
		entry, err := redisClient.BLPop(ctx, 5*time.Second, "settlement_queue").Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				log.Println("Settlement worker stopped")
				return
			}
			log.Printf("[SETTLEMENT] Queue read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		if err := processPayout(ctx, settlement, entry[1]); err != nil {
			log.Printf("[SETTLEMENT] Failed to process payout: %v", err)
		}
	}
}

func processPayout(ctx context.Context, settlement *services.SettlementService, payload string) error {
	var doc pacs_v08.FIToFICustomerCreditTransferV08
	if err := xml.Unmarshal([]byte(payload), &doc); err != nil {
		return err
	}

	if len(doc.CdtTrfTxInf) == 0 {
		return errors.New("payout message carries no transaction")
	}

	tx := doc.CdtTrfTxInf[0]
	reference := string(tx.PmtId.EndToEndId)

	bank := ""
	if tx.CdtrAgt.FinInstnId.ClrSysMmbId != nil {
		bank = string(tx.CdtrAgt.FinInstnId.ClrSysMmbId.MmbId)
	}
	log.Printf("[SETTLEMENT] Payout %s: %.0f %s to %s",
		reference, tx.IntrBkSttlmAmt.Value, tx.IntrBkSttlmAmt.Ccy, bank)

	return settlement.ReportStatus(ctx, reference, "ACSC")
}
