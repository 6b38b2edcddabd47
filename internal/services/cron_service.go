package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/config"
	"github.com/example/tillpoint/internal/models"
)

// CronService runs the scheduled maintenance jobs: expired refresh-token
// cleanup, stale held-order purge, and periodic stock sync from the ERP.
type CronService struct {
	db     *gorm.DB
	cfg    *config.Config
	erp    *ERPService
	notify *NotifyService
	cron   *cron.Cron
}

// NewCronService constructs the background job runner.
func NewCronService(db *gorm.DB, cfg *config.Config, erp *ERPService, notify *NotifyService) *CronService {
	return &CronService{
		db:     db,
		cfg:    cfg,
		erp:    erp,
		notify: notify,
		cron:   cron.New(),
	}
}

// Start registers and launches all jobs.
func (s *CronService) Start() {
	if _, err := s.cron.AddFunc("@hourly", s.cleanupRefreshTokens); err != nil {
		log.Printf("[Cron] failed to register token cleanup: %v", err)
	}
	if _, err := s.cron.AddFunc("@daily", s.purgeStaleHeldOrders); err != nil {
		log.Printf("[Cron] failed to register held-order purge: %v", err)
	}
	if _, err := s.cron.AddFunc("@every 30m", s.syncStock); err != nil {
		log.Printf("[Cron] failed to register stock sync: %v", err)
	}

	s.cron.Start()
	log.Println("[Cron] scheduled jobs started")
}

// Stop halts the scheduler and waits for running jobs.
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[Cron] scheduled jobs stopped")
}

func (s *CronService) cleanupRefreshTokens() {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{})
	if result.Error != nil {
		log.Printf("[Cron] refresh token cleanup failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("[Cron] removed %d expired refresh tokens", result.RowsAffected)
	}
}

func (s *CronService) purgeStaleHeldOrders() {
	cutoff := time.Now().Add(-s.cfg.HeldOrderRetention)

	var stale []models.HeldOrder
	if err := s.db.Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
		log.Printf("[Cron] held-order purge query failed: %v", err)
		return
	}

	for _, held := range stale {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("held_order_id = ?", held.ID).Delete(&models.HeldOrderItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&held).Error
		})
		if err != nil {
			log.Printf("[Cron] failed to purge held order %s: %v", held.ID, err)
		}
	}

	if len(stale) > 0 {
		log.Printf("[Cron] purged %d stale held orders", len(stale))
	}
}

func (s *CronService) syncStock() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	levels, err := s.erp.FetchStock(ctx)
	if err != nil {
		if err != ErrERPDisabled {
			log.Printf("[Cron] stock sync failed: %v", err)
		}
		return
	}

	for _, level := range levels {
		var product models.Product
		if err := s.db.Where("sku = ?", level.SKU).First(&product).Error; err != nil {
			continue
		}
		if product.Stock == level.Stock {
			continue
		}

		delta := level.Stock - product.Stock
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&product).Update("stock", level.Stock).Error; err != nil {
				return err
			}
			movement := models.StockMovement{
				ProductID:      product.ID,
				Delta:          delta,
				ResultingStock: level.Stock,
				Reason:         "erp_sync",
			}
			return tx.Create(&movement).Error
		})
		if err != nil {
			log.Printf("[Cron] stock sync update failed for %s: %v", level.SKU, err)
			continue
		}

		if level.Stock <= s.cfg.LowStockThreshold {
			if err := s.notify.NotifyLowStock(product.Name, product.SKU, level.Stock); err != nil {
				log.Printf("[Cron] low stock notification failed: %v", err)
			}
		}
	}
}
