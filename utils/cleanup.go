package utils

import (
	"time"

	"gorm.io/gorm"

	"github.com/linklet/linklet/models"
)

// StartExpiryCleaner periodically deletes pending signups whose code expired
// and refresh tokens past their lifetime. Best-effort housekeeping; failures
// are logged and retried on the next tick.
func StartExpiryCleaner(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			sweepExpired(db)
		}
	}()
}

func sweepExpired(db *gorm.DB) {
	now := time.Now()

	res := db.Where("code_expires_at < ?", now).Delete(&models.PendingUser{})
	if res.Error != nil && Sugar != nil {
		Sugar.Warnf("pending user sweep failed: %v", res.Error)
	} else if res.RowsAffected > 0 && Sugar != nil {
		Sugar.Infof("swept %d expired pending signups", res.RowsAffected)
	}

	res = db.Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	if res.Error != nil && Sugar != nil {
		Sugar.Warnf("refresh token sweep failed: %v", res.Error)
	} else if res.RowsAffected > 0 && Sugar != nil {
		Sugar.Infof("swept %d expired refresh tokens", res.RowsAffected)
	}
}
