package db

import "time"

// DailyStat is one day of aggregated gateway traffic. Rows are only ever
// incremented; the stats service batches counts in memory and flushes them
// here so request handling never waits on MySQL.
type DailyStat struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Day         string    `gorm:"uniqueIndex;not null;size:10" json:"day"` // YYYY-MM-DD
	Requests    int64     `json:"requests"`
	Analyses    int64     `json:"analyses"`
	Errors      int64     `json:"errors"`
	RateLimited int64     `json:"rate_limited"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
