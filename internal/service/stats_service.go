package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/sitesage/gateway/internal/db"
)

// counts accumulates traffic for one day between flushes
type counts struct {
	requests    int64
	analyses    int64
	errors      int64
	rateLimited int64
}

// Stats aggregates gateway traffic in memory and flushes it to MySQL on a
// fixed interval, so the request path never blocks on the database.
type Stats struct {
	db       *gorm.DB
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*counts // key: YYYY-MM-DD

	ctx       context.Context
	cancelFn  context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool

	// now is overridable for tests
	now func() time.Time
}

// NewStats creates a stats service backed by dbConn.
func NewStats(dbConn *gorm.DB) *Stats {
	ctx, cancel := context.WithCancel(context.Background())
	return &Stats{
		db:       dbConn,
		interval: time.Minute,
		pending:  make(map[string]*counts),
		ctx:      ctx,
		cancelFn: cancel,
		now:      time.Now,
	}
}

// Start launches the background flusher.
func (s *Stats) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("stats service is already running")
	}
	s.isRunning = true

	s.wg.Add(1)
	go s.flusher()

	log.Println("Stats service started")
	return nil
}

// Stop flushes pending counts and stops the background flusher.
func (s *Stats) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancelFn()
	s.wg.Wait()

	if err := s.Flush(); err != nil {
		return fmt.Errorf("final stats flush failed: %w", err)
	}

	log.Println("Stats service stopped")
	return nil
}

// Record counts one handled request. Analyze submissions through the proxy
// are tracked separately so usage of the product's main operation is visible.
func (s *Stats) Record(method, path string, status int) {
	day := s.now().UTC().Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.pending[day]
	if !ok {
		c = &counts{}
		s.pending[day] = c
	}

	c.requests++
	if method == http.MethodPost && strings.HasSuffix(path, "/analyze") {
		c.analyses++
	}
	if status == http.StatusTooManyRequests {
		c.rateLimited++
	} else if status >= 400 {
		c.errors++
	}
}

// Flush writes all pending counts to the database.
func (s *Stats) Flush() error {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string]*counts)
	s.mu.Unlock()

	for day, c := range pending {
		if err := s.increment(day, c); err != nil {
			// Put the counts back so the next flush retries them.
			s.restore(day, c)
			return err
		}
	}
	return nil
}

func (s *Stats) increment(day string, c *counts) error {
	stat := db.DailyStat{Day: day}
	if err := s.db.Where("day = ?", day).FirstOrCreate(&stat).Error; err != nil {
		return err
	}

	return s.db.Model(&db.DailyStat{}).Where("day = ?", day).Updates(map[string]interface{}{
		"requests":     gorm.Expr("requests + ?", c.requests),
		"analyses":     gorm.Expr("analyses + ?", c.analyses),
		"errors":       gorm.Expr("errors + ?", c.errors),
		"rate_limited": gorm.Expr("rate_limited + ?", c.rateLimited),
	}).Error
}

func (s *Stats) restore(day string, c *counts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.pending[day]
	if !ok {
		s.pending[day] = c
		return
	}
	existing.requests += c.requests
	existing.analyses += c.analyses
	existing.errors += c.errors
	existing.rateLimited += c.rateLimited
}

// flusher writes pending counts on a fixed interval until Stop is called.
func (s *Stats) flusher() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				log.Printf("Failed to flush stats: %v", err)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// RecentDays returns up to limit daily rows, newest first.
func (s *Stats) RecentDays(limit int) ([]db.DailyStat, error) {
	if limit < 1 || limit > 90 {
		limit = 30
	}

	var stats []db.DailyStat
	err := s.db.Order("day desc").Limit(limit).Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Totals returns all-time aggregate counters.
func (s *Stats) Totals() (*db.DailyStat, error) {
	var total db.DailyStat
	err := s.db.Model(&db.DailyStat{}).
		Select("COALESCE(SUM(requests),0) as requests, COALESCE(SUM(analyses),0) as analyses, COALESCE(SUM(errors),0) as errors, COALESCE(SUM(rate_limited),0) as rate_limited").
		Scan(&total).Error
	if err != nil {
		return nil, err
	}
	return &total, nil
}
