// Package dbtest opens throwaway sqlite databases carrying the service schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  parent_id TEXT,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  tier TEXT NOT NULL DEFAULT 'agent',
  wallet_balance TEXT NOT NULL DEFAULT '0',
  wallet_version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE wallet_transactions (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  type TEXT NOT NULL,
  amount TEXT NOT NULL,
  balance_after TEXT NOT NULL,
  description TEXT NOT NULL,
  related_order_id TEXT,
  approver_id TEXT,
  status TEXT NOT NULL,
  sequence INTEGER NOT NULL DEFAULT 0,
  metadata TEXT NOT NULL DEFAULT '{}',
  reviewed_at DATETIME,
  created_at DATETIME
)`,
	`CREATE INDEX ix_wallet_transactions_owner ON wallet_transactions (owner_id, sequence)`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  tax TEXT NOT NULL,
  discount TEXT NOT NULL,
  total TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  reception_status TEXT NOT NULL,
  reported INTEGER NOT NULL DEFAULT 0,
  reported_at DATETIME,
  resolved_at DATETIME,
  processing_started_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  refunded_amount TEXT NOT NULL DEFAULT '0',
  notes TEXT NOT NULL DEFAULT '[]',
  owner_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  package_ref TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  total_price TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  processing_status TEXT NOT NULL,
  failure_reason TEXT,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE commission_records (
  id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  period TEXT NOT NULL,
  period_start DATETIME NOT NULL,
  period_end DATETIME NOT NULL,
  total_orders INTEGER NOT NULL,
  total_revenue TEXT NOT NULL,
  commission_rate TEXT NOT NULL,
  amount TEXT NOT NULL,
  status TEXT NOT NULL,
  is_final INTEGER NOT NULL DEFAULT 0,
  finalized_at DATETIME,
  paid_at DATETIME,
  paid_by TEXT,
  payment_reference TEXT,
  rejected_at DATETIME,
  rejected_by TEXT,
  rejection_reason TEXT,
  notes TEXT NOT NULL DEFAULT '[]',
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_commission_period ON commission_records (agent_id, period, period_start)`,
	`CREATE TABLE commission_monthly_summaries (
  id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  year INTEGER NOT NULL,
  month INTEGER NOT NULL,
  total_orders INTEGER NOT NULL,
  total_revenue TEXT NOT NULL,
  total_earned TEXT NOT NULL,
  total_paid TEXT NOT NULL,
  total_pending TEXT NOT NULL,
  total_expired TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  record_count INTEGER NOT NULL,
  archived_at DATETIME NOT NULL
)`,
	`CREATE UNIQUE INDEX ux_commission_summary_month ON commission_monthly_summaries (agent_id, year, month)`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
)`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
)`,
}

// Open returns an isolated in-memory database with every service table created.
// The pool is pinned to one connection so transactions never contend.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	return conn
}
