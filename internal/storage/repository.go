package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lorrylog/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists monthly logs as whole aggregates. Every save
// rewrites the log's child rows inside one transaction; concurrent saves
// of the same month are last-write-wins, matching the in-memory store.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveMonthlyLog implements store.LogStore.
func (r *SQLiteRepository) SaveMonthlyLog(ctx context.Context, log core.MonthlyLog) error {
	if err := core.ValidateMonthKey(log.Month); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO monthly_logs (month, id, start_mileage, end_mileage, total_jobs, total_distance, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(month) DO UPDATE SET
			start_mileage = excluded.start_mileage,
			end_mileage = excluded.end_mileage,
			total_jobs = excluded.total_jobs,
			total_distance = excluded.total_distance,
			updated_at = CURRENT_TIMESTAMP`,
		log.Month, log.ID, nullFloat(log.StartMileage), nullFloat(log.EndMileage),
		log.TotalJobs, log.TotalDistance)
	if err != nil {
		return fmt.Errorf("upsert monthly log: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_entries WHERE month = ?`, log.Month); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	for _, e := range log.Entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO job_entries (id, month, job_number, order_number, customer,
				start_point, end_point, mileage_start, mileage_end, distance, amount_paid,
				is_water_fill, is_parking, job_date, recorded_at, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, log.Month, e.JobNumber, e.OrderNumber, e.Customer,
			e.Start, e.End, nullFloat(e.MileageStart), nullFloat(e.MileageEnd),
			nullFloat(e.Distance), nullFloat(e.AmountPaid),
			boolInt(e.IsWaterFill), boolInt(e.IsParking), nullTime(e.Date),
			e.Timestamp, string(e.Status))
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}

	fd := log.FuelData
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fuel_data (month, fuel_cf, diesel_amount, diesel_cost, petrol_amount,
			petrol_cost, total_liters_used, total_cost, total_expense, fuel_balance,
			amount_earned, fuel_consumption_rate, other_costs, net_profit,
			total_liters_used_diesel, monthly_salary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(month) DO UPDATE SET
			fuel_cf = excluded.fuel_cf,
			diesel_amount = excluded.diesel_amount,
			diesel_cost = excluded.diesel_cost,
			petrol_amount = excluded.petrol_amount,
			petrol_cost = excluded.petrol_cost,
			total_liters_used = excluded.total_liters_used,
			total_cost = excluded.total_cost,
			total_expense = excluded.total_expense,
			fuel_balance = excluded.fuel_balance,
			amount_earned = excluded.amount_earned,
			fuel_consumption_rate = excluded.fuel_consumption_rate,
			other_costs = excluded.other_costs,
			net_profit = excluded.net_profit,
			total_liters_used_diesel = excluded.total_liters_used_diesel,
			monthly_salary = excluded.monthly_salary`,
		log.Month, nullFloat(fd.FuelCf), nullFloat(fd.DieselAmount), nullFloat(fd.DieselCost),
		nullFloat(fd.PetrolAmount), nullFloat(fd.PetrolCost), nullFloat(fd.TotalLitersUsed),
		nullFloat(fd.TotalCost), nullFloat(fd.TotalExpense), nullFloat(fd.FuelBalance),
		nullFloat(fd.AmountEarned), nullFloat(fd.FuelConsumptionRate), nullFloat(fd.OtherCosts),
		nullFloat(fd.NetProfit), nullFloat(fd.TotalLitersUsedDiesel), nullFloat(fd.MonthlySalary))
	if err != nil {
		return fmt.Errorf("upsert fuel data: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM misdemeanors WHERE month = ?`, log.Month); err != nil {
		return fmt.Errorf("clear misdemeanors: %w", err)
	}
	for _, m := range log.Misdemeanors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO misdemeanors (id, month, date, type, description, fine, resolved)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, log.Month, m.Date, m.Type, m.Description, nullFloat(m.Fine), boolInt(m.Resolved))
		if err != nil {
			return fmt.Errorf("insert misdemeanor %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "Monthly log saved",
		"month", log.Month,
		"entries", len(log.Entries),
		"misdemeanors", len(log.Misdemeanors))
	return nil
}

// LoadMonthlyLog implements store.LogStore. The second return value is
// false when the month has never been saved.
func (r *SQLiteRepository) LoadMonthlyLog(ctx context.Context, month string) (core.MonthlyLog, bool, error) {
	var log core.MonthlyLog
	var start, end sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, month, start_mileage, end_mileage, total_jobs, total_distance
		FROM monthly_logs WHERE month = ?`, month).
		Scan(&log.ID, &log.Month, &start, &end, &log.TotalJobs, &log.TotalDistance)
	if err == sql.ErrNoRows {
		return core.MonthlyLog{}, false, nil
	}
	if err != nil {
		return core.MonthlyLog{}, false, fmt.Errorf("load monthly log: %w", err)
	}
	log.StartMileage = floatPtr(start)
	log.EndMileage = floatPtr(end)

	if log.Entries, err = r.loadEntries(ctx, month); err != nil {
		return core.MonthlyLog{}, false, err
	}
	if log.FuelData, err = r.loadFuelData(ctx, month); err != nil {
		return core.MonthlyLog{}, false, err
	}
	if log.Misdemeanors, err = r.loadMisdemeanors(ctx, month); err != nil {
		return core.MonthlyLog{}, false, err
	}

	return log, true, nil
}

func (r *SQLiteRepository) loadEntries(ctx context.Context, month string) ([]core.JobEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_number, order_number, customer, start_point, end_point,
			mileage_start, mileage_end, distance, amount_paid,
			is_water_fill, is_parking, job_date, recorded_at, status
		FROM job_entries WHERE month = ? ORDER BY job_number`, month)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	var entries []core.JobEntry
	for rows.Next() {
		var e core.JobEntry
		var ms, me, dist, paid sql.NullFloat64
		var waterFill, parking int
		var jobDate sql.NullTime
		var status string
		if err := rows.Scan(&e.ID, &e.JobNumber, &e.OrderNumber, &e.Customer,
			&e.Start, &e.End, &ms, &me, &dist, &paid,
			&waterFill, &parking, &jobDate, &e.Timestamp, &status); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.MileageStart = floatPtr(ms)
		e.MileageEnd = floatPtr(me)
		e.Distance = floatPtr(dist)
		e.AmountPaid = floatPtr(paid)
		e.IsWaterFill = waterFill != 0
		e.IsParking = parking != 0
		e.Date = timePtr(jobDate)
		e.Status = core.EntryStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) loadFuelData(ctx context.Context, month string) (core.FuelData, error) {
	var fd core.FuelData
	var vals [15]sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT fuel_cf, diesel_amount, diesel_cost, petrol_amount, petrol_cost,
			total_liters_used, total_cost, total_expense, fuel_balance, amount_earned,
			fuel_consumption_rate, other_costs, net_profit, total_liters_used_diesel,
			monthly_salary
		FROM fuel_data WHERE month = ?`, month).
		Scan(&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6],
			&vals[7], &vals[8], &vals[9], &vals[10], &vals[11], &vals[12], &vals[13], &vals[14])
	if err == sql.ErrNoRows {
		return fd, nil
	}
	if err != nil {
		return fd, fmt.Errorf("load fuel data: %w", err)
	}
	fd.FuelCf = floatPtr(vals[0])
	fd.DieselAmount = floatPtr(vals[1])
	fd.DieselCost = floatPtr(vals[2])
	fd.PetrolAmount = floatPtr(vals[3])
	fd.PetrolCost = floatPtr(vals[4])
	fd.TotalLitersUsed = floatPtr(vals[5])
	fd.TotalCost = floatPtr(vals[6])
	fd.TotalExpense = floatPtr(vals[7])
	fd.FuelBalance = floatPtr(vals[8])
	fd.AmountEarned = floatPtr(vals[9])
	fd.FuelConsumptionRate = floatPtr(vals[10])
	fd.OtherCosts = floatPtr(vals[11])
	fd.NetProfit = floatPtr(vals[12])
	fd.TotalLitersUsedDiesel = floatPtr(vals[13])
	fd.MonthlySalary = floatPtr(vals[14])
	return fd, nil
}

func (r *SQLiteRepository) loadMisdemeanors(ctx context.Context, month string) ([]core.Misdemeanor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, type, description, fine, resolved
		FROM misdemeanors WHERE month = ? ORDER BY date`, month)
	if err != nil {
		return nil, fmt.Errorf("load misdemeanors: %w", err)
	}
	defer rows.Close()

	var out []core.Misdemeanor
	for rows.Next() {
		var m core.Misdemeanor
		var fine sql.NullFloat64
		var resolved int
		if err := rows.Scan(&m.ID, &m.Date, &m.Type, &m.Description, &fine, &resolved); err != nil {
			return nil, fmt.Errorf("scan misdemeanor: %w", err)
		}
		m.Fine = floatPtr(fine)
		m.Resolved = resolved != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMonths implements store.LogStore; newest month first.
func (r *SQLiteRepository) ListMonths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT month FROM monthly_logs ORDER BY month DESC`)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// SaveWaterFillSites implements store.SiteStore; the site list is small
// and global, so it is rewritten wholesale.
func (r *SQLiteRepository) SaveWaterFillSites(ctx context.Context, sites []core.WaterFillSite) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM water_fill_sites`); err != nil {
		return fmt.Errorf("clear sites: %w", err)
	}
	for _, s := range sites {
		if _, err := tx.ExecContext(ctx, `INSERT INTO water_fill_sites (id, name) VALUES (?, ?)`,
			s.ID, s.Name); err != nil {
			return fmt.Errorf("insert site %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// LoadWaterFillSites implements store.SiteStore.
func (r *SQLiteRepository) LoadWaterFillSites(ctx context.Context) ([]core.WaterFillSite, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM water_fill_sites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	defer rows.Close()

	var sites []core.WaterFillSite
	for rows.Next() {
		var s core.WaterFillSite
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// MarkPendingSync implements store.SyncMarker. Re-queueing a month that
// already failed resets it to pending.
func (r *SQLiteRepository) MarkPendingSync(ctx context.Context, month string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (month, sync_status, queued_at)
		VALUES (?, 'pending', CURRENT_TIMESTAMP)
		ON CONFLICT(month) DO UPDATE SET
			sync_status = 'pending',
			queued_at = CURRENT_TIMESTAMP`, month)
	if err != nil {
		return fmt.Errorf("mark pending sync: %w", err)
	}
	return nil
}

// PendingSyncMonths implements store.SyncMarker; oldest queued first.
func (r *SQLiteRepository) PendingSyncMonths(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month FROM sync_queue
		WHERE sync_status IN ('pending', 'error')
		ORDER BY queued_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan pending month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// MarkSynced implements store.SyncMarker.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, month string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP
		WHERE month = ?`, month)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	slog.InfoContext(ctx, "Month marked as synced", "month", month)
	return nil
}

// MarkSyncError implements store.SyncMarker; the month stays eligible
// for the periodic retry sweep.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, month string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET sync_status = 'error', attempts = attempts + 1
		WHERE month = ?`, month)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Month marked with sync error", "month", month)
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
