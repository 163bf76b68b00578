package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/therapy-appointments/internal/appointment"
	"github.com/hackgods/therapy-appointments/internal/config"
	"github.com/hackgods/therapy-appointments/internal/db"
	"github.com/hackgods/therapy-appointments/internal/logging"
	"github.com/hackgods/therapy-appointments/internal/schedule"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	ReadRatio   float64
	UserLimit   int
	PostgresDSN string
	Location    *time.Location
}

// target is one bookable therapist day.
type target struct {
	therapistID uuid.UUID
	date        time.Time
	slots       []schedule.TimeOfDay
}

type DataPool struct {
	Users   []uuid.UUID
	Targets []target
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeConflict
	outcomeRejected
	outcomeError
)

func (om *OperationMetrics) Record(latency time.Duration, o outcome) {
	atomic.AddInt64(&om.Total, 1)
	switch o {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case outcomeRejected:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	max = latencies[len(latencies)-1]
	return avg, p50, p95, max
}

type Metrics struct {
	Booking      OperationMetrics
	Availability OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  zerolog.Logger
}

func main() {
	logger := logging.New("dev", "info", "simulate")

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("read_ratio", cfg.ReadRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().Int("users", len(dataPool.Users)).Int("therapist_days", len(dataPool.Targets)).Msg("data loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	sim.Run()
	sim.PrintReport()

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelVerify()

	violations, err := verifyNoDoubleBooking(verifyCtx, pgPool)
	if err != nil {
		logger.Fatal().Err(err).Msg("verify ledger")
	}
	if violations > 0 {
		logger.Error().Int("violations", violations).Msg("double booking detected")
		os.Exit(1)
	}
	logger.Info().Msg("ledger verified: no therapist or user slot is held twice")
}

func loadConfig() (SimConfig, error) {
	baseCfg, err := config.Load()
	if err != nil {
		return SimConfig{}, err
	}

	cfg := SimConfig{
		APIBaseURL:  strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:    getDuration("SIM_DURATION", 20*time.Second),
		Workers:     getInt("SIM_WORKERS", 16),
		ReadRatio:   getFloat("SIM_READ_RATIO", 0.3),
		UserLimit:   getInt("SIM_USER_LIMIT", 200),
		PostgresDSN: baseCfg.PostgresDSN,
		Location:    baseCfg.Location,
	}

	if cfg.Workers <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.ReadRatio < 0 || cfg.ReadRatio > 1 {
		return SimConfig{}, fmt.Errorf("SIM_READ_RATIO must be within [0, 1]")
	}
	return cfg, nil
}

// loadDataPool picks every therapist's next working day so all workers fight over the same slots.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM users WHERE role = 'user' LIMIT $1`, cfg.UserLimit)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Users = append(dataPool.Users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	therapists, err := appointment.NewPgRepository(pool).ListTherapists(ctx)
	if err != nil {
		return nil, fmt.Errorf("load therapists: %w", err)
	}

	today := schedule.DayStart(schedule.NowIn(time.Now(), cfg.Location))
	for _, t := range therapists {
		for offset := 1; offset <= 7; offset++ {
			day := today.AddDate(0, 0, offset)
			slots := schedule.SlotsFor(t.Availability, day.Weekday())
			if len(slots) > 0 {
				dataPool.Targets = append(dataPool.Targets, target{therapistID: t.ID, date: day, slots: slots})
				break
			}
		}
	}

	if len(dataPool.Users) == 0 {
		return nil, fmt.Errorf("no users loaded, run cmd/seed first")
	}
	if len(dataPool.Targets) == 0 {
		return nil, fmt.Errorf("no therapist with availability, run cmd/seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		t := s.pool.Targets[rng.Intn(len(s.pool.Targets))]
		if rng.Float64() < s.config.ReadRatio {
			s.doAvailability(ctx, t)
			continue
		}
		s.doBooking(ctx, rng, t)
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, t target) {
	slot := t.slots[rng.Intn(len(t.slots))]
	userID := s.pool.Users[rng.Intn(len(s.pool.Users))]

	body, _ := json.Marshal(map[string]string{
		"userId":      userID.String(),
		"therapistId": t.therapistID.String(),
		"dateTime":    schedule.At(t.date, slot).Format("2006-01-02T15:04"),
		"type":        string(appointment.TypeVideoCall),
	})

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	o := outcomeError
	if err == nil {
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusCreated:
			o = outcomeSuccess
		case resp.StatusCode == http.StatusConflict:
			o = outcomeConflict
		case resp.StatusCode < http.StatusInternalServerError:
			o = outcomeRejected
		}
	} else if ctx.Err() != nil {
		return
	}

	s.metrics.Booking.Record(latency, o)
}

func (s *Simulator) doAvailability(ctx context.Context, t target) {
	start := time.Now()
	url := fmt.Sprintf("%s/therapists/%s/availability/%s", s.config.APIBaseURL, t.therapistID, t.date.Format(schedule.DateLayout))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	o := outcomeError
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			o = outcomeSuccess
		}
	} else if ctx.Err() != nil {
		return
	}

	s.metrics.Availability.Record(latency, o)
}

// verifyNoDoubleBooking counts therapist or user slots held by more than one live appointment.
func verifyNoDoubleBooking(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var violations int
	err := pool.QueryRow(ctx, `
		SELECT
		  (SELECT count(*) FROM (
		     SELECT 1 FROM appointments
		     WHERE status NOT IN ('rejected', 'cancelled')
		     GROUP BY therapist_id, start_at HAVING count(*) > 1) t)
		+ (SELECT count(*) FROM (
		     SELECT 1 FROM appointments
		     WHERE status NOT IN ('rejected', 'cancelled')
		     GROUP BY user_id, start_at HAVING count(*) > 1) u)
	`).Scan(&violations)
	return violations, err
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Therapist days: %d, users: %d\n", len(s.pool.Targets), len(s.pool.Users))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Availability", &s.metrics.Availability)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict))
	}
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, pct(rejected))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond), p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
