package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pvzzle/posledger/internal/app"
	"github.com/pvzzle/posledger/internal/storage"

	"golang.org/x/time/rate"
)

type opType int

const (
	opRead opType = iota
	opCreate
	opConfirm
)

func main() {
	var (
		driver  = flag.String("driver", app.StorageMemory, "store: memory, postgres or badger")
		dsn     = flag.String("dsn", "", "Postgres DSN (postgres driver)")
		path    = flag.String("path", "", "Badger directory, empty for in-memory (badger driver)")
		dur     = flag.Duration("dur", 60*time.Second, "test duration")
		warmup  = flag.Duration("warmup", 5*time.Second, "warmup duration (not counted)")
		avgRPS  = flag.Int("avg-rps", 300, "avg RPS")
		peakRPS = flag.Int("peak-rps", 1500, "peak RPS (during ramp)")
		ramp    = flag.Duration("ramp", 10*time.Second, "ramp-up duration to peak")
		rwRatio = flag.Int("rw", 15, "R/W ratio, reads per 1 write (e.g. 15)")
		workers = flag.Int("workers", 64, "concurrent workers")
	)
	flag.Parse()

	if *driver == app.StoragePostgres && *dsn == "" {
		log.Fatal("dsn required for the postgres driver")
	}

	ctx := context.Background()

	repo, err := app.OpenStore(ctx, app.Config{
		StorageDriver: *driver,
		PostgresURL:   *dsn,
		BadgerPath:    *path,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	fmt.Println("starting warmup:", *warmup)
	runPhase(ctx, repo, *workers, *avgRPS, *avgRPS, 0, *warmup, *rwRatio, false)

	fmt.Println("starting measured test:", *dur)
	res := runPhase(ctx, repo, *workers, *avgRPS, *peakRPS, *ramp, *dur, *rwRatio, true)

	printReport(res)
}

type results struct {
	totalOps   uint64
	readOps    uint64
	writeOps   uint64
	errOps     uint64
	latencies  []time.Duration // measured ops only
	startedAt  time.Time
	finishedAt time.Time
}

func runPhase(
	ctx context.Context,
	repo storage.Repository,
	workers int,
	avgRPS int,
	peakRPS int,
	ramp time.Duration,
	dur time.Duration,
	rw int,
	collect bool,
) results {
	ctx, cancel := context.WithTimeout(ctx, dur)
	defer cancel()

	lim := rate.NewLimiter(rate.Limit(avgRPS), avgRPS)

	jobs := make(chan opType, 1024)

	var (
		res results
		mu  sync.Mutex
	)

	res.startedAt = time.Now()

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano()))
			for op := range jobs {
				t0 := time.Now()
				err := doOp(ctx, repo, op, r)
				dt := time.Since(t0)

				atomic.AddUint64(&res.totalOps, 1)
				if op == opRead {
					atomic.AddUint64(&res.readOps, 1)
				} else {
					atomic.AddUint64(&res.writeOps, 1)
				}
				if err != nil {
					atomic.AddUint64(&res.errOps, 1)
					continue
				}
				if collect {
					mu.Lock()
					res.latencies = append(res.latencies, dt)
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(jobs)

		// rw reads, then a create and a confirm
		pattern := make([]opType, 0, rw+2)
		for i := 0; i < rw; i++ {
			pattern = append(pattern, opRead)
		}
		pattern = append(pattern, opCreate, opConfirm)
		idx := 0

		rampStart := time.Now()

		for {
			if err := lim.Wait(ctx); err != nil {
				return
			}

			if ramp > 0 {
				el := time.Since(rampStart)
				if el < ramp {
					cur := float64(avgRPS) + (float64(peakRPS-avgRPS) * (float64(el) / float64(ramp)))
					lim.SetLimit(rate.Limit(cur))
				} else {
					lim.SetLimit(rate.Limit(peakRPS))
				}
			}

			jobs <- pattern[idx]
			idx++
			if idx == len(pattern) {
				idx = 0
			}
		}
	}()

	wg.Wait()
	res.finishedAt = time.Now()
	return res
}

var lastID atomic.Int64

func doOp(ctx context.Context, repo storage.Repository, op opType, r *rand.Rand) error {
	switch op {
	case opRead:
		_, err := repo.List(ctx)
		return err
	case opCreate:
		rec, err := repo.Create(ctx, int64(1+r.Intn(1_000_000_000)), time.Now())
		if err != nil {
			return err
		}
		lastID.Store(rec.ID)
		return nil
	case opConfirm:
		id := lastID.Load()
		if id == 0 {
			return nil
		}
		_, err := repo.AttachHash(ctx, 1+r.Int63n(id), fmt.Sprintf("%064x", r.Uint64()))
		if errors.Is(err, storage.ErrAlreadyConfirmed) {
			return nil
		}
		return err
	default:
		return nil
	}
}

func printReport(res results) {
	d := res.finishedAt.Sub(res.startedAt)
	total := atomic.LoadUint64(&res.totalOps)
	errs := atomic.LoadUint64(&res.errOps)
	reads := atomic.LoadUint64(&res.readOps)
	writes := atomic.LoadUint64(&res.writeOps)

	fmt.Printf("\n== REPORT ==\n")
	fmt.Printf("duration: %s\n", d)
	fmt.Printf("ops: total=%d read=%d write=%d errors=%d\n", total, reads, writes, errs)
	if d > 0 {
		fmt.Printf("throughput: %.2f ops/s\n", float64(total)/d.Seconds())
	}
	if len(res.latencies) == 0 {
		fmt.Println("no latency samples")
		return
	}
	sort.Slice(res.latencies, func(i, j int) bool { return res.latencies[i] < res.latencies[j] })
	p := func(q float64) time.Duration {
		i := int(q * float64(len(res.latencies)-1))
		return res.latencies[i]
	}
	fmt.Printf("latency p50=%s p95=%s p99=%s max=%s\n",
		p(0.50), p(0.95), p(0.99), res.latencies[len(res.latencies)-1],
	)
}
