package scansim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/rollcall/pkg/logger"
)

// Run replays a planned crowd against the station and verifies its roster.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg.Normalize()
	log := logger.Get().Named("scansim")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting scan simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("people", cfg.People),
		logger.Int("visits", cfg.Visits),
		logger.Int("frames", cfg.Frames),
		logger.Int("lanes", cfg.Lanes),
		logger.Any("noise", cfg.Noise))

	client := newHTTPClient(cfg)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("station health check failed: %w", err)
	}

	origin := stats.StartTime
	visits := Plan(cfg, origin)
	for _, v := range visits {
		stats.FramesGenerated += len(v.Frames)
		for _, f := range v.Frames {
			if f.IsNoise(cfg.Prefix) {
				stats.FramesNoisy++
			}
		}
	}

	if err := submit(ctx, cfg, client, visits, origin, stats, log); err != nil {
		return stats, fmt.Errorf("scan submission failed: %w", err)
	}

	log.Info(ctx, "waiting for commits", logger.Duration("settle", cfg.Settle))
	select {
	case <-ctx.Done():
		return stats, ctx.Err()
	case <-time.After(cfg.Settle):
	}

	roster, err := client.Roster(ctx)
	if err != nil {
		return stats, err
	}
	report, err := Verify(cfg, roster.Records)
	stats.RosterRecords = report.Records
	stats.PeopleCheckedIn = report.People
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	if err != nil {
		return stats, err
	}

	log.Info(ctx, "simulation passed")
	return stats, nil
}

// submit sends every frame on its capture schedule, one goroutine per lane.
func submit(ctx context.Context, cfg Config, client *HTTPClient, visits []Visit, origin time.Time, stats *Stats, log logger.Logger) error {
	var submitted, accepted, rejected, failed atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for lane := 0; lane < cfg.Lanes; lane++ {
		g.Go(func() error {
			for i := lane; i < len(visits); i += cfg.Lanes {
				for _, f := range visits[i].Frames {
					if err := pace(gctx, start, origin, f.CapturedAt); err != nil {
						return err
					}
					submitted.Add(1)
					switch res := client.PostScan(gctx, f); res {
					case resultAccepted:
						accepted.Add(1)
					case resultRejected:
						rejected.Add(1)
						if cfg.Verbose {
							log.Debug(gctx, "scan rejected", logger.String("payload", f.Payload))
						}
					default:
						failed.Add(1)
					}
				}
			}
			return nil
		})
	}
	err := g.Wait()

	stats.ScansSubmitted = int(submitted.Load())
	stats.ScansAccepted = int(accepted.Load())
	stats.ScansRejected = int(rejected.Load())
	stats.ScansFailed = int(failed.Load())
	return err
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var scansPerSecond float64
	if stats.Duration > 0 {
		scansPerSecond = float64(stats.ScansSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("framesGenerated", stats.FramesGenerated),
		logger.Int("framesNoisy", stats.FramesNoisy),
		logger.Int("scansSubmitted", stats.ScansSubmitted),
		logger.Int("scansAccepted", stats.ScansAccepted),
		logger.Int("scansRejected", stats.ScansRejected),
		logger.Int("scansFailed", stats.ScansFailed),
		logger.Int("rosterRecords", stats.RosterRecords),
		logger.Int("peopleCheckedIn", stats.PeopleCheckedIn),
		logger.Duration("duration", stats.Duration),
		logger.Any("scansPerSecond", scansPerSecond))
}
