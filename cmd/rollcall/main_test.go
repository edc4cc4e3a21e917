package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rollcall/internal/config"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(&bytes.Buffer{})
}

const seed = `
people:
  - {id: 1, name: Ana Costa, badge: B-1, role: staff, active: true}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.StationID = "station-t"
	cfg.Timezone = "UTC"
	cfg.SeedFile = path
	cfg.DebounceWindowMS = 20
	cfg.WorkerCount = 2
	return cfg
}

func waitFor(ch <-chan notify.Outcome, kind notify.Kind) (notify.Outcome, bool) {
	timeout := time.After(3 * time.Second)
	for {
		select {
		case o := <-ch:
			if o.Kind == kind {
				return o, true
			}
		case <-timeout:
			return notify.Outcome{}, false
		}
	}
}

func TestAssemble(t *testing.T) {
	convey.Convey("Given a memory-backed station", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)

		app, err := assemble(ctx, cfg, strings.NewReader(""), logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer app.close()
		convey.So(app.station.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = app.station.Stop(ctx) }()

		srv := httptest.NewServer(app.handler)
		defer srv.Close()

		convey.Convey("Then the API and docs routes are served", func() {
			for _, path := range []string{"/healthz", "/stats", "/roster", "/context", "/api-docs", "/openapi.yaml"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a posted scan is committed for the seeded person", func() {
			outcomes, cancel := app.station.Subscribe(8)
			defer cancel()

			resp, err := http.Post(srv.URL+"/scans", "application/json", strings.NewReader(`{"payload":"PERSON_1"}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			o, ok := waitFor(outcomes, notify.KindCommitted)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(o.Record.PersonID, convey.ShouldEqual, int64(1))
			convey.So(o.Record.StationID, convey.ShouldEqual, "station-t")
		})
	})

	convey.Convey("Given an auth signing key", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.AuthSigningKey = "secret"

		app, err := assemble(ctx, cfg, strings.NewReader(""), logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer app.close()

		convey.Convey("Then mutating routes require a token", func() {
			req := httptest.NewRequest(http.MethodPost, "/checkins", strings.NewReader(`{"person_id":1}`))
			w := httptest.NewRecorder()
			app.handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusUnauthorized)
		})
	})

	convey.Convey("Given a redis suppression backend", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		cfg := testConfig(t)
		cfg.RedisAddr = mr.Addr()
		cfg.SuppressionBackend = config.BackendRedis

		app, err := assemble(ctx, cfg, strings.NewReader(""), logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer app.close()
		convey.So(app.station.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = app.station.Stop(ctx) }()

		convey.Convey("Then an accepted scan is suppressed in redis", func() {
			outcomes, cancel := app.station.Subscribe(8)
			defer cancel()

			req := httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(`{"payload":"PERSON_1"}`))
			w := httptest.NewRecorder()
			app.handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)

			_, ok := waitFor(outcomes, notify.KindCommitted)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(mr.Exists("rollcall:suppress:station-t:PERSON_1"), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an unreachable redis", t, func() {
		cfg := testConfig(t)
		cfg.RedisAddr = "127.0.0.1:1"

		_, err := assemble(context.Background(), cfg, strings.NewReader(""), logger.Get())

		convey.Convey("Then assembly fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "ping redis")
		})
	})

	convey.Convey("Given a stdin scan input", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.ScanInput = config.InputStdin

		app, err := assemble(ctx, cfg, strings.NewReader("PERSON_1\n"), logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer app.close()

		outcomes, cancel := app.station.Subscribe(8)
		defer cancel()
		convey.So(app.station.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = app.station.Stop(ctx) }()

		convey.Convey("Then piped payloads are checked in and HTTP scans are refused", func() {
			_, ok := waitFor(outcomes, notify.KindCommitted)
			convey.So(ok, convey.ShouldBeTrue)

			req := httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(`{"payload":"PERSON_1"}`))
			w := httptest.NewRecorder()
			app.handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusConflict)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running station", t, func() {
		cfg := testConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, strings.NewReader(""), logger.Get()) }()

		convey.Convey("When the context is cancelled", func() {
			time.Sleep(100 * time.Millisecond)
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given an unknown store backend", t, func() {
		cfg := testConfig(t)
		cfg.StoreBackend = "sqlite"

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background(), cfg, strings.NewReader(""), logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
