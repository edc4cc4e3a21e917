package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

// setEnv sets a variable for the current Convey leaf only.
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
	convey.Reset(func() { _ = os.Unsetenv(key) })
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "rollcall.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigDefaults(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it has the station defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MinScanInterval(), convey.ShouldEqual, 800*time.Millisecond)
			convey.So(cfg.DebounceWindow(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.SuppressionTTL(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.CodePrefix, convey.ShouldEqual, "PERSON_")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.RequiredRoles(), convey.ShouldResemble, []string{"student"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			setEnv("ROLLCALL_ADDR", ":8080")
			setEnv("ROLLCALL_QUEUE_SIZE", "64")
			setEnv("ROLLCALL_STATION_ID", "front-desk")
			setEnv("ROLLCALL_CONTEXT_REQUIRED_ROLES", "student, minister")
			setEnv("ROLLCALL_FIXED_EVENT_ID", "12")
			setEnv("ROLLCALL_STORE_MIGRATE", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.StationID, convey.ShouldEqual, "front-desk")
				convey.So(cfg.RequiredRoles(), convey.ShouldResemble, []string{"student", "minister"})
				convey.So(cfg.FixedEventID, convey.ShouldEqual, int64(12))
				convey.So(cfg.StoreMigrate, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading a YAML file with env overrides", func() {
			path := writeConfig(t, `
addr: ":9090"
timezone: "UTC"
worker_count: 3
suppression_ttl_ms: 10000
store_backend: postgres
database_url: "postgres://localhost/rollcall"
`)
			setEnv(config.FileEnv, path)
			setEnv("ROLLCALL_WORKER_COUNT", "6")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over file and file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
				convey.So(cfg.SuppressionTTL(), convey.ShouldEqual, 10*time.Second)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendPostgres)
				convey.So(cfg.DebounceWindowMS, convey.ShouldEqual, 500)

				loc, err := cfg.Location()
				convey.So(err, convey.ShouldBeNil)
				convey.So(loc, convey.ShouldEqual, time.UTC)
			})
		})

		convey.Convey("When the file is missing or invalid", func() {
			setEnv(config.FileEnv, "/non/existent/rollcall.yaml")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)

			setEnv(config.FileEnv, writeConfig(t, `invalid: yaml: content: [`))
			_, err = config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a numeric variable is not a number", func() {
			setEnv("ROLLCALL_QUEUE_SIZE", "many")
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the result fails validation", func() {
			cases := map[string]string{
				"ROLLCALL_ADDR":                "",
				"ROLLCALL_STORE_BACKEND":       "postgres",
				"ROLLCALL_SUPPRESSION_BACKEND": "redis",
				"ROLLCALL_SCAN_INPUT":          "camera",
				"ROLLCALL_TIMEZONE":            "Mars/Olympus",
				"ROLLCALL_SUPPRESSION_TTL_MS":  "0",
			}
			for key, value := range cases {
				_ = os.Setenv(key, value)
				_, err := config.Load(ctx)
				_ = os.Unsetenv(key)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given a config pinned to both a class and an event", t, func() {
		cfg := config.New()
		cfg.FixedClassID = 1
		cfg.FixedEventID = 2

		convey.Convey("Then validation fails", func() {
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a config naming a store this build lacks", t, func() {
		cfg := config.New()
		cfg.StoreBackend = "sqlite"
		err := cfg.Validate()

		convey.Convey("Then both sentinels match", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, config.ErrUnknownBackend), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, `store_backend "sqlite"`)
		})
	})

	convey.Convey("Given a config pinned to one class", t, func() {
		cfg := config.New()
		cfg.FixedClassID = 7

		convey.Convey("Then validation passes", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(errors.Is(cfg.Validate(), config.ErrUnknownBackend), convey.ShouldBeFalse)
		})
	})
}
