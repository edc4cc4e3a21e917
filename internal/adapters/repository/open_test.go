package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpen(t *testing.T) {
	Convey("Given store configurations", t, func() {
		ctx := context.Background()

		Convey("When the backend is memory", func() {
			s, err := repository.Open(ctx, repository.Config{Backend: repository.BackendMemory, Location: time.UTC})

			Convey("Then an empty in-memory store is returned", func() {
				So(err, ShouldBeNil)
				So(s.Ping(ctx), ShouldBeNil)
				s.Close()
			})
		})

		Convey("When postgres has no database url", func() {
			_, err := repository.Open(ctx, repository.Config{Backend: repository.BackendPostgres})
			So(err, ShouldEqual, repository.ErrMissingDSN)
		})

		Convey("When the backend is unknown", func() {
			_, err := repository.Open(ctx, repository.Config{Backend: "mongo"})
			So(errors.Is(err, repository.ErrUnknownBackend), ShouldBeTrue)
		})

		Convey("When the seed file is missing", func() {
			_, err := repository.Open(ctx, repository.Config{SeedFile: "/nonexistent/seed.yaml"})
			So(err, ShouldNotBeNil)
		})
	})
}
