package logging_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"kiosk-ingest/internal/logging"

	"github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	convey.Convey("Given a log destination", t, func() {
		convey.Convey("When it is file", func() {
			path := filepath.Join(t.TempDir(), "invalid_messages.log")
			require := func(err error) { convey.So(err, convey.ShouldBeNil) }

			logger, closer, err := logging.New(logging.File, path, "info")
			require(err)
			logger.Error("[1] Offset: 0, Value: {} - INVALID: missing 'at' key")
			logger.Debug("hidden")
			require(closer.Close())

			// A second run appends.
			logger, closer, err = logging.New(logging.File, path, "info")
			require(err)
			logger.Error("second run")
			require(closer.Close())

			data, err := os.ReadFile(path)
			require(err)
			convey.So(string(data), convey.ShouldContainSubstring, "missing 'at' key")
			convey.So(string(data), convey.ShouldContainSubstring, "second run")
			convey.So(string(data), convey.ShouldNotContainSubstring, "hidden")
		})

		convey.Convey("When it is console", func() {
			logger, closer, err := logging.New(logging.Console, "", "debug")

			convey.So(err, convey.ShouldBeNil)
			convey.So(logger.Enabled(context.Background(), slog.LevelDebug), convey.ShouldBeTrue)
			convey.So(closer.Close(), convey.ShouldBeNil)
		})

		convey.Convey("When it is anything else", func() {
			_, _, err := logging.New("syslog", "", "info")

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the level is unknown", func() {
			_, _, err := logging.New(logging.Console, "", "loud")

			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestCheckDestination(t *testing.T) {
	convey.Convey("Given the command line argument", t, func() {
		convey.So(logging.CheckDestination(logging.File), convey.ShouldBeNil)
		convey.So(logging.CheckDestination(logging.Console), convey.ShouldBeNil)

		for _, dest := range []string{"", "FILE", "stdout", "syslog"} {
			err := logging.CheckDestination(dest)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "invalid logging type")
		}
	})

	convey.Convey("Given a bad destination and a bad level", t, func() {
		_, _, err := logging.New("syslog", "", "loud")

		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "invalid logging type")
	})
}
