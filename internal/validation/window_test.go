package validation_test

import (
	"testing"
	"time"

	"kiosk-ingest/internal/validation"

	"github.com/smartystreets/goconvey/convey"
)

func clock(h, m, s int) time.Time {
	return time.Date(2025, 7, 3, h, m, s, 0, time.UTC)
}

func TestWindow(t *testing.T) {
	convey.Convey("Given the default operating window", t, func() {
		w := validation.DefaultWindow

		convey.Convey("Both ends are inside", func() {
			convey.So(w.Contains(clock(8, 45, 0)), convey.ShouldBeTrue)
			convey.So(w.Contains(clock(18, 15, 0)), convey.ShouldBeTrue)
		})

		convey.Convey("One second beyond either end is outside", func() {
			convey.So(w.Contains(clock(8, 44, 59)), convey.ShouldBeFalse)
			convey.So(w.Contains(clock(18, 15, 1)), convey.ShouldBeFalse)
		})

		convey.Convey("Only the wall clock matters", func() {
			tz := time.FixedZone("", -11*3600)
			convey.So(w.Contains(time.Date(1999, 1, 1, 12, 0, 0, 0, tz)), convey.ShouldBeTrue)
			convey.So(w.Contains(time.Date(2025, 7, 3, 0, 1, 22, 0, tz)), convey.ShouldBeFalse)
		})

		convey.So(w.String(), convey.ShouldEqual, "08:45:00-18:15:00")
	})

	convey.Convey("Given window strings", t, func() {
		convey.Convey("When they are well formed", func() {
			w, err := validation.ParseWindow("08:45:00", "18:15:00")
			convey.So(err, convey.ShouldBeNil)
			convey.So(w, convey.ShouldResemble, validation.DefaultWindow)
		})

		convey.Convey("When one is malformed", func() {
			_, err := validation.ParseWindow("8.45", "18:15:00")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When close precedes open", func() {
			_, err := validation.ParseWindow("18:15:00", "08:45:00")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
