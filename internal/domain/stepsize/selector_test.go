package stepsize_test

import (
	"testing"

	"github.com/okian/riftelo/internal/domain/stepsize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSelector_KFor(t *testing.T) {
	Convey("Given the default keyword table with baseline 24", t, func() {
		s := stepsize.NewSelector(24, nil)

		Convey("International events resolve to 32", func() {
			So(s.KFor("World Championship 2024", "Finals"), ShouldEqual, 32)
			So(s.KFor("Worlds 2023", "Swiss Stage"), ShouldEqual, 32)
			So(s.KFor("MSI 2024", "Bracket Stage"), ShouldEqual, 32)
			So(s.KFor("Mid-Season Invitational", ""), ShouldEqual, 32)
		})

		Convey("The tournament name beats the stage", func() {
			So(s.KFor("LCK Championship", "Regular Season"), ShouldEqual, 28)
		})

		Convey("The stage is used when the tournament name is silent", func() {
			So(s.KFor("LEC 2024 Summer", "Regular Season"), ShouldEqual, 24)
			So(s.KFor("LEC 2024 Summer", "Playoffs"), ShouldEqual, 28)
			So(s.KFor("LPL 2025", "First Stand Qualifier"), ShouldEqual, 20)
			So(s.KFor("NACL", "Promotion Tournament"), ShouldEqual, 20)
		})

		Convey("Unknown contexts fall back to the baseline", func() {
			So(s.KFor("Showmatch", "Day 1"), ShouldEqual, 24)
			So(s.KFor("", ""), ShouldEqual, 24)
			So(s.Baseline(), ShouldEqual, 24)
		})

		Convey("Resolution has no memory between calls", func() {
			So(s.KFor("Worlds", "Finals"), ShouldEqual, 32)
			So(s.KFor("Scrims", "Week 1"), ShouldEqual, 24)
		})
	})

	Convey("Given a custom table", t, func() {
		s := stepsize.NewSelector(10, []stepsize.Rule{{Keyword: "Grand Final", K: 40}})

		Convey("Multi-word keywords are normalized", func() {
			So(s.KFor("Cup", "GRAND   final"), ShouldEqual, 40)
			So(s.KFor("Worlds", ""), ShouldEqual, 10)
		})
	})
}
