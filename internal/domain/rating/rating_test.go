package rating_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	Convey("Given an empty store", t, func() {
		s := rating.NewStore(0)

		Convey("Unknown teams start at 1500 and are registered", func() {
			_, ok := s.Peek("G2")
			So(ok, ShouldBeFalse)
			So(s.Get("G2"), ShouldEqual, 1500.0)
			So(s.Len(), ShouldEqual, 1)
		})

		Convey("Set overwrites and Teams is sorted", func() {
			s.Set("T1", 1620)
			s.Get("BLG")
			So(s.Get("T1"), ShouldEqual, 1620.0)
			So(s.Teams(), ShouldResemble, []string{"BLG", "T1"})
		})

		Convey("A custom initial rating is honoured", func() {
			So(rating.NewStore(1200).Get("X"), ShouldEqual, 1200.0)
		})
	})
}

func TestExpected(t *testing.T) {
	Convey("Given pairs of finite ratings", t, func() {
		pairs := [][2]float64{{1500, 1500}, {1600, 1400}, {0, 3000}, {1234.5, 987.25}, {-200, 200}}

		Convey("Expected scores of both sides sum to one", func() {
			for _, p := range pairs {
				So(rating.Expected(p[0], p[1])+rating.Expected(p[1], p[0]), ShouldAlmostEqual, 1.0, 1e-12)
			}
		})

		Convey("Equal ratings are a coin flip and a 400 gap is 10:1", func() {
			So(rating.Expected(1500, 1500), ShouldEqual, 0.5)
			So(rating.Expected(1900, 1500), ShouldAlmostEqual, 10.0/11.0, 1e-12)
		})
	})
}

func TestEngine(t *testing.T) {
	Convey("Given an unscaled engine", t, func() {
		e := rating.NewEngine()
		s := rating.NewStore(0)
		m := model.Match{Team1: "A", Team2: "B", Score1: 2, Score2: 0}

		Convey("A win between equals at K=24 moves 12 points each way", func() {
			u, err := e.Apply(s, m, rating.Expected(s.Get("A"), s.Get("B")), 24)
			So(err, ShouldBeNil)
			So(u.DeltaWinner, ShouldEqual, 12.0)
			So(u.DeltaLoser, ShouldEqual, -12.0)
			So(s.Get("A"), ShouldEqual, 1512.0)
			So(s.Get("B"), ShouldEqual, 1488.0)
		})

		Convey("An upset by team2 uses team2's expected score", func() {
			s.Set("A", 1700)
			upset := model.Match{Team1: "A", Team2: "B", Score1: 1, Score2: 2}
			e1 := rating.Expected(1700, 1500)
			u, err := e.Delta(upset, e1, 32)
			So(err, ShouldBeNil)
			So(u.DeltaWinner, ShouldAlmostEqual, 32*e1, 1e-9)
		})

		Convey("A tie is rejected without touching the store", func() {
			tie := model.Match{Team1: "A", Team2: "B", Score1: 1, Score2: 1}
			_, err := e.Apply(s, tie, 0.5, 24)
			So(errors.Is(err, model.ErrTiedScore), ShouldBeTrue)
			So(s.Len(), ShouldEqual, 0)
		})

		Convey("A non-positive K is rejected", func() {
			_, err := e.Delta(m, 0.5, 0)
			So(errors.Is(err, rating.ErrInvalidKFactor), ShouldBeTrue)
			_, err = e.Delta(m, 0.5, math.Inf(1))
			So(errors.Is(err, rating.ErrInvalidKFactor), ShouldBeTrue)
		})

		Convey("Scale factors are ignored", func() {
			So(e.ScaleFactor(model.Match{Score1: 3, Score2: 2}), ShouldEqual, 1.0)
		})
	})

	Convey("Given an engine with closeness scaling", t, func() {
		e := rating.NewEngine(rating.WithScaleFactors(nil))

		Convey("Narrow wins move ratings less than sweeps", func() {
			sweep, _ := e.Delta(model.Match{Team1: "A", Team2: "B", Score1: 3, Score2: 0}, 0.5, 32)
			narrow, _ := e.Delta(model.Match{Team1: "A", Team2: "B", Score1: 2, Score2: 3}, 0.5, 32)
			So(sweep.DeltaWinner, ShouldEqual, 16.0)
			So(narrow.ScaleFactor, ShouldEqual, 0.8)
			So(narrow.DeltaWinner, ShouldAlmostEqual, 12.8, 1e-9)
		})

		Convey("Unknown score lines default to 1", func() {
			So(e.ScaleFactor(model.Match{Score1: 4, Score2: 1}), ShouldEqual, 1.0)
		})

		Convey("The table passed in is copied", func() {
			table := map[string]float64{"2-1": 0.25}
			e2 := rating.NewEngine(rating.WithScaleFactors(table))
			table["2-1"] = 9
			So(e2.ScaleFactor(model.Match{Score1: 1, Score2: 2}), ShouldEqual, 0.25)
		})
	})
}
