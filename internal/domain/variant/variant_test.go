package variant_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/riftelo/internal/domain/variant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given variant names", t, func() {
		Convey("Every variant round-trips through its name", func() {
			for _, v := range variant.All() {
				parsed, err := variant.Parse(v.String())
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, v)
			}
		})

		Convey("Names are case-insensitive", func() {
			v, err := variant.Parse(" Tournament_Context ")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, variant.TournamentContext)
		})

		Convey("Unknown names fail fast", func() {
			_, err := variant.Parse("glicko")
			So(errors.Is(err, variant.ErrUnknownVariant), ShouldBeTrue)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given configuration specs", t, func() {
		Convey("An unknown variant is rejected", func() {
			_, err := variant.New(variant.Spec{Variant: "nope", KFactor: 24})
			So(errors.Is(err, variant.ErrUnknownVariant), ShouldBeTrue)
		})

		Convey("A non-positive K is rejected", func() {
			_, err := variant.New(variant.Spec{Variant: "base", KFactor: 0})
			So(errors.Is(err, variant.ErrInvalidKFactor), ShouldBeTrue)
		})

		Convey("A negative scale factor is rejected", func() {
			_, err := variant.New(variant.Spec{Variant: "base", KFactor: 24, ScaleFactors: map[string]float64{"2-1": -1}})
			So(errors.Is(err, variant.ErrInvalidScaleFactor), ShouldBeTrue)
		})

		Convey("Capabilities layer by variant", func() {
			base := variant.MustNew(variant.Spec{Variant: "base", KFactor: 24})
			So(base.Capabilities(), ShouldResemble, variant.Capabilities{})

			scaled := variant.MustNew(variant.Spec{Variant: "base", KFactor: 24, UseScaleFactors: true, UseRegionalOffsets: true})
			So(scaled.Capabilities(), ShouldResemble, variant.Capabilities{ScaleFactors: true, RegionalOffsets: true})

			dyn := variant.MustNew(variant.Spec{Variant: "dynamic_offset", KFactor: 24})
			So(dyn.Capabilities().RegionalOffsets, ShouldBeTrue)
			So(dyn.Capabilities().ContextualK, ShouldBeFalse)

			ctx := variant.MustNew(variant.Spec{Variant: "tournament_context", KFactor: 24})
			So(ctx.Capabilities(), ShouldResemble, variant.Capabilities{ScaleFactors: true, RegionalOffsets: true, ContextualK: true})
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given two field-for-field identical configurations", t, func() {
		a := variant.MustNew(variant.Spec{Variant: "scale_factor", KFactor: 24, ScaleFactors: map[string]float64{"3-2": 0.8, "2-1": 0.5, "3-0": 1}})
		b := variant.MustNew(variant.Spec{Variant: "scale_factor", KFactor: 24, ScaleFactors: map[string]float64{"3-0": 1, "2-1": 0.5, "3-2": 0.8}})

		Convey("Their fingerprints match regardless of map order", func() {
			So(a.Fingerprint(), ShouldEqual, b.Fingerprint())
			So(len(a.Fingerprint()), ShouldEqual, 64)
		})

		Convey("Any differing field changes the fingerprint", func() {
			c := variant.MustNew(variant.Spec{Variant: "scale_factor", KFactor: 32, ScaleFactors: map[string]float64{"3-2": 0.8, "2-1": 0.5, "3-0": 1}})
			d := variant.MustNew(variant.Spec{Variant: "scale_factor", KFactor: 24, ScaleFactors: map[string]float64{"3-2": 0.7, "2-1": 0.5, "3-0": 1}})
			e := variant.MustNew(variant.Spec{Variant: "dynamic_offset", KFactor: 24, ScaleFactors: map[string]float64{"3-2": 0.8, "2-1": 0.5, "3-0": 1}})
			So(c.Fingerprint(), ShouldNotEqual, a.Fingerprint())
			So(d.Fingerprint(), ShouldNotEqual, a.Fingerprint())
			So(e.Fingerprint(), ShouldNotEqual, a.Fingerprint())
		})

		Convey("Flags a variant forces on do not split the cache", func() {
			x := variant.MustNew(variant.Spec{Variant: "dynamic_offset", KFactor: 24})
			y := variant.MustNew(variant.Spec{Variant: "dynamic_offset", KFactor: 24, UseRegionalOffsets: true, UseScaleFactors: true})
			So(x.Fingerprint(), ShouldEqual, y.Fingerprint())
		})
	})
}

func TestTuning(t *testing.T) {
	Convey("Given a configuration without explicit tuning", t, func() {
		base := variant.MustNew(variant.Spec{Variant: "dynamic_offset", KFactor: 24})

		Convey("Zero fields resolve to the engine defaults", func() {
			So(base.Tuning(), ShouldResemble, variant.DefaultTuning())
			explicit, err := base.WithTuning(variant.DefaultTuning())
			So(err, ShouldBeNil)
			So(explicit.Fingerprint(), ShouldEqual, base.Fingerprint())
		})

		Convey("Learner bounds and the initial rating split the fingerprint", func() {
			tight, err := base.WithTuning(variant.Tuning{MaxOffset: 1})
			So(err, ShouldBeNil)
			low, err := base.WithTuning(variant.Tuning{InitialRating: 1000})
			So(err, ShouldBeNil)
			cautious, err := base.WithTuning(variant.Tuning{PriorStd: 5, ConfidenceStep: 0.01})
			So(err, ShouldBeNil)

			So(tight.Fingerprint(), ShouldNotEqual, base.Fingerprint())
			So(low.Fingerprint(), ShouldNotEqual, base.Fingerprint())
			So(cautious.Fingerprint(), ShouldNotEqual, base.Fingerprint())
			So(tight.Tuning().InitialRating, ShouldEqual, 1500)
			So(tight.Spec().Tuning.MaxOffset, ShouldEqual, 1)
		})

		Convey("Invalid tuning is rejected", func() {
			_, err := base.WithTuning(variant.Tuning{PriorStd: -1})
			So(errors.Is(err, variant.ErrInvalidTuning), ShouldBeTrue)
			_, err = base.WithTuning(variant.Tuning{ConfidenceStep: 1.5})
			So(errors.Is(err, variant.ErrInvalidTuning), ShouldBeTrue)
			_, err = variant.New(variant.Spec{Variant: "base", KFactor: 24, Tuning: variant.Tuning{InitialRating: math.Inf(1)}})
			So(errors.Is(err, variant.ErrInvalidTuning), ShouldBeTrue)
		})
	})
}
