package common_test

import (
	"math"
	"testing"

	"github.com/RyanBlaney/melodraw/algorithms/common"
	"github.com/smartystreets/goconvey/convey"
)

func TestMath(t *testing.T) {
	convey.Convey("MeanVectors averages element-wise", t, func() {
		got := common.MeanVectors([][]float64{{1, 2, 3}, {3, 4, 5}})
		convey.So(got, convey.ShouldResemble, []float64{2, 3, 4})
		convey.So(common.MeanVectors(nil), convey.ShouldBeNil)
	})

	convey.Convey("AllFinite rejects NaN and Inf", t, func() {
		convey.So(common.AllFinite([]float64{0, 1, -2}), convey.ShouldBeTrue)
		convey.So(common.AllFinite([]float64{0, math.NaN()}), convey.ShouldBeFalse)
		convey.So(common.AllFinite([]float64{math.Inf(-1)}), convey.ShouldBeFalse)
	})

	convey.Convey("Mean and Clamp", t, func() {
		convey.So(common.Mean(nil), convey.ShouldEqual, 0.0)
		convey.So(common.Mean([]float64{1, 2, 3}), convey.ShouldEqual, 2.0)
		convey.So(common.Clamp(2, 0, 1), convey.ShouldEqual, 1.0)
		convey.So(common.Clamp(-2, 0, 1), convey.ShouldEqual, 0.0)
	})
}
