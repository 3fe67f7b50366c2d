package model_test

import (
	"testing"

	"github.com/okian/badgeboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResourceKey(t *testing.T) {
	Convey("Given resource keys", t, func() {
		a := model.ResourceKey{Kind: model.AssetBadge, Identifier: "12345"}
		b := model.ResourceKey{Kind: model.AssetBadge, Identifier: "12345"}
		c := model.ResourceKey{Kind: model.AssetUserPicture, Identifier: "12345"}

		Convey("Then equality is structural", func() {
			So(a == b, ShouldBeTrue)
			So(a == c, ShouldBeFalse)
		})

		Convey("Then each kind maps to its own request kind", func() {
			So(a.RequestKey(), ShouldResemble, model.RequestKey{Kind: model.RequestBadge, ID: "12345"})
			So(c.RequestKey().Kind, ShouldEqual, model.RequestUserPicture)
			So(a.RequestKey() == c.RequestKey(), ShouldBeFalse)
		})

		Convey("Then kinds know their directories", func() {
			So(model.AssetBadge.Dir(), ShouldEqual, "Badge")
			So(model.AssetUserPicture.Dir(), ShouldEqual, "UserPic")
			So(model.AssetKind(42).Valid(), ShouldBeFalse)
		})
	})
}

func TestParseAssetKind(t *testing.T) {
	Convey("ParseAssetKind accepts known names only", t, func() {
		k, err := model.ParseAssetKind("Badge")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, model.AssetBadge)

		k, err = model.ParseAssetKind("userpic")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, model.AssetUserPicture)

		_, err = model.ParseAssetKind("avatar")
		So(err, ShouldNotBeNil)
	})
}

func TestNewJob(t *testing.T) {
	Convey("NewJob assigns distinct ids", t, func() {
		key := model.RequestKey{Kind: model.RequestBadge, ID: "1"}
		a := model.NewJob(key, map[string]string{"b": "1"})
		b := model.NewJob(key, nil)
		So(a.ID, ShouldNotEqual, b.ID)
		So(a.Param("b"), ShouldEqual, "1")
		So(b.Param("b"), ShouldEqual, "")
	})
}

func TestFormatScore(t *testing.T) {
	Convey("Given leaderboard formats", t, func() {
		cases := []struct {
			format model.Format
			score  int
			want   string
		}{
			{model.FormatTimeFrames, 3600 + 60*5 + 30, "01:05.50"},
			{model.FormatTimeSecs, 125, "02:05"},
			{model.FormatTimeMillisecs, 6000 + 1234, "01:12.34"},
			{model.FormatScore, 4200, "004200 Points"},
			{model.FormatValue, 7, "7"},
			{model.FormatOther, 7, "000007"},
		}
		for _, c := range cases {
			So(c.format.FormatScore(c.score), ShouldEqual, c.want)
		}
	})

	Convey("ParseFormat round-trips known names and defaults to VALUE", t, func() {
		for _, f := range []model.Format{model.FormatTimeFrames, model.FormatTimeSecs, model.FormatTimeMillisecs, model.FormatScore, model.FormatOther, model.FormatValue} {
			So(model.ParseFormat(f.String()), ShouldEqual, f)
		}
		So(model.ParseFormat("weird"), ShouldEqual, model.FormatValue)
	})
}
