package remote_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/badgeboard/internal/adapters/remote"
	"github.com/okian/badgeboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const okPayload = `{
  "Success": true,
  "Response": {
    "Score": 4200,
    "BestScore": 5000,
    "ScoreFormatted": "004200 Points",
    "LBData": {"Format": "SCORE", "LeaderboardID": 7, "GameID": 3, "Title": "High score", "LowerIsBetter": 0},
    "TopEntries": [
      {"Rank": 2, "User": "b", "Score": 90, "DateSubmitted": 1700000100},
      {"Rank": 1, "User": "a", "Score": 100, "DateSubmitted": 1700000000}
    ],
    "TopEntriesFriends": [],
    "RankInfo": {"Rank": 12, "NumEntries": "40"}
  }
}`

func TestParseSubmissionResponse(t *testing.T) {
	Convey("Given a well-formed reply", t, func() {
		resp, err := remote.ParseSubmissionResponse([]byte(okPayload))

		Convey("Then every field is typed", func() {
			So(err, ShouldBeNil)
			So(resp.LeaderboardID, ShouldEqual, 7)
			So(resp.GameID, ShouldEqual, 3)
			So(resp.Title, ShouldEqual, "High score")
			So(resp.Format, ShouldEqual, model.FormatScore)
			So(resp.FormatKnown, ShouldBeTrue)
			So(resp.LowerIsBetter, ShouldBeFalse)
			So(resp.SubmittedScore, ShouldEqual, 4200)
			So(resp.BestScore, ShouldEqual, 5000)
			So(resp.ScoreFormatted, ShouldEqual, "004200 Points")
		})

		Convey("Then entries keep the order received", func() {
			So(resp.TopEntries, ShouldHaveLength, 2)
			So(resp.TopEntries[0], ShouldResemble, model.RankEntry{
				Rank: 2, Username: "b", Score: 90, SubmittedAt: time.Unix(1700000100, 0).UTC(),
			})
			So(resp.TopEntries[1].Username, ShouldEqual, "a")
		})
	})

	Convey("LowerIsBetter accepts booleans and numbers", t, func() {
		resp, err := remote.ParseSubmissionResponse([]byte(`{"Response":{"LBData":{"LeaderboardID":1,"LowerIsBetter":true}}}`))
		So(err, ShouldBeNil)
		So(resp.LowerIsBetter, ShouldBeTrue)

		resp, err = remote.ParseSubmissionResponse([]byte(`{"Response":{"LBData":{"LeaderboardID":1,"LowerIsBetter":1}}}`))
		So(err, ShouldBeNil)
		So(resp.LowerIsBetter, ShouldBeTrue)
		So(resp.TopEntries, ShouldBeEmpty)
	})

	Convey("Given a reply without a format name", t, func() {
		resp, err := remote.ParseSubmissionResponse([]byte(`{"Success":true,"Response":{"LBData":{"LeaderboardID":7,"Format":""},"TopEntries":[]}}`))

		Convey("Then the format is marked unknown", func() {
			So(err, ShouldBeNil)
			So(resp.FormatKnown, ShouldBeFalse)
			So(resp.Format, ShouldEqual, model.FormatValue)
		})
	})

	Convey("Given broken replies", t, func() {
		for _, payload := range []string{
			`<html>`,
			`{"Success":true}`,
			`{"Success":true,"Response":{"Score":1}}`,
			`{"Response":{"LBData":{"Title":"x"}}}`,
			`{"Response":{"LBData":{"LeaderboardID":1,"LowerIsBetter":"maybe"}}}`,
		} {
			_, err := remote.ParseSubmissionResponse([]byte(payload))
			So(errors.Is(err, remote.ErrMalformedResponse), ShouldBeTrue)
		}
	})

	Convey("Given a rejection", t, func() {
		_, err := remote.ParseSubmissionResponse([]byte(`{"Success":false,"Error":"invalid token"}`))

		Convey("Then the server message is kept", func() {
			So(errors.Is(err, remote.ErrServerRejected), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "invalid token")
		})
	})
}
