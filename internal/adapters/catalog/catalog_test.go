package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/attune/internal/adapters/catalog"
	"github.com/okian/attune/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalog(t *testing.T) {
	Convey("Given the built-in catalog", t, func() {
		c := catalog.Default()
		now := time.Unix(1700000000, 0)

		So(c.TopicNames(), ShouldResemble, []string{"computer_vision", "machine_learning"})

		Convey("When planning for a rested learner", func() {
			p, err := c.Plan("s1", "machine_learning", model.SignalVector{}, now)
			So(err, ShouldBeNil)

			Convey("Then long modules split into 45 minute sessions", func() {
				So(p.ID, ShouldEqual, "s1:machine_learning:1700000000")
				So(p.SessionMinutes, ShouldEqual, 45)
				So(p.TotalMinutes, ShouldEqual, 195)
				var minutes []int
				for _, s := range p.Sessions {
					minutes = append(minutes, s.Minutes)
					So(s.Minutes, ShouldBeLessThanOrEqualTo, 45)
				}
				So(minutes, ShouldResemble, []int{45, 45, 15, 45, 45})
				So(p.Sessions[4].Index, ShouldEqual, 5)
				So(p.Sessions[4].Modules, ShouldResemble, []string{"deep_learning"})
			})
		})

		Convey("When the learner is tired and confused", func() {
			sv := model.SignalVector{Fatigue: 0.7, Confusion: 0.7}
			So(c.SessionMinutes(sv), ShouldEqual, 24)
			p, err := c.Plan("s1", "computer_vision", sv, now)
			So(err, ShouldBeNil)
			So(p.Sessions[0].BreakMin, ShouldEqual, 10)
			So(len(p.Sessions), ShouldEqual, 3+4)
		})

		Convey("When the topic is unknown", func() {
			_, err := c.Plan("s1", "poetry", model.SignalVector{}, now)
			So(err, ShouldWrap, catalog.ErrUnknownTopic)
		})
	})

	Convey("Given catalog files", t, func() {
		dir := t.TempDir()

		Convey("A valid file loads", func() {
			path := filepath.Join(dir, "c.yaml")
			So(os.WriteFile(path, []byte("topics:\n  algebra:\n    - id: a1\n      minutes: 20\n"), 0o600), ShouldBeNil)
			c, err := catalog.Load(path)
			So(err, ShouldBeNil)
			So(c.OptimalSessionMinutes, ShouldEqual, 45)
			mods, err := c.Modules("algebra")
			So(err, ShouldBeNil)
			So(mods[0].ID, ShouldEqual, "a1")
		})

		Convey("A module without minutes is rejected", func() {
			_, err := catalog.Parse([]byte("topics:\n  algebra:\n    - id: a1\n"))
			So(err, ShouldWrap, catalog.ErrInvalid)
		})

		Convey("A missing file is an error and an empty path is the default", func() {
			_, err := catalog.Load(filepath.Join(dir, "missing.yaml"))
			So(err, ShouldNotBeNil)
			c, err := catalog.Load("")
			So(err, ShouldBeNil)
			So(c.Topics, ShouldContainKey, "machine_learning")
		})
	})
}
