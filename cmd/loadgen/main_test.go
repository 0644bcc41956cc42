package main

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the loadgen command", t, func() {
		cmd := newRootCmd()

		convey.Convey("Then its flags carry the defaults", func() {
			mode, err := cmd.Flags().GetString("mode")
			convey.So(err, convey.ShouldBeNil)
			convey.So(mode, convey.ShouldEqual, "analyze")

			frames, err := cmd.Flags().GetInt("frames")
			convey.So(err, convey.ShouldBeNil)
			convey.So(frames, convey.ShouldEqual, defaultFrames)
		})

		convey.Convey("When an invalid mode is given", func() {
			cmd.SetArgs([]string{"--mode", "burst", "--url", "http://127.0.0.1:1"})
			err := cmd.Execute()

			convey.Convey("Then the run is refused", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unknown mode")
			})
		})
	})
}
