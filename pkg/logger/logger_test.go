package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then the global and named loggers are available", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithJSON()), ShouldBeNil)
		ctx := context.Background()

		Convey("When a named logger writes fields", func() {
			Named("worker").Info(ctx, "edit applied",
				String("kind", "ranking"),
				Int("revision", 3),
				Float64("value", 0.5),
				Bool("modified", true),
				Duration("took", 2*time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the record carries every field plus name and source", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "edit applied")
				So(rec["logger"], ShouldEqual, "worker")
				So(rec["kind"], ShouldEqual, "ranking")
				So(rec["revision"], ShouldEqual, 3.0)
				So(rec["value"], ShouldEqual, 0.5)
				So(rec["modified"], ShouldEqual, true)
				So(rec["error"], ShouldEqual, "boom")
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("WARN"), ShouldBeNil)
			Get().Debug(ctx, "hidden")
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then lower levels are dropped", func() {
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(len(lines), ShouldEqual, 1)
				So(lines[0], ShouldContainSubstring, "shown")
			})
		})

		Convey("When an unknown level is set", func() {
			err := SetLevelString("chatty")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a text logger without source", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithoutSource()), ShouldBeNil)
		Get().Info(context.Background(), "hello", String("k", "v"))

		Convey("Then output is key=value without a source field", func() {
			So(buf.String(), ShouldContainSubstring, "k=v")
			So(buf.String(), ShouldNotContainSubstring, "source=")
		})
	})
}
