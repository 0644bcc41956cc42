package contentgen_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"github.com/okian/attune/internal/adapters/contentgen"
	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/domain/recommend"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeChat struct {
	text  string
	err   error
	delay time.Duration
	last  openai.ChatCompletionNewParams
}

func (f *fakeChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	f.last = params
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return openai.ChatCompletion{}, ctx.Err()
		}
	}
	if f.err != nil {
		return openai.ChatCompletion{}, f.err
	}
	return openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.text}}}}, nil
}

func request() contentgen.Request {
	return contentgen.Request{
		SubjectID:  "s1",
		Topic:      "fractions",
		State:      model.StateStruggling,
		Adaptation: recommend.Adapt(model.SignalVector{Attention: 0.6, Confusion: 0.7, Engagement: 0.5}, ""),
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a working chat backend", t, func() {
		chat := &fakeChat{text: "  Fractions are parts of a whole.  "}
		g := contentgen.New("", "", contentgen.WithChatService(chat), contentgen.WithModel("test-model"))

		Convey("Then content comes from the model with adaptation metadata", func() {
			c, err := g.Generate(context.Background(), request())
			So(err, ShouldBeNil)
			So(c.Source, ShouldEqual, contentgen.SourceOpenAI)
			So(c.Text, ShouldEqual, "Fractions are parts of a whole.")
			So(c.Format, ShouldEqual, model.FormatVisual)
			So(c.Difficulty, ShouldEqual, "beginner")
			So(c.AdaptationTags, ShouldContain, "difficulty:decrease")
			So(string(chat.last.Model), ShouldEqual, "test-model")
			So(len(chat.last.Messages), ShouldEqual, 2)
		})
	})

	Convey("Given a failing backend", t, func() {
		for name, chat := range map[string]*fakeChat{
			"error":   {err: errors.New("rate limited")},
			"empty":   {text: "   "},
			"timeout": {text: "late", delay: time.Second},
		} {
			Convey("When the backend returns "+name, func() {
				g := contentgen.New("", "", contentgen.WithChatService(chat), contentgen.WithTimeout(20*time.Millisecond))
				c, err := g.Generate(context.Background(), request())

				So(err, ShouldBeNil)
				So(c.Source, ShouldEqual, contentgen.SourceFallback)
				So(c.Text, ShouldContainSubstring, "fractions")
			})
		}
	})

	Convey("Given no API key", t, func() {
		g := contentgen.New("", "")
		So(g.Enabled(), ShouldBeFalse)
		c, err := g.Generate(context.Background(), request())
		So(err, ShouldBeNil)
		So(c.Source, ShouldEqual, contentgen.SourceFallback)
		So(c.Text, ShouldContainSubstring, "step by step")
		So(c.Text, ShouldContainSubstring, "diagram")
	})

	Convey("Given a cancelled caller", t, func() {
		g := contentgen.New("", "", contentgen.WithChatService(&fakeChat{delay: time.Second}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := g.Generate(ctx, request())
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})

	Convey("Given an API key", t, func() {
		So(contentgen.New("sk-test", "http://127.0.0.1:1").Enabled(), ShouldBeTrue)
	})
}
