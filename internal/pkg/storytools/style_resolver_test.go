package storytools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStyleResolverResolve(t *testing.T) {
	Convey("视觉风格解析", t, func() {
		ctx := context.Background()

		Convey("用户指定风格优先且不调用 LLM", func() {
			llm := &stubLLM{output: "水彩画風"}
			style := NewStyleResolver(llm).Resolve(ctx, "本文", "サイバーパンク、ネオン")

			So(style, ShouldEqual, "サイバーパンク、ネオン")
			So(llm.calls, ShouldEqual, 0)
		})

		Convey("未指定时由 LLM 推断", func() {
			llm := &stubLLM{output: "水彩画風、淡い色彩、静かな雰囲気"}
			style := NewStyleResolver(llm).Resolve(ctx, "本文", "")

			So(style, ShouldEqual, "水彩画風、淡い色彩、静かな雰囲気")
			So(llm.calls, ShouldEqual, 1)
		})

		Convey("LLM 报错时回退为默认风格", func() {
			llm := &stubLLM{err: errors.New("rate limited")}
			style := NewStyleResolver(llm).Resolve(ctx, "本文", "")

			So(style, ShouldEqual, DefaultVisualStyle)
		})

		Convey("LLM 返回空白时回退为默认风格", func() {
			llm := &stubLLM{output: "   "}
			So(NewStyleResolver(llm).Resolve(ctx, "本文", ""), ShouldEqual, DefaultVisualStyle)
		})

		Convey("nil LLM 返回默认风格", func() {
			So(NewStyleResolver(nil).Resolve(ctx, "本文", ""), ShouldEqual, DefaultVisualStyle)
		})
	})
}

func TestBuildStyleHint(t *testing.T) {
	Convey("场景风格提示", t, func() {
		Convey("首个场景只带风格", func() {
			So(BuildStyleHint("絵本風", 1), ShouldEqual, "絵本風")
		})

		Convey("第二个场景起追加连贯性约束", func() {
			hint := BuildStyleHint("絵本風", 2)
			So(hint, ShouldStartWith, "絵本風")
			So(hint, ShouldContainSubstring, "同一のキャラクターデザイン")
		})

		Convey("风格为空时只返回连贯性约束", func() {
			So(BuildStyleHint("", 3), ShouldEqual, continuityHint)
		})
	})
}
