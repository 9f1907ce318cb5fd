package storytools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestVoiceScriptGeneratorScriptFor(t *testing.T) {
	Convey("旁白台词选择", t, func() {
		ctx := context.Background()

		Convey("场景自带 voice_script 优先且经过清洗", func() {
			llm := &stubLLM{output: "LLM の出力"}
			scene := SceneSpec{
				Text:        "少年は森へ向かった。",
				VoiceScript: "ナレーション：少年は森へ向かった。（足音）",
			}
			script := NewVoiceScriptGenerator(llm).ScriptFor(ctx, scene)

			So(script, ShouldEqual, "少年は森へ向かった。")
			So(llm.calls, ShouldEqual, 0)
		})

		Convey("voice_script 为空时由 LLM 生成", func() {
			llm := &stubLLM{output: "静かな森に、足音だけが響いた。"}
			scene := SceneSpec{Text: "少年は森へ向かった。"}
			script := NewVoiceScriptGenerator(llm).ScriptFor(ctx, scene)

			So(script, ShouldEqual, "静かな森に、足音だけが響いた。")
			So(llm.calls, ShouldEqual, 1)
		})

		Convey("LLM 报错时回退为场景正文", func() {
			llm := &stubLLM{err: errors.New("upstream error")}
			scene := SceneSpec{Text: "（遠景）少年は森へ向かった。"}
			script := NewVoiceScriptGenerator(llm).ScriptFor(ctx, scene)

			So(script, ShouldEqual, "少年は森へ向かった。")
		})

		Convey("LLM 输出清洗后为空时回退为场景正文", func() {
			llm := &stubLLM{output: "（無言）"}
			scene := SceneSpec{Text: "少年は森へ向かった。"}
			So(NewVoiceScriptGenerator(llm).ScriptFor(ctx, scene), ShouldEqual, "少年は森へ向かった。")
		})

		Convey("nil LLM 直接使用场景正文", func() {
			scene := SceneSpec{Text: "少年は森へ向かった。"}
			So(NewVoiceScriptGenerator(nil).ScriptFor(ctx, scene), ShouldEqual, "少年は森へ向かった。")
		})
	})
}

func TestImagePromptBuilderBuild(t *testing.T) {
	Convey("画面提示词构造", t, func() {
		ctx := context.Background()
		scene := SceneSpec{Text: "少年は森へ向かった。", ImageHint: "夕暮れの森"}

		Convey("LLM 精炼结果直接采用", func() {
			llm := &stubLLM{output: "夕暮れの森を歩く少年、逆光、絵本風"}
			prompt := NewImagePromptBuilder(llm).Build(ctx, scene, "絵本風")

			So(prompt, ShouldEqual, "夕暮れの森を歩く少年、逆光、絵本風")
		})

		Convey("LLM 报错时回退为拼接提示词", func() {
			llm := &stubLLM{err: errors.New("rate limited")}
			prompt := NewImagePromptBuilder(llm).Build(ctx, scene, "絵本風")

			So(prompt, ShouldContainSubstring, "少年は森へ向かった。")
			So(prompt, ShouldContainSubstring, "夕暮れの森")
			So(prompt, ShouldContainSubstring, "絵本風")
		})

		Convey("nil LLM 回退为拼接提示词", func() {
			prompt := NewImagePromptBuilder(nil).Build(ctx, scene, "絵本風")
			So(prompt, ShouldEqual, "少年は森へ向かった。夕暮れの森。絵本風")
		})
	})
}

func TestNormalizeImageSize(t *testing.T) {
	Convey("图片尺寸归一化", t, func() {
		So(NormalizeImageSize("1920x1080"), ShouldEqual, "1920x1080")
		So(NormalizeImageSize("1024x576"), ShouldEqual, "1024x576")
		So(NormalizeImageSize("576x1024"), ShouldEqual, "576x1024")
		So(NormalizeImageSize("512x512"), ShouldEqual, "512x512")
		So(NormalizeImageSize("1536x1024"), ShouldEqual, "1536x1024")
		So(NormalizeImageSize("999x999"), ShouldEqual, "1024x1024")
		So(NormalizeImageSize(""), ShouldEqual, "1024x1024")
	})
}
