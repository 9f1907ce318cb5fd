package storytools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// stubLLM 测试用 LLM 客户端：固定返回预设内容
type stubLLM struct {
	output string
	err    error
	calls  int
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.output, s.err
}

func TestSceneSplitterSplit(t *testing.T) {
	Convey("文本分镜", t, func() {
		ctx := context.Background()

		Convey("正常输出解析为场景列表", func() {
			llm := &stubLLM{output: `{"scenes":[` +
				`{"text":"むかしむかし、山に老人が住んでいた。","image_hint":"山奥の小屋","voice_hint":"穏やか","voice_script":"むかしむかし、山に老人が住んでいた。","sfx_hint":""},` +
				`{"text":"ある日、老人は川で光る桃を見つけた。","image_hint":"","voice_hint":"","voice_script":"","sfx_hint":"川のせせらぎ"}]}`}
			scenes := NewSceneSplitter(llm).Split(ctx, "むかしむかし……", 0)

			So(len(scenes), ShouldEqual, 2)
			So(scenes[0].Text, ShouldEqual, "むかしむかし、山に老人が住んでいた。")
			So(scenes[0].ImageHint, ShouldEqual, "山奥の小屋")
			So(scenes[1].SFXHint, ShouldEqual, "川のせせらぎ")
		})

		Convey("带 markdown 代码块的输出也能解析", func() {
			llm := &stubLLM{output: "```json\n{\"scenes\":[{\"text\":\"シーン1\"}]}\n```"}
			scenes := NewSceneSplitter(llm).Split(ctx, "シーン1", 0)

			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].Text, ShouldEqual, "シーン1")
		})

		Convey("LLM 报错时回退为单一场景", func() {
			llm := &stubLLM{err: errors.New("upstream timeout")}
			scenes := NewSceneSplitter(llm).Split(ctx, "回退させる文章", 5)

			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].Text, ShouldEqual, "回退させる文章")
			So(scenes[0].ImageHint, ShouldEqual, "")
			So(scenes[0].VoiceScript, ShouldEqual, "")
		})

		Convey("输出非法 JSON 时回退为单一场景", func() {
			llm := &stubLLM{output: "很抱歉，我不能完成这个任务"}
			scenes := NewSceneSplitter(llm).Split(ctx, "原文テキスト", 0)

			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].Text, ShouldEqual, "原文テキスト")
		})

		Convey("空场景被过滤，全部为空时回退", func() {
			llm := &stubLLM{output: `{"scenes":[{"text":"  "},{"text":""}]}`}
			scenes := NewSceneSplitter(llm).Split(ctx, "原文", 0)

			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].Text, ShouldEqual, "原文")
		})

		Convey("超过 maxScenes 时截断", func() {
			llm := &stubLLM{output: `{"scenes":[{"text":"a"},{"text":"b"},{"text":"c"}]}`}
			scenes := NewSceneSplitter(llm).Split(ctx, "abc", 2)

			So(len(scenes), ShouldEqual, 2)
			So(scenes[1].Text, ShouldEqual, "b")
		})

		Convey("nil LLM 直接回退且不调用", func() {
			scenes := NewSceneSplitter(nil).Split(ctx, "テキスト", 0)

			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].Text, ShouldEqual, "テキスト")
		})
	})
}
