package storytools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCleanVoiceScript(t *testing.T) {
	Convey("清洗可朗读台词", t, func() {
		Convey("删除括号旁注并剥离旁白标签", func() {
			got := CleanVoiceScript("（背景：森）ナレーション：こんにちは。（BGM開始）")
			So(got, ShouldEqual, "こんにちは。")
		})

		Convey("各类括号都应被删除", func() {
			got := CleanVoiceScript("昔々【回想】、ある村に(遠景)おじいさんが［小声］住んでいました{fade}。")
			So(got, ShouldEqual, "昔々、ある村におじいさんが住んでいました。")
		})

		Convey("画面与音效行整行丢弃", func() {
			got := CleanVoiceScript("SFX: 風の音\n少年は森へ向かった。\nCamera: ズームイン\nBGM：静かなピアノ")
			So(got, ShouldEqual, "少年は森へ向かった。")
		})

		Convey("英文标签同样剥离", func() {
			got := CleanVoiceScript("Narrator: Once upon a time, there was a fox.")
			So(got, ShouldEqual, "Once upon a time, there was a fox.")
		})

		Convey("英文多行合并时补空格", func() {
			got := CleanVoiceScript("Narrator: The fox ran into the woods.\nThen it stopped!")
			So(got, ShouldEqual, "The fox ran into the woods. Then it stopped!")
		})

		Convey("日文多行直接相连", func() {
			got := CleanVoiceScript("一行目の文。\n二行目の文。")
			So(got, ShouldEqual, "一行目の文。二行目の文。")
		})

		Convey("超过两句时截断", func() {
			got := CleanVoiceScript("一文目。二文目。三文目。四文目。")
			So(got, ShouldEqual, "一文目。二文目。")
		})

		Convey("重复句末标点折叠为单个", func() {
			So(CleanVoiceScript("すごい！！！"), ShouldEqual, "すごい！")
			So(CleanVoiceScript("本当に。。。"), ShouldEqual, "本当に。")
		})

		Convey("清洗后为空返回空字符串", func() {
			So(CleanVoiceScript("（無言のシーン）"), ShouldEqual, "")
			So(CleanVoiceScript("画面：夕焼けの空"), ShouldEqual, "")
			So(CleanVoiceScript(""), ShouldEqual, "")
		})

		Convey("没有噪声的文本原样保留", func() {
			So(CleanVoiceScript("こんにちは。元気ですか？"), ShouldEqual, "こんにちは。元気ですか？")
		})
	})
}

func TestTruncateSentences(t *testing.T) {
	Convey("按句末标点截断", t, func() {
		So(truncateSentences("一。二。三。", 2), ShouldEqual, "一。二。")
		So(truncateSentences("一。二。", 2), ShouldEqual, "一。二。")
		So(truncateSentences("標点なしの文", 2), ShouldEqual, "標点なしの文")
		So(truncateSentences("First! Second? Third!", 2), ShouldEqual, "First! Second?")
		So(truncateSentences("一。二。三。", 0), ShouldEqual, "一。二。三。")
	})
}
