package storytools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCleanJSONContent(t *testing.T) {
	Convey("清理 LLM 输出中的代码块标记", t, func() {
		Convey("带语言标记的代码块", func() {
			got := CleanJSONContent("```json\n{\"scenes\":[]}\n```")
			So(got, ShouldEqual, `{"scenes":[]}`)
		})

		Convey("不带语言标记的代码块", func() {
			got := CleanJSONContent("```\n{\"a\":1}\n```")
			So(got, ShouldEqual, `{"a":1}`)
		})

		Convey("无代码块时原样返回（仅去除首尾空白）", func() {
			So(CleanJSONContent("  {\"a\":1}\n"), ShouldEqual, `{"a":1}`)
		})

		Convey("空输入返回空字符串", func() {
			So(CleanJSONContent(""), ShouldEqual, "")
		})
	})
}
