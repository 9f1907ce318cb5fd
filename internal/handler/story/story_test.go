package story

import (
	"encoding/base64"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeReferenceImages(t *testing.T) {
	Convey("解码 base64 参考图", t, func() {
		Convey("合法条目按序解码", func() {
			images := decodeReferenceImages([]string{
				base64.StdEncoding.EncodeToString([]byte("ref-a")),
				base64.StdEncoding.EncodeToString([]byte("ref-b")),
			})
			So(len(images), ShouldEqual, 2)
			So(images[0], ShouldResemble, []byte("ref-a"))
			So(images[1], ShouldResemble, []byte("ref-b"))
		})

		Convey("非法条目跳过不阻断", func() {
			images := decodeReferenceImages([]string{
				"%%% not base64 %%%",
				base64.StdEncoding.EncodeToString([]byte("ref-a")),
				"",
			})
			So(len(images), ShouldEqual, 1)
			So(images[0], ShouldResemble, []byte("ref-a"))
		})

		Convey("空列表返回空结果", func() {
			So(len(decodeReferenceImages(nil)), ShouldEqual, 0)
		})
	})
}
