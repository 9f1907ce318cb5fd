package story

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"storyreel/internal/config"
	"storyreel/internal/model/story"
	"storyreel/internal/pkg/ffmpeg"
	"storyreel/internal/pkg/storage/local"
)

// fakeLLM 测试用 LLM：对分镜请求返回固定场景列表，其余请求报错触发回退
type fakeLLM struct {
	scenesJSON string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if f.scenesJSON != "" && strings.Contains(prompt, "分镜脚本助手") {
		return f.scenesJSON, nil
	}
	return "", errors.New("llm unavailable")
}

// fakeImage 测试用图片生成：记录每次调用收到的尺寸与参照图数量
type fakeImage struct {
	refCounts []int
	sizes     []string
	calls     int
	failTimes int // 前 failTimes 次调用失败
}

func (f *fakeImage) Generate(ctx context.Context, prompt, size string, refs [][]byte) ([]byte, error) {
	f.calls++
	if f.calls <= f.failTimes {
		return nil, errors.New("image upstream error")
	}
	f.refCounts = append(f.refCounts, len(refs))
	f.sizes = append(f.sizes, size)
	return []byte(fmt.Sprintf("image-%d", f.calls)), nil
}

// fakeTTS 测试用语音合成：记录收到的文本与声音
type fakeTTS struct {
	texts  []string
	voices []string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voice, format string) ([]byte, error) {
	f.texts = append(f.texts, text)
	f.voices = append(f.voices, voice)
	return []byte("audio:" + text), nil
}

// fakeComposer 测试用合成器：只落占位文件并记录调用
type fakeComposer struct {
	composed   []string
	concats    int
	tempoRates []float64
	probeDur   float64
	probeOK    bool
}

func (f *fakeComposer) ProbeAudioDuration(ctx context.Context, audioPath string) (float64, bool) {
	return f.probeDur, f.probeOK
}

func (f *fakeComposer) ComposeSceneVideo(ctx context.Context, imagePath, audioPath, outputPath string, opts ffmpeg.ComposeOptions) error {
	f.composed = append(f.composed, outputPath)
	return os.WriteFile(outputPath, []byte("segment"), 0o644)
}

func (f *fakeComposer) ConcatSegments(ctx context.Context, segmentPaths []string, outputPath string) error {
	f.concats++
	return os.WriteFile(outputPath, []byte("final"), 0o644)
}

func (f *fakeComposer) AdjustAudioTempo(ctx context.Context, inputPath, outputPath string, rate float64) error {
	f.tempoRates = append(f.tempoRates, rate)
	return os.WriteFile(outputPath, []byte("tempo"), 0o644)
}

// newTestService 组装一个使用本地存储和桩依赖的服务
func newTestService(t *testing.T, llm *fakeLLM, image *fakeImage, tts *fakeTTS, composer *fakeComposer, tempo string) *StoryService {
	t.Helper()

	store, err := local.NewLocalStorage(t.TempDir(), "http://localhost:8080/files", 3600)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	cfg := &config.Config{}
	cfg.Video.WorkDir = t.TempDir()
	cfg.TTS.Tempo = tempo

	return NewStoryService(cfg, llm, image, tts, composer, store, nil, nil)
}

func TestGenerateVideo(t *testing.T) {
	Convey("故事视频生成管线", t, func() {
		ctx := context.Background()

		twoScenes := `{"scenes":[` +
			`{"text":"少年は森へ向かった。","voice_script":"少年は森へ向かった。"},` +
			`{"text":"森の奥で狐に出会った。","voice_script":"森の奥で狐に出会った。"}]}`

		Convey("两个场景生成两个分段并连结", func() {
			composer := &fakeComposer{probeDur: 6.7, probeOK: true}
			image := &fakeImage{}
			tts := &fakeTTS{}
			svc := newTestService(t, &fakeLLM{scenesJSON: twoScenes}, image, tts, composer, "")

			rec, err := svc.GenerateVideo(ctx, "少年の物語", story.GenerationOptions{})

			So(err, ShouldBeNil)
			So(rec.Status, ShouldEqual, story.StatusCompleted)
			So(rec.SceneCount, ShouldEqual, 2)
			So(len(composer.composed), ShouldEqual, 2)
			So(composer.concats, ShouldEqual, 1)
			So(rec.VideoKey, ShouldEqual, "stories/"+rec.ID+"/final.mp4")
			So(rec.VideoURL, ShouldNotBeEmpty)
			So(rec.Duration, ShouldEqual, 6.7)
			So(rec.Scenes[0].VoiceScript, ShouldEqual, "少年は森へ向かった。")
			So(tts.texts, ShouldResemble, []string{"少年は森へ向かった。", "森の奥で狐に出会った。"})
		})

		Convey("LLM 不可用时回退为单一场景且不连结", func() {
			composer := &fakeComposer{probeDur: 3.2, probeOK: true}
			svc := newTestService(t, &fakeLLM{}, &fakeImage{}, &fakeTTS{}, composer, "")

			rec, err := svc.GenerateVideo(ctx, "回退テキスト。", story.GenerationOptions{})

			So(err, ShouldBeNil)
			So(rec.SceneCount, ShouldEqual, 1)
			So(len(composer.composed), ShouldEqual, 1)
			So(composer.concats, ShouldEqual, 0)
			So(rec.VideoKey, ShouldNotBeEmpty)
		})

		Convey("参照图随场景推进逐张累积", func() {
			threeScenes := `{"scenes":[{"text":"一"},{"text":"二"},{"text":"三"}]}`
			composer := &fakeComposer{}
			image := &fakeImage{}
			svc := newTestService(t, &fakeLLM{scenesJSON: threeScenes}, image, &fakeTTS{}, composer, "")

			_, err := svc.GenerateVideo(ctx, "三場面の話", story.GenerationOptions{
				ReferenceImages: [][]byte{[]byte("base-ref")},
			})

			So(err, ShouldBeNil)
			// 每个场景可见：1 张基准图 + 此前生成的全部场景图
			So(image.refCounts, ShouldResemble, []int{1, 2, 3})
		})

		Convey("上游瞬时失败由重试吸收", func() {
			composer := &fakeComposer{}
			image := &fakeImage{failTimes: 2}
			svc := newTestService(t, &fakeLLM{}, image, &fakeTTS{}, composer, "")
			svc.retry.Interval = 0

			rec, err := svc.GenerateVideo(ctx, "リトライの話。", story.GenerationOptions{})

			So(err, ShouldBeNil)
			So(rec.Status, ShouldEqual, story.StatusCompleted)
			So(image.calls, ShouldEqual, 3)
		})

		Convey("重试耗尽后整次生成失败", func() {
			composer := &fakeComposer{}
			image := &fakeImage{failTimes: 10}
			svc := newTestService(t, &fakeLLM{}, image, &fakeTTS{}, composer, "")
			svc.retry.Interval = 0

			rec, err := svc.GenerateVideo(ctx, "失敗する話。", story.GenerationOptions{})

			So(err, ShouldNotBeNil)
			So(rec, ShouldBeNil)
			So(image.calls, ShouldEqual, 3)
		})

		Convey("请求级尺寸、声音与语速覆盖配置默认", func() {
			composer := &fakeComposer{}
			image := &fakeImage{}
			tts := &fakeTTS{}
			svc := newTestService(t, &fakeLLM{}, image, tts, composer, "")
			svc.cfg.Image.DefaultSize = "1024x576"
			svc.cfg.TTS.Voice = "alloy"

			_, err := svc.GenerateVideo(ctx, "指定ありの話。", story.GenerationOptions{
				ImageSize: "576x1024",
				Voice:     "nova",
				Tempo:     "slow",
			})

			So(err, ShouldBeNil)
			So(image.sizes, ShouldResemble, []string{"576x1024"})
			So(tts.voices, ShouldResemble, []string{"nova"})
			So(composer.tempoRates, ShouldResemble, []float64{0.85})
		})

		Convey("未指定时回退到配置默认", func() {
			composer := &fakeComposer{}
			image := &fakeImage{}
			tts := &fakeTTS{}
			svc := newTestService(t, &fakeLLM{}, image, tts, composer, "")
			svc.cfg.Image.DefaultSize = "1024x576"
			svc.cfg.TTS.Voice = "alloy"

			_, err := svc.GenerateVideo(ctx, "既定値の話。", story.GenerationOptions{})

			So(err, ShouldBeNil)
			So(image.sizes, ShouldResemble, []string{"1024x576"})
			So(tts.voices, ShouldResemble, []string{"alloy"})
			So(len(composer.tempoRates), ShouldEqual, 0)
		})

		Convey("基准参考图多来源合并且失败来源跳过", func() {
			dir := t.TempDir()
			goodPath := filepath.Join(dir, "ref.png")
			So(os.WriteFile(goodPath, []byte("file-ref"), 0o644), ShouldBeNil)

			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("url-ref"))
			}))
			defer ts.Close()

			svc := newTestService(t, &fakeLLM{}, &fakeImage{}, &fakeTTS{}, &fakeComposer{}, "")
			refs := svc.collectBaseRefs(ctx, story.GenerationOptions{
				ReferenceImages: [][]byte{[]byte("inline-ref")},
				ReferencePaths:  []string{goodPath, filepath.Join(dir, "missing.png")},
				ReferenceURLs:   []string{ts.URL, "http://127.0.0.1:1/unreachable"},
			})

			So(len(refs), ShouldEqual, 3)
			So(refs[0], ShouldResemble, []byte("inline-ref"))
			So(refs[1], ShouldResemble, []byte("file-ref"))
			So(refs[2], ShouldResemble, []byte("url-ref"))
		})

		Convey("语速档位映射为变速调用", func() {
			composer := &fakeComposer{}
			svc := newTestService(t, &fakeLLM{}, &fakeImage{}, &fakeTTS{}, composer, "fast")

			_, err := svc.GenerateVideo(ctx, "早口の話。", story.GenerationOptions{})

			So(err, ShouldBeNil)
			So(composer.tempoRates, ShouldResemble, []float64{1.25})
		})

		Convey("空文本直接拒绝", func() {
			svc := newTestService(t, &fakeLLM{}, &fakeImage{}, &fakeTTS{}, &fakeComposer{}, "")

			_, err := svc.GenerateVideo(ctx, "   ", story.GenerationOptions{})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestReferencePool(t *testing.T) {
	Convey("参考图池", t, func() {
		Convey("基准图截断到上限", func() {
			base := make([][]byte, 8)
			for i := range base {
				base[i] = []byte{byte(i + 1)}
			}
			pool := NewReferencePool(base)
			So(len(pool.Refs()), ShouldEqual, 5)
		})

		Convey("近期图按滑动窗口保留最新 5 张", func() {
			pool := NewReferencePool(nil)
			for i := 1; i <= 7; i++ {
				pool.AddRecent([]byte{byte(i)})
			}
			refs := pool.Refs()
			So(len(refs), ShouldEqual, 5)
			So(refs[0], ShouldResemble, []byte{3})
			So(refs[4], ShouldResemble, []byte{7})
		})

		Convey("基准图在前近期图在后", func() {
			pool := NewReferencePool([][]byte{[]byte("base")})
			pool.AddRecent([]byte("recent"))
			refs := pool.Refs()
			So(len(refs), ShouldEqual, 2)
			So(refs[0], ShouldResemble, []byte("base"))
			So(refs[1], ShouldResemble, []byte("recent"))
		})

		Convey("空图被忽略", func() {
			pool := NewReferencePool([][]byte{nil, {}})
			pool.AddRecent(nil)
			So(len(pool.Refs()), ShouldEqual, 0)
		})
	})
}
