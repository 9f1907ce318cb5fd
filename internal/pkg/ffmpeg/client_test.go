package ffmpeg

import (
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		want     float64
		wantOK   bool
	}{
		{
			name:   "format duration preferred",
			output: `{"format":{"duration":"6.700000"},"streams":[{"codec_type":"audio","duration":"6.500000"}]}`,
			want:   6.7,
			wantOK: true,
		},
		{
			name:   "fallback to audio stream duration",
			output: `{"format":{},"streams":[{"codec_type":"video"},{"codec_type":"audio","duration":"3.214000"}]}`,
			want:   3.214,
			wantOK: true,
		},
		{
			name:   "rounded to millisecond precision",
			output: `{"format":{"duration":"2.0004999"}}`,
			want:   2.0,
			wantOK: true,
		},
		{
			name:   "no audio stream and no format duration",
			output: `{"format":{},"streams":[{"codec_type":"video","duration":"9.0"}]}`,
			wantOK: false,
		},
		{
			name:   "unparsable duration strings",
			output: `{"format":{"duration":"N/A"},"streams":[{"codec_type":"audio","duration":""}]}`,
			wantOK: false,
		},
		{
			name:   "malformed json",
			output: `{"format":`,
			wantOK: false,
		},
		{
			name:   "empty output",
			output: `{}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProbeDuration([]byte(tt.output))
			if ok != tt.wantOK {
				t.Fatalf("parseProbeDuration() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseProbeDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposeSceneArgs_WithKnownDuration(t *testing.T) {
	opts := DefaultComposeOptions()
	args := composeSceneArgs("/tmp/img.png", "/tmp/aud.mp3", "/tmp/out.mp4", opts, 6.7, true)

	joined := strings.Join(args, " ")

	// 时长已知时用 -t 精确裁切，毫秒精度
	if !strings.Contains(joined, "-t 6.700") {
		t.Errorf("args missing exact trim, got: %s", joined)
	}
	if strings.Contains(joined, "-shortest") {
		t.Errorf("args must not contain -shortest when duration is known, got: %s", joined)
	}

	wantVF := "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1"
	if !strings.Contains(joined, wantVF) {
		t.Errorf("args missing video filter %q, got: %s", wantVF, joined)
	}

	// 音频统一重编码为 AAC 48kHz 立体声，保证分段可无缝连结
	for _, want := range []string{"-c:a aac", "-ar 48000", "-ac 2", "-c:v libx264", "-pix_fmt yuv420p", "-movflags +faststart", "-loop 1"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q, got: %s", want, joined)
		}
	}

	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Errorf("output path must be the last argument, got: %s", args[len(args)-1])
	}
}

func TestComposeSceneArgs_UnknownDuration(t *testing.T) {
	opts := DefaultComposeOptions()
	args := composeSceneArgs("/tmp/img.png", "/tmp/aud.mp3", "/tmp/out.mp4", opts, 0, false)

	joined := strings.Join(args, " ")

	// 时长未知时以较短流（音频）结束输出
	if !strings.Contains(joined, "-shortest") {
		t.Errorf("args missing -shortest fallback, got: %s", joined)
	}
	if strings.Contains(joined, "-t ") {
		t.Errorf("args must not contain -t when duration is unknown, got: %s", joined)
	}
}

func TestConcatListEntry(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/seg_0001.mp4", "file '/tmp/seg_0001.mp4'\n"},
		{"/tmp/with space/seg.mp4", "file '/tmp/with space/seg.mp4'\n"},
		{"/tmp/o'brien/seg.mp4", `file '/tmp/o'\''brien/seg.mp4'` + "\n"},
	}

	for _, tt := range tests {
		if got := concatListEntry(tt.path); got != tt.want {
			t.Errorf("concatListEntry(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestTempoRate(t *testing.T) {
	tests := map[string]float64{
		"slow":   0.85,
		"normal": 1.0,
		"fast":   1.25,
		"":       1.0,
		"other":  1.0,
	}
	for tempo, want := range tests {
		if got := TempoRate(tempo); got != want {
			t.Errorf("TempoRate(%q) = %v, want %v", tempo, got, want)
		}
	}
}

func TestTempoArgs(t *testing.T) {
	got := tempoArgs("/tmp/in.mp3", "/tmp/out.mp3", 0.85)
	want := []string{"-y", "-i", "/tmp/in.mp3", "-filter:a", "atempo=0.85", "/tmp/out.mp3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tempoArgs() = %v, want %v", got, want)
	}
}

func TestTempSet_Cleanup(t *testing.T) {
	var ts TempSet

	p1, err := ts.WriteTemp("scene_img_*.png", []byte("png bytes"))
	if err != nil {
		t.Fatalf("WriteTemp() error = %v", err)
	}
	p2, err := ts.WriteTemp("scene_aud_*.mp3", []byte("mp3 bytes"))
	if err != nil {
		t.Fatalf("WriteTemp() error = %v", err)
	}

	data, err := os.ReadFile(p1)
	if err != nil || string(data) != "png bytes" {
		t.Fatalf("temp file content = %q, %v", data, err)
	}

	ts.Cleanup()

	for _, p := range []string{p1, p2} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("temp file %s still exists after Cleanup()", p)
		}
	}

	// Cleanup 幂等
	ts.Cleanup()
}
