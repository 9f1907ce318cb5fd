package ffmpeg

import (
	"fmt"
	"os"
)

// TempSet 临时文件集合
// 字节输入在合成前先物化为文件路径，合成器只处理路径。
// 跟踪本次合成产生的所有临时文件，无论成功失败都在 Cleanup 中删除。
type TempSet struct {
	paths []string
}

// WriteTemp 将字节写入临时文件并跟踪
// pattern 遵循 os.CreateTemp 规则（如 "scene_img_*.png"）
func (t *TempSet) WriteTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	t.paths = append(t.paths, f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return f.Name(), nil
}

// Track 跟踪外部创建的临时文件
func (t *TempSet) Track(path string) {
	t.paths = append(t.paths, path)
}

// Cleanup 删除所有跟踪的临时文件
// 幂等；删除失败只记录不报错
func (t *TempSet) Cleanup() {
	for _, p := range t.paths {
		_ = os.Remove(p)
	}
	t.paths = nil
}
