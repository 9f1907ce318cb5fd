package story

// 参考图数量上限：基准图与近期生成图各自最多保留 5 张
const (
	maxBaseRefs   = 5
	maxRecentRefs = 5
)

// ReferencePool 参考图池
// 基准图（用户提供）在整个生成过程中固定；近期图为最近生成的场景图片，
// 以滑动窗口保留，二者一起作为下一张图片的风格/角色一致性参照
type ReferencePool struct {
	base   [][]byte
	recent [][]byte
}

// NewReferencePool 创建参考图池，基准图超过上限时截断
func NewReferencePool(base [][]byte) *ReferencePool {
	kept := make([][]byte, 0, maxBaseRefs)
	for _, img := range base {
		if len(img) == 0 {
			continue
		}
		kept = append(kept, img)
		if len(kept) == maxBaseRefs {
			break
		}
	}
	return &ReferencePool{base: kept}
}

// AddRecent 记录一张新生成的场景图片，窗口满时淘汰最旧的
func (p *ReferencePool) AddRecent(img []byte) {
	if len(img) == 0 {
		return
	}
	p.recent = append(p.recent, img)
	if len(p.recent) > maxRecentRefs {
		p.recent = p.recent[len(p.recent)-maxRecentRefs:]
	}
}

// Refs 返回当前参照集：基准图在前，近期图按从旧到新排列
func (p *ReferencePool) Refs() [][]byte {
	refs := make([][]byte, 0, len(p.base)+len(p.recent))
	refs = append(refs, p.base...)
	refs = append(refs, p.recent...)
	return refs
}
