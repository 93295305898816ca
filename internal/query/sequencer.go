package query

import (
	"context"
	"sync"
)

// Sequencer 同一视图上的请求接替：发起新查询时取消上一个仍在进行
// 的查询,其结果随之标记为过期,永不触达调用方。
type Sequencer struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Begin 登记一次新查询,取消在途的前序查询,返回新查询的 ctx 与序号。
func (s *Sequencer) Begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.seq++
	s.cancel = cancel
	return ctx, s.seq
}

// Stale 判断序号 seq 的查询是否已被后来者接替。
func (s *Sequencer) Stale(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq != s.seq
}

// Finish 查询收尾:仅当 seq 仍是当前查询时释放其 cancel。
func (s *Sequencer) Finish(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.seq && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SequencerGroup 按视图键隔离的 Sequencer 集合。接替只发生在同一个键
// 内部:同一客户端视图的新查询取消它自己仍在途的旧查询,不同用户、
// 不同标签页之间互不干扰。键为空表示无法识别视图,此时不参与接替,
// 请求只受自身 ctx 约束。
type SequencerGroup struct {
	mu   sync.Mutex
	seqs map[string]*Sequencer
}

func NewSequencerGroup() *SequencerGroup {
	return &SequencerGroup{seqs: make(map[string]*Sequencer)}
}

// ViewKey 组合一次列表查询所属视图的键:用户 + 视图名 + 客户端自报的
// 视图实例标识(同一用户开多个标签页时据此区分)。用户与实例标识都
// 缺失时返回空串。
func ViewKey(userID, view, clientViewID string) string {
	if userID == "" && clientViewID == "" {
		return ""
	}
	return userID + "/" + view + "/" + clientViewID
}

func (g *SequencerGroup) at(key string) *Sequencer {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.seqs[key]
	if !ok {
		s = &Sequencer{}
		g.seqs[key] = s
	}
	return s
}

func (g *SequencerGroup) Begin(parent context.Context, key string) (context.Context, uint64) {
	if key == "" {
		return parent, 0
	}
	return g.at(key).Begin(parent)
}

func (g *SequencerGroup) Stale(key string, seq uint64) bool {
	if key == "" {
		return false
	}
	return g.at(key).Stale(seq)
}

func (g *SequencerGroup) Finish(key string, seq uint64) {
	if key == "" {
		return
	}
	g.at(key).Finish(seq)
}
