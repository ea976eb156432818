package client

import "sync"

// tokenCounter 单调请求令牌发行器。
//
// 并发请求下的对账规则：每个资源（车道、零件）维护一个单调递增的
// 令牌计数，发起请求时取号，响应到达时只有持有最新号的响应才允许
// 写入本地状态。慢响应携带旧号直接丢弃，防止过期数据覆盖新状态。
type tokenCounter struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func newTokenCounter() *tokenCounter {
	return &tokenCounter{latest: make(map[string]uint64)}
}

// Issue 为资源发行新令牌并登记为最新
func (t *tokenCounter) Issue(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[key]++
	return t.latest[key]
}

// ShouldApply 判断携带 token 的响应是否仍是该资源的最新请求
func (t *tokenCounter) ShouldApply(key string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[key] == token
}
