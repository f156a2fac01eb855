package service

import "sync/atomic"

// screenGuard 页面离开或重新进入时递增代数，之前发出的请求结果会被丢弃
type screenGuard struct {
	gen atomic.Uint64
}

func (g *screenGuard) begin() uint64 {
	return g.gen.Load()
}

func (g *screenGuard) valid(token uint64) bool {
	return g.gen.Load() == token
}

func (g *screenGuard) invalidate() {
	g.gen.Add(1)
}
