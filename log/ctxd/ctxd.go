// Package ctxd adapts a github.com/bool64/ctxd logger. Fields are passed as
// alternating keys and values in sorted key order, so output is stable.
package ctxd

import (
	"context"
	"sort"

	"github.com/bool64/ctxd"
	"github.com/unkn0wn-root/cacheaside"
)

var _ cacheaside.Logger = Logger{}

// Logger logs through L with Ctx (context.Background when nil), which lets
// ctxd pick up fields attached to a long-lived context.
type Logger struct {
	L   ctxd.Logger
	Ctx context.Context
}

func (l Logger) Debug(msg string, f cacheaside.Fields) { l.L.Debug(l.ctx(), msg, kv(f)...) }
func (l Logger) Info(msg string, f cacheaside.Fields)  { l.L.Info(l.ctx(), msg, kv(f)...) }
func (l Logger) Warn(msg string, f cacheaside.Fields)  { l.L.Warn(l.ctx(), msg, kv(f)...) }
func (l Logger) Error(msg string, f cacheaside.Fields) { l.L.Error(l.ctx(), msg, kv(f)...) }

func (l Logger) ctx() context.Context {
	if l.Ctx == nil {
		return context.Background()
	}
	return l.Ctx
}

func kv(f cacheaside.Fields) []interface{} {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]interface{}, 0, 2*len(f))
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
