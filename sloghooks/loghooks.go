package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cacheaside"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	LockTimeoutEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	lockTimeoutCtr atomic.Uint64
}

var _ cacheaside.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) LockTimeout(key string, timeout time.Duration) {
	if h.l == nil || !sample(h.opts.LockTimeoutEvery, &h.lockTimeoutCtr) {
		return
	}
	h.l.Info("cacheaside.lock_timeout",
		"key", h.redact(key),
		"timeout", timeout)
}

func (h *Hooks) FactoryFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Debug("cacheaside.factory_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) StaleWriteSkipped(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("cacheaside.stale_write_skipped",
		"key", h.redact(key))
}

func (h *Hooks) SelfHeal(key, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("cacheaside.self_heal",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheaside.provider_set_rejected",
		"key", h.redact(key))
}

func (h *Hooks) GenSnapshotError(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheaside.gen_snapshot_error",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) RemoveOutage(key string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("cacheaside.remove_outage",
		"key", h.redact(key),
		"bump_err", bumpErr,
		"del_err", delErr)
}
