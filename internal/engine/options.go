package engine

import (
	"errors"

	"github.com/dictdb/dictdb/internal/schema"
)

// Option overrides an engine default for one call.
type Option func(*callOptions)

type callOptions struct {
	table          string
	implicit       schema.Implicit
	commit         bool
	autoAlter      bool
	autoUpdateTime bool
	ignore         []error
}

func (e *Engine) options(opts []Option) callOptions {
	o := callOptions{
		implicit: schema.Implicit{
			InsertTime: e.cfg.InsertTime,
			UpdateTime: e.cfg.UpdateTime,
			Export:     e.cfg.Export,
		},
		commit:         e.cfg.AutoCommit,
		autoAlter:      e.cfg.AutoAlter,
		autoUpdateTime: e.cfg.AutoUpdateTime,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ignorable reports whether err matches one of the ignorable errors.
func (o *callOptions) ignorable(err error) bool {
	for _, target := range o.ignore {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// WithTable writes into the named table instead of resolving one from the
// record signature. The table is created from the first record if missing.
func WithTable(name string) Option {
	return func(o *callOptions) { o.table = name }
}

// WithInsertTime toggles the insert_time column on tables created by the call.
func WithInsertTime(on bool) Option {
	return func(o *callOptions) { o.implicit.InsertTime = on }
}

// WithUpdateTime toggles the update_time column on tables created by the
// call and the update_time stamp on plain updates.
func WithUpdateTime(on bool) Option {
	return func(o *callOptions) { o.implicit.UpdateTime = on }
}

// WithExport toggles the export column on tables created by the call.
func WithExport(on bool) Option {
	return func(o *callOptions) { o.implicit.Export = on }
}

// WithCommit commits (or defers the commit) at the end of the call.
func WithCommit(on bool) Option {
	return func(o *callOptions) { o.commit = on }
}

// WithAutoAlter toggles adding missing columns on demand.
func WithAutoAlter(on bool) Option {
	return func(o *callOptions) { o.autoAlter = on }
}

// WithAutoUpdateTime toggles the update_time stamp on conflict updates.
func WithAutoUpdateTime(on bool) Option {
	return func(o *callOptions) { o.autoUpdateTime = on }
}

// WithIgnore declares errors that skip a record instead of failing the call.
// Matching uses errors.Is, so the sentinels of the errors package can be
// passed directly. A skipped record is logged as a warning.
func WithIgnore(errs ...error) Option {
	return func(o *callOptions) { o.ignore = append(o.ignore, errs...) }
}
