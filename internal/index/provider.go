// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"context"
	"io/ioutil"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
	"github.com/sirupsen/logrus"
	"github.com/wheeldep/wheeldep/gps"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the prefetch parallelism used when
// ProviderOptions.Workers is zero.
const DefaultWorkers = 8

// ProviderOptions configure a Provider.
type ProviderOptions struct {
	// Cache, if non-nil, persists dependency lists across runs. The Provider
	// does not take ownership; the caller closes it.
	Cache *Cache
	// Logger receives diagnostics. If nil, diagnostics are discarded.
	Logger *logrus.Logger
	// Workers bounds the number of projects Prefetch reads at once.
	Workers int
}

// Provider is the default gps.Provider. It serves candidates from an Index
// with the following ranking policy:
//
//   - a requirement naming a direct reference gets exactly that artifact,
//     if the index knows it
//   - otherwise releases are offered newest first
//   - yanked releases are only acceptable when pinned with == or ===, or
//     when the requirement explicitly allows them
//   - pre-releases are only acceptable when the requirement allows them, or
//     when no final release satisfies it at all
//
// A Provider is safe for concurrent use by multiple solvers.
type Provider struct {
	idx     *Index
	cache   *Cache
	l       *logrus.Logger
	workers int

	// lifetime context; Close cancels it, aborting in-flight calls
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	// finals memoizes whether any final release satisfies a requirement.
	finals map[string]bool
}

var _ gps.Provider = (*Provider)(nil)

// NewProvider returns a Provider serving idx. The Provider stops serving
// requests when ctx is done or Close is called.
func NewProvider(ctx context.Context, idx *Index, opts ProviderOptions) *Provider {
	ctx, cf := context.WithCancel(ctx)
	p := &Provider{
		idx:     idx,
		cache:   opts.Cache,
		l:       opts.Logger,
		workers: opts.Workers,
		ctx:     ctx,
		cancel:  cf,
		finals:  make(map[string]bool),
	}
	if p.l == nil {
		p.l = logrus.New()
		p.l.Out = ioutil.Discard
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	return p
}

// Close stops the Provider. Calls in flight are cancelled, and later calls
// fail.
func (p *Provider) Close() {
	p.cancel()
}

// setUpCall combines the caller's context with the provider's lifetime
// context, and returns a to-be-deferred func to clean it up.
func (p *Provider) setUpCall(ctx context.Context) (context.Context, func(), error) {
	if err := p.ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "provider is closed")
	}
	cctx, cancelFunc := constext.Cons(ctx, p.ctx)
	return cctx, cancelFunc, nil
}

func (p *Provider) project(ctx context.Context, name string) (*Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.idx.Project(name)
}

// FindCandidates implements gps.Provider.
func (p *Provider) FindCandidates(ctx context.Context, req gps.Requirement) ([]gps.Candidate, error) {
	cctx, done, err := p.setUpCall(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	proj, err := p.project(cctx, req.ID.Name)
	if err != nil || proj == nil {
		return nil, err
	}

	if req.Ref != nil {
		d, has := proj.Direct[req.Ref.Fingerprint()]
		if !has {
			if p.l.Level >= logrus.DebugLevel {
				p.l.WithFields(logrus.Fields{
					"name":   req.ID.String(),
					"source": req.Ref.String(),
				}).Debug("Direct reference not in index")
			}
			return nil, nil
		}
		return []gps.Candidate{p.directCandidate(req.ID, d)}, nil
	}

	con := req.Constraint
	if con == nil {
		con = gps.Any()
	}
	cands := make([]gps.Candidate, 0, len(proj.Releases))
	for _, r := range proj.Releases {
		if con.Matches(r.Version) {
			cands = append(cands, p.releaseCandidate(req.ID, r))
		}
	}

	if p.l.Level >= logrus.DebugLevel {
		p.l.WithFields(logrus.Fields{
			"name":       req.ID.String(),
			"constraint": req.ConstraintString(),
			"count":      len(cands),
		}).Debug("Found candidates")
	}
	return cands, nil
}

func (p *Provider) releaseCandidate(id gps.Identifier, r Release) gps.Candidate {
	var src gps.Source = gps.IndexSource{
		Index:        p.idx.Name(),
		Yanked:       r.Yanked,
		YankedReason: r.YankedReason,
	}
	if id.IsExtra() {
		src = gps.ExtrasSource{Base: src}
	}
	return gps.Candidate{ID: id, Version: r.Version, Source: src}
}

func (p *Provider) directCandidate(id gps.Identifier, d Direct) gps.Candidate {
	src := d.Source
	if id.IsExtra() {
		src = gps.ExtrasSource{Base: src}
	}
	return gps.Candidate{ID: id, Version: d.Version, Source: src}
}

// IsSatisfiedBy implements gps.Provider. It applies gps.DefaultIsSatisfiedBy,
// but also admits a pre-release when no final release could satisfy req.
func (p *Provider) IsSatisfiedBy(req gps.Requirement, c gps.Candidate) bool {
	if gps.DefaultIsSatisfiedBy(req, c) {
		return true
	}
	if req.Ref != nil || req.Prereleases || !c.Version.IsPrerelease() {
		return false
	}

	loose := req
	loose.Prereleases = true
	if !gps.DefaultIsSatisfiedBy(loose, c) {
		return false
	}
	return !p.hasFinalMatch(req)
}

// hasFinalMatch reports whether any final release in the index satisfies
// req.
func (p *Provider) hasFinalMatch(req gps.Requirement) bool {
	key := req.ID.String() + "|" + req.ConstraintString() + "|" + strconv.FormatBool(req.Yanked)

	p.mu.Lock()
	defer p.mu.Unlock()
	if has, done := p.finals[key]; done {
		return has
	}

	var has bool
	if proj, err := p.idx.Project(req.ID.Name); err == nil && proj != nil {
		for _, r := range proj.Releases {
			if r.Version.IsPrerelease() {
				continue
			}
			if gps.DefaultIsSatisfiedBy(req, p.releaseCandidate(req.ID, r)) {
				has = true
				break
			}
		}
	}
	p.finals[key] = has
	return has
}

// GetDependencies implements gps.Provider. An extras candidate a[x] at
// version v depends on a==v (or on the same direct reference) plus the
// requirements of each of its extras.
func (p *Provider) GetDependencies(ctx context.Context, c gps.Candidate) ([]gps.Requirement, error) {
	cctx, done, err := p.setUpCall(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	proj, err := p.project(cctx, c.ID.Name)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, errors.Errorf("%s is not in index %s", c.ID.Base(), p.idx.Name())
	}

	var (
		requires []gps.Requirement
		extras   map[string][]gps.Requirement
		digest   string
	)
	if gps.IsDirect(c.Source) {
		d, has := proj.Direct[c.Source.Fingerprint()]
		if !has {
			return nil, errors.Errorf("%s is not in index %s", c, p.idx.Name())
		}
		requires, extras, digest = d.Requires, d.Extras, d.Digest()
	} else {
		r, has := proj.Release(c.Version)
		if !has {
			return nil, errors.Errorf("%s is not in index %s", c, p.idx.Name())
		}
		requires, extras, digest = r.Requires, r.Extras, r.Digest()
	}

	if p.cache != nil {
		if reqs, ok := p.cache.getDependencies(p.idx.Name(), c, digest); ok {
			return reqs, nil
		}
	}

	var deps []gps.Requirement
	if c.ID.IsExtra() {
		deps = append(deps, basePin(c))
		for _, x := range c.ID.Extras() {
			xr, has := extras[x]
			if !has && p.l.Level >= logrus.WarnLevel {
				p.l.WithFields(logrus.Fields{
					"name":    c.ID.Base().String(),
					"version": c.Version.String(),
					"extra":   x,
				}).Warn("Candidate does not provide extra")
			}
			deps = append(deps, xr...)
		}
	} else {
		deps = append(deps, requires...)
	}

	if p.cache != nil {
		p.cache.setDependencies(p.idx.Name(), c, digest, deps)
	}
	return deps, nil
}

// basePin is the requirement binding an extras candidate to its base.
func basePin(c gps.Candidate) gps.Requirement {
	base := c.ID.Base()
	if es, ok := c.Source.(gps.ExtrasSource); ok && gps.IsDirect(es.Base) {
		return gps.Requirement{ID: base, Constraint: gps.Any(), Ref: es.Base}
	}
	return gps.NewRequirement(base, gps.Exactly(c.Version))
}

// Identify implements gps.Provider.
func (p *Provider) Identify(c gps.Candidate) gps.Identifier {
	return c.ID
}

// Prefetch reads the named projects in parallel, so that a solve that
// follows does not wait on them one at a time. Unknown names are ignored.
func (p *Provider) Prefetch(ctx context.Context, names []string) error {
	cctx, done, err := p.setUpCall(ctx)
	if err != nil {
		return err
	}
	defer done()

	g, gctx := errgroup.WithContext(cctx)
	g.SetLimit(p.workers)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := p.idx.Project(name)
			return errors.Wrapf(err, "prefetching %s", name)
		})
	}
	return g.Wait()
}
