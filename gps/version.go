// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// A Version is a concrete, totally ordered release version.
//
// Versions follow the public version scheme of Python packaging: an optional
// epoch ("1!"), a release tuple of any length, and optional pre ("a", "b",
// "rc"), post and dev parts, plus a local label ("+ubuntu.1"). Spellings that
// don't fit that scheme but are valid semver, such as "1.0.0-beta.x", are
// accepted through semver; their pre-release labels sort below alpha releases
// of the same release. The original text is retained for display.
//
// The zero Version is valid and means "no version"; it is what direct
// references that don't declare a version carry. It sorts below every real
// version and matches no constraint other than Any.
type Version struct {
	epoch   uint64
	release []uint64
	phase   prePhase
	preN    uint64
	hasPost bool
	post    uint64
	hasDev  bool
	dev     uint64
	local   string
	// sem holds the parsed form of semver-only pre-releases, for ordering
	// their labels against each other.
	sem *semver.Version
	raw string
}

type prePhase uint8

const (
	phaseNone prePhase = iota
	phaseSemver
	phaseAlpha
	phaseBeta
	phaseRC
)

var phaseTags = [...]string{
	phaseAlpha: "a",
	phaseBeta:  "b",
	phaseRC:    "rc",
}

var pepVersionRe = regexp.MustCompile(`^v?` +
	`(?:(\d+)!)?` +
	`(\d+(?:\.\d+)*)` +
	`(?:[-_.]?(a|alpha|b|beta|c|rc|pre|preview)[-_.]?(\d*))?` +
	`(?:-(\d+)|[-_.]?(post|rev|r)[-_.]?(\d*))?` +
	`(?:[-_.]?(dev)[-_.]?(\d*))?` +
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// NewVersion parses a version string.
func NewVersion(body string) (Version, error) {
	raw := strings.TrimSpace(body)
	s := strings.ToLower(raw)
	if s == "" {
		return Version{}, errors.New("empty version string")
	}

	m := pepVersionRe.FindStringSubmatch(s)
	if m == nil {
		return newSemverVersion(raw, s)
	}

	v := Version{raw: raw}
	var err error
	if m[1] != "" {
		if v.epoch, err = strconv.ParseUint(m[1], 10, 64); err != nil {
			return Version{}, errors.Wrapf(err, "invalid epoch in version %q", body)
		}
	}
	for _, seg := range strings.Split(m[2], ".") {
		n, err := strconv.ParseUint(seg, 10, 64)
		if err != nil {
			return Version{}, errors.Wrapf(err, "invalid release segment in version %q", body)
		}
		v.release = append(v.release, n)
	}

	if m[3] != "" {
		v.phase = phaseOf(m[3])
		if v.preN, err = parseNum(m[4]); err != nil {
			return Version{}, errors.Wrapf(err, "invalid pre-release number in version %q", body)
		}
	}
	switch {
	case m[5] != "":
		v.hasPost = true
		v.post, err = parseNum(m[5])
	case m[6] != "":
		v.hasPost = true
		v.post, err = parseNum(m[7])
	}
	if err != nil {
		return Version{}, errors.Wrapf(err, "invalid post-release number in version %q", body)
	}
	if m[8] != "" {
		v.hasDev = true
		if v.dev, err = parseNum(m[9]); err != nil {
			return Version{}, errors.Wrapf(err, "invalid dev release number in version %q", body)
		}
	}
	if m[10] != "" {
		v.local = strings.NewReplacer("_", ".", "-", ".").Replace(m[10])
	}
	return v, nil
}

// newSemverVersion handles semver spellings outside the packaging scheme.
func newSemverVersion(raw, s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, errors.Wrapf(err, "invalid version %q", raw)
	}
	v := Version{
		release: []uint64{sv.Major(), sv.Minor(), sv.Patch()},
		local:   strings.ToLower(sv.Metadata()),
		raw:     raw,
	}
	if sv.Prerelease() != "" {
		v.phase = phaseSemver
		v.sem = sv
	}
	return v, nil
}

func phaseOf(t string) prePhase {
	switch t {
	case "a", "alpha":
		return phaseAlpha
	case "b", "beta":
		return phaseBeta
	default:
		return phaseRC
	}
}

func parseNum(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool {
	return v.release == nil
}

// IsPrerelease reports whether v is a pre-release or dev release.
func (v Version) IsPrerelease() bool {
	return v.phase != phaseNone || v.hasDev
}

// IsPostrelease reports whether v is a post-release.
func (v Version) IsPostrelease() bool {
	return v.hasPost
}

// Compare returns -1, 0 or 1 as v sorts before, equal to, or after o.
func (v Version) Compare(o Version) int {
	switch {
	case v.IsZero() && o.IsZero():
		return 0
	case v.IsZero():
		return -1
	case o.IsZero():
		return 1
	}

	if c := cmpUint(v.epoch, o.epoch); c != 0 {
		return c
	}
	n := len(v.release)
	if len(o.release) > n {
		n = len(o.release)
	}
	for i := 0; i < n; i++ {
		if c := cmpUint(v.segment(i), o.segment(i)); c != 0 {
			return c
		}
	}

	// dev releases of a final sort below its pre-releases
	if c := cmpInt(v.preRank(), o.preRank()); c != 0 {
		return c
	}
	if v.phase == phaseSemver {
		if c := v.sem.Compare(o.sem); c != 0 {
			return c
		}
	} else if v.phase != phaseNone {
		if c := cmpUint(v.preN, o.preN); c != 0 {
			return c
		}
	}

	if c := cmpOptional(v.hasPost, v.post, o.hasPost, o.post, false); c != 0 {
		return c
	}
	if c := cmpOptional(v.hasDev, v.dev, o.hasDev, o.dev, true); c != 0 {
		return c
	}
	return cmpLocal(v.local, o.local)
}

// preRank orders the pre-release part: bare dev releases, then pre-release
// phases, then finals and post-releases.
func (v Version) preRank() int {
	switch {
	case v.phase != phaseNone:
		return int(v.phase)
	case v.hasDev && !v.hasPost:
		return -1
	}
	return int(phaseRC) + 1
}

func (v Version) segment(i int) uint64 {
	if i < len(v.release) {
		return v.release[i]
	}
	return 0
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpOptional compares optional numbers. An absent number sorts before every
// present one, or after if absentHigh is set.
func cmpOptional(ha bool, a uint64, hb bool, b uint64, absentHigh bool) int {
	switch {
	case ha && hb:
		return cmpUint(a, b)
	case ha == hb:
		return 0
	case ha == absentHigh:
		return -1
	}
	return 1
}

// cmpLocal orders local labels segment by segment; numeric segments sort
// above alphanumeric ones, and no label sorts lowest.
func cmpLocal(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.ParseUint(as[i], 10, 64)
		bn, berr := strconv.ParseUint(bs[i], 10, 64)
		switch {
		case aerr == nil && berr == nil:
			if c := cmpUint(an, bn); c != 0 {
				return c
			}
		case aerr == nil:
			return 1
		case berr == nil:
			return -1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(as), len(bs))
}

// Equal reports whether the two versions are equal in precedence.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// segs returns the number of release segments v was written with.
func (v Version) segs() int {
	return len(v.release)
}

// base returns the epoch and release of v, without pre, post, dev or local
// parts.
func (v Version) base() Version {
	if v.IsZero() {
		return v
	}
	b := Version{epoch: v.epoch, release: v.release}
	b.raw = b.canonical()
	return b
}

// public returns v without its local label.
func (v Version) public() Version {
	if v.local == "" {
		return v
	}
	v.local = ""
	v.raw = v.canonical()
	return v
}

// canonical renders v in normalized form. Versions that compare equal have
// the same canonical form.
func (v Version) canonical() string {
	if v.IsZero() {
		return ""
	}

	var b strings.Builder
	if v.epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.epoch)
	}
	n := len(v.release)
	for n > 1 && v.release[n-1] == 0 {
		n--
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(v.release[i], 10))
	}
	switch v.phase {
	case phaseNone:
	case phaseSemver:
		b.WriteString("-" + v.sem.Prerelease())
	default:
		fmt.Fprintf(&b, "%s%d", phaseTags[v.phase], v.preN)
	}
	if v.hasPost {
		fmt.Fprintf(&b, ".post%d", v.post)
	}
	if v.hasDev {
		fmt.Fprintf(&b, ".dev%d", v.dev)
	}
	if v.local != "" {
		b.WriteString("+" + v.local)
	}
	return b.String()
}

func (v Version) String() string {
	if v.IsZero() {
		return ""
	}
	if v.raw != "" {
		return v.raw
	}
	return v.canonical()
}

// GoString makes versions legible in test failure output.
func (v Version) GoString() string {
	return fmt.Sprintf("gps.Version(%q)", v.String())
}

// SortForUpgrade sorts a slice of Versions in descending order, so that the
// newest release comes first. Ties keep their original relative order.
func SortForUpgrade(vl []Version) {
	sort.SliceStable(vl, func(i, j int) bool {
		return vl[j].Less(vl[i])
	})
}
