// Package registry scans candidate files for section headers, groups them by
// the original filename they declare, and validates each group before it may
// be stitched.
//
// The registry never decides what to do about a problem: candidates that
// fail header decoding are surfaced as recoverable per-path conditions, and
// group-level conditions (missing, duplicate, excess, inconsistent) are
// enumerated for the caller's confirmation policy. The scan result is
// independent of the order candidates are seen in.
package registry

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/FrostyAceHook/stitch/pkg/section"
)

// Group-level failure conditions.
var (
	ErrIncompleteGroup   = errors.New("incomplete section group")
	ErrDuplicateSection  = errors.New("duplicate section")
	ErrInconsistentGroup = errors.New("inconsistent compression across group")
)

// ProblemKind enumerates the conditions a group can be in.
type ProblemKind int

const (
	// ProblemNoLast means no section asserts the last flag, so the group's
	// count cannot be resolved.
	ProblemNoLast ProblemKind = iota
	// ProblemMissing means an index in [0, count) has no section.
	ProblemMissing
	// ProblemDuplicate means two or more paths claim the same index.
	ProblemDuplicate
	// ProblemExcess means a section's index is at or beyond the resolved
	// count. Excess sections are excluded from the stitch but do not, on
	// their own, invalidate the group.
	ProblemExcess
	// ProblemInconsistent means the group's sections disagree on the
	// compression flag.
	ProblemInconsistent
)

// Problem is one enumerated condition of a group.
type Problem struct {
	Kind  ProblemKind
	Index uint32   // section index, where one applies
	Count uint32   // number of affected indices, for missing conditions
	Paths []string // offending candidate paths, where any apply
}

// Fatal reports whether the condition prevents stitching the group.
func (p Problem) Fatal() bool {
	return p.Kind != ProblemExcess
}

func (p Problem) String() string {
	switch p.Kind {
	case ProblemNoLast:
		return "no section is marked last"
	case ProblemMissing:
		if p.Count <= 1 {
			return fmt.Sprintf("section %d is missing", p.Index)
		}
		return fmt.Sprintf("%d sections are missing, the first at %d", p.Count, p.Index)
	case ProblemDuplicate:
		return fmt.Sprintf("section %d claimed by %s", p.Index, strings.Join(p.Paths, ", "))
	case ProblemExcess:
		return fmt.Sprintf("section %d is beyond the group's count", p.Index)
	case ProblemInconsistent:
		return "sections disagree on compression"
	}
	return "unknown condition"
}

// Group accumulates the candidate sections claiming one original filename.
type Group struct {
	Name string

	sections      map[uint32][]string
	count         uint32
	countKnown    bool
	sawCompressed bool
	sawPlain      bool
}

func newGroup(name string) *Group {
	return &Group{Name: name, sections: make(map[uint32][]string)}
}

// add records one decoded header. The earliest asserted last section wins:
// the resolved count only ever shrinks. A last claim at the maximum index is
// ignored, since its count of index+1 is not representable and would wrap to
// an empty group.
func (g *Group) add(path string, h section.Header) {
	g.sections[h.Index] = append(g.sections[h.Index], path)
	if h.Last() && h.Index != math.MaxUint32 {
		if !g.countKnown || h.Index+1 < g.count {
			g.count = h.Index + 1
		}
		g.countKnown = true
	}
	if h.Compressed() {
		g.sawCompressed = true
	} else {
		g.sawPlain = true
	}
}

// Problems enumerates every condition of the group, in a deterministic
// order. An empty result means the group is complete and consistent.
func (g *Group) Problems() []Problem {
	var problems []Problem

	if g.sawCompressed && g.sawPlain {
		problems = append(problems, Problem{Kind: ProblemInconsistent})
	}

	if !g.countKnown {
		problems = append(problems, Problem{Kind: ProblemNoLast})
	}

	indices := make([]uint32, 0, len(g.sections))
	for index := range g.sections {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	// The gap is derived from the sections actually present, never by
	// walking every index up to the count: a single hostile header can
	// claim a count near 2^32.
	if g.countKnown {
		var present, expect, firstMissing uint32
		gapFound := false
		for _, index := range indices {
			if index >= g.count {
				break
			}
			present++
			if !gapFound && index != expect {
				firstMissing = expect
				gapFound = true
			}
			expect = index + 1
		}
		if present < g.count {
			if !gapFound {
				firstMissing = expect
			}
			problems = append(problems, Problem{
				Kind:  ProblemMissing,
				Index: firstMissing,
				Count: g.count - present,
			})
		}
	}
	for _, index := range indices {
		if g.countKnown && index >= g.count {
			problems = append(problems, Problem{
				Kind:  ProblemExcess,
				Index: index,
				Paths: sortedCopy(g.sections[index]),
			})
			continue
		}
		if paths := g.sections[index]; len(paths) > 1 {
			problems = append(problems, Problem{
				Kind:  ProblemDuplicate,
				Index: index,
				Paths: sortedCopy(paths),
			})
		}
	}

	return problems
}

// ResolvedGroup is a complete, consistent group ready to stitch. Paths holds
// the section path for each index in ascending order; Excess lists sections
// beyond the resolved count, which must not take part in the stitch.
type ResolvedGroup struct {
	Name       string
	Count      uint32
	Compressed bool
	Paths      []string
	Excess     []string
}

// Resolve validates the group. On success the resolved form is returned,
// possibly alongside excess paths for the caller to leave out. On failure
// the error joins one wrapped sentinel per fatal condition.
func (g *Group) Resolve() (*ResolvedGroup, error) {
	problems := g.Problems()

	var errs []error
	for _, p := range problems {
		if !p.Fatal() {
			continue
		}
		switch p.Kind {
		case ProblemInconsistent:
			errs = append(errs, fmt.Errorf("%w: %q", ErrInconsistentGroup, g.Name))
		case ProblemNoLast, ProblemMissing:
			errs = append(errs, fmt.Errorf("%w: %q: %s", ErrIncompleteGroup, g.Name, p))
		case ProblemDuplicate:
			errs = append(errs, fmt.Errorf("%w: %q: %s", ErrDuplicateSection, g.Name, p))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	resolved := &ResolvedGroup{
		Name:       g.Name,
		Count:      g.count,
		Compressed: g.sawCompressed,
	}
	for index := uint32(0); index < g.count; index++ {
		resolved.Paths = append(resolved.Paths, g.sections[index][0])
	}
	for _, p := range problems {
		if p.Kind == ProblemExcess {
			resolved.Excess = append(resolved.Excess, p.Paths...)
		}
	}
	return resolved, nil
}

// InvalidCandidate is a path whose first bytes could not be read or did not
// decode as a section header. Always recoverable at the scan level.
type InvalidCandidate struct {
	Path string
	Err  error
}

// ScanResult is the outcome of scanning a set of candidate paths.
type ScanResult struct {
	Groups  map[string]*Group
	Invalid []InvalidCandidate
}

// ScannerConfig holds configuration for the scanner.
type ScannerConfig struct {
	// Logger receives per-candidate warnings. Nil means discard.
	Logger *logrus.Logger
}

// Scanner decodes candidate headers and builds stitch groups.
type Scanner struct {
	logger *logrus.Logger
}

// NewScanner creates a scanner.
func NewScanner(config ScannerConfig) *Scanner {
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Scanner{logger: logger}
}

// Scan attempts to decode a header from the first 128 bytes of every
// candidate. Failures are reported per path, never fatally. The result does
// not depend on the order of paths.
func (s *Scanner) Scan(paths []string) *ScanResult {
	result := &ScanResult{Groups: make(map[string]*Group)}

	sorted := sortedCopy(paths)
	for _, path := range sorted {
		header, err := s.readHeader(path)
		if err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("invalid section candidate")
			result.Invalid = append(result.Invalid, InvalidCandidate{Path: path, Err: err})
			continue
		}
		group := result.Groups[header.Name]
		if group == nil {
			group = newGroup(header.Name)
			result.Groups[header.Name] = group
		}
		group.add(path, header)
	}
	return result
}

func (s *Scanner) readHeader(path string) (section.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return section.Header{}, err
	}
	defer f.Close()

	buf := make([]byte, section.HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return section.Header{}, fmt.Errorf("read header: %w", err)
	}
	return section.Decode(buf)
}

// ExpandCandidates flattens the given paths into section file candidates: a
// directory contributes its immediate regular files, anything else passes
// through, and only paths with the section extension are kept.
func ExpandCandidates(paths []string) ([]string, error) {
	var all []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			// Missing paths stay candidates; the scan reports them.
			all = append(all, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				all = append(all, filepath.Join(path, entry.Name()))
			}
		}
	}

	var candidates []string
	for _, path := range all {
		if strings.HasSuffix(path, section.Ext) {
			candidates = append(candidates, path)
		}
	}
	return candidates, nil
}

func sortedCopy(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	return out
}
