package registry

import (
	"fmt"
	"path"
	"strings"

	"github.com/ternarybob/sonargate/internal/interfaces"
)

const (
	StrategySubstring = "substring"
	StrategySegment   = "segment"
)

// NewMatchStrategy returns the strategy registered under name
func NewMatchStrategy(name string) (interfaces.MatchStrategy, error) {
	switch name {
	case "", StrategySubstring:
		return SubstringMatch{}, nil
	case StrategySegment:
		return SegmentMatch{}, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q", name)
	}
}

// SubstringMatch compares by case-insensitive containment. The registry is
// authored by hand, so declared names are frequently decorated or partial.
type SubstringMatch struct{}

func (SubstringMatch) Name() string { return StrategySubstring }

func (SubstringMatch) MatchName(declared, observed string) bool {
	if observed == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(normalize(declared)), strings.ToUpper(observed))
}

func (SubstringMatch) MatchPath(p, prefix string) bool {
	prefix = normalize(prefix)
	if prefix == "" {
		return true
	}
	return strings.Contains(strings.ToUpper(normalize(p)), strings.ToUpper(prefix))
}

// SegmentMatch compares whole path segments: the marker stem must equal the
// declared solution's stem and paths must share a leading run of segments.
type SegmentMatch struct{}

func (SegmentMatch) Name() string { return StrategySegment }

func (SegmentMatch) MatchName(declared, observed string) bool {
	base := path.Base(normalize(declared))
	stem := strings.TrimSuffix(base, path.Ext(base))
	return observed != "" && strings.EqualFold(stem, observed)
}

func (SegmentMatch) MatchPath(p, prefix string) bool {
	prefix = strings.Trim(normalize(prefix), "/")
	if prefix == "" {
		return true
	}
	p = strings.Trim(normalize(p), "/") + "/"
	return strings.HasPrefix(strings.ToLower(p), strings.ToLower(prefix)+"/")
}

func normalize(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
