package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// Tag is one compatibility tag of a binary artifact: interpreter, ABI and
// platform, e.g. "cp311-cp311-manylinux_x86_64" or "py3-none-any".
type Tag struct {
	Interpreter string
	ABI         string
	Platform    string
}

// ParseTag parses an "interpreter-abi-platform" tag. The platform component
// may itself contain dashes.
func ParseTag(raw string) (Tag, error) {
	parts := strings.SplitN(raw, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Tag{}, zerr.With(zerr.New("malformed compatibility tag"), "tag", raw)
	}
	return Tag{Interpreter: parts[0], ABI: parts[1], Platform: parts[2]}, nil
}

// String renders the tag in its "interpreter-abi-platform" form.
func (t Tag) String() string {
	return t.Interpreter + "-" + t.ABI + "-" + t.Platform
}

// IsAbstract reports whether the tag is implementation-family generic:
// any-platform, any-ABI ("py3-none-any" style).
func (t Tag) IsAbstract() bool {
	return t.Platform == "any" && t.ABI == "none"
}

// Family returns the interpreter family prefix of the tag's interpreter
// component ("py" for "py3", "cp" for "cp311").
func (t Tag) Family() string {
	i := 0
	for i < len(t.Interpreter) && (t.Interpreter[i] < '0' || t.Interpreter[i] > '9') {
		i++
	}
	return t.Interpreter[:i]
}

// TargetEnvironment is an immutable description of one execution context:
// interpreter implementation and version, platform, ABI, the variable
// bindings markers are evaluated against, and the ranked compatibility tags
// (most specific first) used for candidate filtering and precedence.
//
// Construct with NewTargetEnvironment; a hand-built value with no Tags ranks
// nothing as compatible.
type TargetEnvironment struct {
	// Name labels the environment in locks and logs, e.g. "cp311-linux".
	Name string `json:"name"`
	// Implementation is the interpreter implementation code, e.g. "cp".
	Implementation string `json:"implementation"`
	// Version is the interpreter version, major.minor.patch.
	Version string `json:"version"`
	// Platform is the platform tag component, e.g. "manylinux_x86_64".
	Platform string `json:"platform"`
	// ABI is the native ABI tag component, e.g. "cp311".
	ABI string `json:"abi"`
	// MarkerBindings are the variable values marker expressions see.
	MarkerBindings map[string]string `json:"markers"`
	// Tags is the ranked compatibility tag list, most specific first.
	Tags []Tag `json:"tags"`
}

// NewTargetEnvironment builds a target environment and derives its ranked
// compatibility tags and default marker bindings.
func NewTargetEnvironment(implementation, version, platform, abi string) (*TargetEnvironment, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return nil, zerr.Wrap(err, "target environment version")
	}

	short := fmt.Sprintf("%s%d%d", implementation, v.Major(), v.Minor())
	major := fmt.Sprintf("py%d", v.Major())

	t := &TargetEnvironment{
		Name:           fmt.Sprintf("%s-%s", short, platform),
		Implementation: implementation,
		Version:        v.String(),
		Platform:       platform,
		ABI:            abi,
		MarkerBindings: map[string]string{
			"implementation_name": implementation,
			"platform":            platform,
			"interpreter_version": fmt.Sprintf("%d.%d", v.Major(), v.Minor()),
			"full_version":        v.String(),
		},
		Tags: []Tag{
			{Interpreter: short, ABI: abi, Platform: platform},
			{Interpreter: short, ABI: "abi3", Platform: platform},
			{Interpreter: short, ABI: "none", Platform: platform},
			{Interpreter: major, ABI: "none", Platform: platform},
			{Interpreter: major, ABI: "none", Platform: "any"},
		},
	}
	return t, nil
}

// WithBindings returns a copy of the target with extra marker bindings laid
// over the derived defaults. The receiver is not modified.
func (t *TargetEnvironment) WithBindings(extra map[string]string) *TargetEnvironment {
	clone := *t
	clone.MarkerBindings = make(map[string]string, len(t.MarkerBindings)+len(extra))
	for k, v := range t.MarkerBindings {
		clone.MarkerBindings[k] = v
	}
	for k, v := range extra {
		clone.MarkerBindings[k] = v
	}
	return &clone
}

// TagRank returns the precedence index of the best-ranked target tag the
// artifact tag matches, or -1 if it matches none. Lower is better.
func (t *TargetEnvironment) TagRank(tag Tag) int {
	for i, own := range t.Tags {
		if own == tag {
			return i
		}
		// An abstract tag matches any target of the same interpreter family.
		if tag.IsAbstract() && own.IsAbstract() && tag.Family() == own.Family() {
			return i
		}
	}
	return -1
}
