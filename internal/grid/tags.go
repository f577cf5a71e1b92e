package grid

import "fmt"

// Kind is a category of out-of-band cell content replaced by a tag.
type Kind int

// Tag kinds in the order they are appended to a cell.
const (
	KindFormula Kind = iota
	KindComment
	KindHyperlink
)

var kindNames = [...]string{"formula", "comment", "hyperlink"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Prefixes holds the letter placed before the sequence number of each kind.
type Prefixes struct {
	Formula   string
	Comment   string
	Hyperlink string
}

// DefaultPrefixes produces tags such as [f1], [c1] and [h1].
var DefaultPrefixes = Prefixes{Formula: "f", Comment: "c", Hyperlink: "h"}

func (p Prefixes) of(k Kind) string {
	switch k {
	case KindFormula:
		return p.Formula
	case KindComment:
		return p.Comment
	default:
		return p.Hyperlink
	}
}

// Reference is one allocated tag and the content it stands for.
type Reference struct {
	Tag     string
	Seq     int
	Content string
}

// Allocator hands out tags for one sheet. Each kind has its own counter
// starting at 1; numbers are never reused.
type Allocator struct {
	prefixes Prefixes
	refs     [3][]Reference
}

// NewAllocator returns an allocator using the given prefixes.
func NewAllocator(p Prefixes) *Allocator {
	return &Allocator{prefixes: p}
}

// Assign records content under the next tag of kind and returns the tag.
func (a *Allocator) Assign(k Kind, content string) string {
	seq := len(a.refs[k]) + 1
	tag := fmt.Sprintf("[%s%d]", a.prefixes.of(k), seq)
	a.refs[k] = append(a.refs[k], Reference{Tag: tag, Seq: seq, Content: content})
	return tag
}

// References returns the tags of kind in ascending sequence order.
func (a *Allocator) References(k Kind) []Reference {
	out := make([]Reference, len(a.refs[k]))
	copy(out, a.refs[k])
	return out
}

// Count returns how many tags of kind have been assigned.
func (a *Allocator) Count(k Kind) int {
	return len(a.refs[k])
}
