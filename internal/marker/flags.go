package marker

import "strings"

// BaseClass is the label class every marker carries.
const BaseClass = "marker-point"

// Flags is the set of style flags applied to a marker label.
type Flags uint8

const (
	Hovered Flags = 1 << iota
	Faded
	Spiderfied
)

// rendered order of the flag classes
var flagClasses = []struct {
	flag  Flags
	class string
}{
	{Hovered, "PointHoverState"},
	{Faded, "fadePins"},
	{Spiderfied, "spiderfied"},
}

// Has reports whether every flag in o is set.
func (f Flags) Has(o Flags) bool { return f&o == o }

// With returns f with o set.
func (f Flags) With(o Flags) Flags { return f | o }

// Without returns f with o cleared.
func (f Flags) Without(o Flags) Flags { return f &^ o }

// Names returns the CSS class of each set flag.
func (f Flags) Names() []string {
	names := make([]string, 0, len(flagClasses))
	for _, fc := range flagClasses {
		if f.Has(fc.flag) {
			names = append(names, fc.class)
		}
	}
	return names
}

// LabelClass renders the class attribute for a label with base class base.
func LabelClass(base string, f Flags) string {
	if base == "" {
		base = BaseClass
	}
	return strings.Join(append([]string{base}, f.Names()...), " ")
}

func (f Flags) String() string {
	return LabelClass(BaseClass, f)
}
