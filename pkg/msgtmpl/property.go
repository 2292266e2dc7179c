/*
Message Template Properties:
---------------------------
A message template is ordinary text with {placeholder} holes:

	"User {@User,-10:json} logged in after {Elapsed:0.00} ms ({0})"
	      ^^            ^    ^
	      ||            |    +-- format clause   (":json")
	      ||            +------- alignment clause (",-10")
	      |+-------------------- name             ("User")
	      +--------------------- operator         ('@' destructure, '$' stringify)

	{{ and }} are escaped literal braces and never open or close a property.
*/
package msgtmpl

import "fmt"

// PropertyType is the capture behaviour a placeholder requests.
type PropertyType int

const (
	// Standard is a named property without an operator: {Name}
	Standard PropertyType = iota

	// Destructured requests structural capture: {@Name}
	Destructured

	// Stringified forces string conversion: {$Name}
	Stringified

	// Positional references an argument by index: {0}
	Positional
)

func (t PropertyType) String() string {
	switch t {
	case Standard:
		return "standard"
	case Destructured:
		return "destructured"
	case Stringified:
		return "stringified"
	case Positional:
		return "positional"
	default:
		return "unknown"
	}
}

// Property is one {…} placeholder found in a template. All indices are byte
// offsets into the template string; optional clauses use -1 when absent.
type Property struct {
	Name string
	Type PropertyType

	// StartIndex and Length cover the name only.
	StartIndex int
	Length     int

	BraceStartIndex int
	// BraceEndIndex is -1 for a partial property (navigation policy only).
	BraceEndIndex int

	// OperatorIndex is the index of '@' or '$'.
	OperatorIndex int

	// Format is the text after ':' and FormatStartIndex its first byte.
	Format           string
	FormatStartIndex int

	// Alignment is the text after ',' and AlignmentStartIndex its first byte.
	Alignment           string
	AlignmentStartIndex int
}

func (p Property) IsPartial() bool {
	return p.BraceEndIndex < 0
}

func (p Property) HasOperator() bool {
	return p.OperatorIndex >= 0
}

func (p Property) HasFormat() bool {
	return p.FormatStartIndex >= 0
}

func (p Property) HasAlignment() bool {
	return p.AlignmentStartIndex >= 0
}

func (p Property) String() string {
	return fmt.Sprintf("%s(%s)@%d", p.Type, p.Name, p.StartIndex)
}
