/*
Call-site Shapes:
----------------
Every way a template can be handed to the logging library, and which string
argument of the call carries it:

	logger.Information("User {Id}", id)                    ShapeMember
	log.ForContext<Api>().Warning("Slow {Ms}", ms)         ShapeContext
	logger.BeginScope("Order {OrderId}", id)               ShapeScope
	.WriteTo.Console(outputTemplate: "[{Level:u3}] {Message}")
	                 ^^^^^^^^^^^^^^^                       ShapeOutputTemplate
	.Filter.ByExcluding("RequestPath like '/health%'")     ShapeFilter
	.Enrich.WithComputed("Short", "Substring(@m, 0, 10)")  ShapeComputed (2nd string)
	new ExpressionTemplate("[{@t:HH:mm:ss}] {@m}\n")       ShapeExpressionTemplate
*/
package callsite

// Syntax is the language a template argument is written in.
type Syntax int

const (
	SyntaxMessageTemplate Syntax = iota
	SyntaxExpression
	SyntaxExpressionTemplate
)

func (s Syntax) String() string {
	switch s {
	case SyntaxMessageTemplate:
		return "message-template"
	case SyntaxExpression:
		return "expression"
	case SyntaxExpressionTemplate:
		return "expression-template"
	default:
		return "unknown"
	}
}

type Shape int

const (
	ShapeMember Shape = iota
	ShapeContext
	ShapeScope
	ShapeOutputTemplate
	ShapeFilter
	ShapeComputed
	ShapeExpressionTemplate
)

func (s Shape) String() string {
	switch s {
	case ShapeMember:
		return "member"
	case ShapeContext:
		return "context"
	case ShapeScope:
		return "scope"
	case ShapeOutputTemplate:
		return "output-template"
	case ShapeFilter:
		return "filter"
	case ShapeComputed:
		return "computed"
	case ShapeExpressionTemplate:
		return "expression-template"
	default:
		return "unknown"
	}
}

func (s Shape) Syntax() Syntax {
	switch s {
	case ShapeFilter, ShapeComputed:
		return SyntaxExpression
	case ShapeExpressionTemplate:
		return SyntaxExpressionTemplate
	default:
		return SyntaxMessageTemplate
	}
}

// TemplateArg is how many string literal arguments precede the template.
func (s Shape) TemplateArg() int {
	if s == ShapeComputed {
		return 1
	}
	return 0
}

// opensCall is false for shapes that end right before the literal instead
// of at an opening parenthesis.
func (s Shape) opensCall() bool {
	return s != ShapeOutputTemplate
}
