/*
Package semtok turns parser output into classification spans for an editor.

🎨 Classification Overview:
--------------------------
Every highlighted range is a Token: a category plus a byte span over the
document. Message templates and expressions are parsed with offsets relative
to the literal they came from; semtok shifts them onto the document.

	Source line                     Parser output            Tokens
	     |                               |                      |
	     v                               v                      v
	+-----------+   literal text   +------------+   base   +-----------+
	| hostlex   | ---------------> | msgtmpl /  | -------> | semtok    |
	| + callsite|                  | expr       |  offset  | Token     |
	+-----------+                  +------------+          +-----------+

Categories:
----------
  - brace / punctuation    { } , :
  - property / positional  {Name} {0}
  - destructure / stringify operators  @ $
  - alignment / format     {Name,-10:json}
  - expression.*           property, operator, function, keyword, literal,
    directive, builtin and punctuation regions of the expression language

Legend() lists category names in TokenType order, the same shape an LSP
semantic tokens legend takes.
*/
package semtok
