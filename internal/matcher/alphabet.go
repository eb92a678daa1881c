package matcher

// Symbol labels an automaton transition: a positive value is a literal rune,
// a negative value is an interned multi-character symbol such as a tag.
type Symbol int32

// NoSymbol is never the label of a transition.
const NoSymbol Symbol = 0

// Reserved symbol names, interned first by every Alphabet.
const (
	AnyCharName   = "<ANY_CHAR>"
	AnyTagName    = "<ANY_TAG>"
	LookAheadName = "<LOOK:AHEAD>"
)

// Reserved symbols.
const (
	AnyChar   Symbol = -1
	AnyTag    Symbol = -2
	LookAhead Symbol = -3
)

// Structural symbols, matched around and between words.
const (
	WordStart Symbol = '^'
	WordEnd   Symbol = '$'
	Space     Symbol = ' '
)

// Alphabet interns tags and reserved names as negative symbols.
type Alphabet struct {
	names   []string
	symbols map[string]Symbol
}

// NewAlphabet returns an alphabet holding only the reserved symbols.
func NewAlphabet() *Alphabet {
	var alpha Alphabet
	alpha.Intern(AnyCharName)
	alpha.Intern(AnyTagName)
	alpha.Intern(LookAheadName)
	return &alpha
}

// Intern returns the symbol for name, defining it if necessary.
func (alpha *Alphabet) Intern(name string) Symbol {
	sym, defined := alpha.symbols[name]
	if !defined {
		if alpha.symbols == nil {
			alpha.symbols = make(map[string]Symbol)
		}
		sym = -Symbol(len(alpha.names) + 1)
		alpha.names = append(alpha.names, name)
		alpha.symbols[name] = sym
	}
	return sym
}

// Lookup returns the symbol for name, if it has been interned.
func (alpha *Alphabet) Lookup(name string) (Symbol, bool) {
	sym, defined := alpha.symbols[name]
	return sym, defined
}

// Name returns the name of an interned symbol, or the literal rune of a
// positive one.
func (alpha *Alphabet) Name(sym Symbol) string {
	if sym > 0 {
		return string(rune(sym))
	}
	if i := int(-sym) - 1; i >= 0 && i < len(alpha.names) {
		return alpha.names[i]
	}
	return ""
}

// Names returns every interned name, in symbol order.
func (alpha *Alphabet) Names() []string { return alpha.names }

// Len returns the number of interned names.
func (alpha *Alphabet) Len() int { return len(alpha.names) }
