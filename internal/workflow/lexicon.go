package workflow

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/MrJamesThe3rd/khata/internal/intent"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon is the keyword vocabulary used to classify short replies.
type Lexicon struct {
	Confirm []string `yaml:"confirm"`
	Cancel  []string `yaml:"cancel"`
	Credit  []string `yaml:"credit"`
	Cash    []string `yaml:"cash"`
	Stock   []string `yaml:"stock"`
	Return  []string `yaml:"return"`
	Filler  []string `yaml:"filler"`
}

func DefaultLexicon() *Lexicon {
	var l Lexicon
	if err := yaml.Unmarshal(defaultLexicon, &l); err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}

	return &l
}

// LoadLexicon reads a lexicon file. Lists missing from the file keep their
// default words.
func LoadLexicon(path string) (*Lexicon, error) {
	l := DefaultLexicon()
	if path == "" {
		return l, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}

	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}

	for _, f := range []struct{ dst, src *[]string }{
		{&l.Confirm, &override.Confirm},
		{&l.Cancel, &override.Cancel},
		{&l.Credit, &override.Credit},
		{&l.Cash, &override.Cash},
		{&l.Stock, &override.Stock},
		{&l.Return, &override.Return},
		{&l.Filler, &override.Filler},
	} {
		if len(*f.src) > 0 {
			*f.dst = *f.src
		}
	}

	return l, nil
}

func clean(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimRightFunc(text, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) })

	return strings.Join(strings.Fields(text), " ")
}

func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// has reports whether text contains any of the phrases. Single words must
// match a whole word.
func has(text string, phrases []string) bool {
	ws := tokens(text)
	lower := " " + strings.Join(ws, " ") + " "

	for _, p := range phrases {
		if strings.Contains(lower, " "+strings.ToLower(p)+" ") {
			return true
		}
	}

	return false
}

func oneOf(word string, list []string) bool {
	for _, w := range list {
		if strings.EqualFold(w, word) {
			return true
		}
	}

	return false
}

// Answer reports whether the whole message is a yes or a no.
func (l *Lexicon) Answer(text string) (confirmed, ok bool) {
	t := clean(text)

	switch {
	case oneOf(t, l.Confirm):
		return true, true
	case oneOf(t, l.Cancel):
		return false, true
	default:
		return false, false
	}
}

func (l *Lexicon) PaymentMethod(text string) intent.PaymentMethod {
	switch {
	case has(text, l.Credit):
		return intent.Credit
	case has(text, l.Cash):
		return intent.Cash
	default:
		return intent.Unknown
	}
}

// IsStockQuery reports a stock lookup. Messages carrying quantities are
// transactions that merely mention stock.
func (l *Lexicon) IsStockQuery(text string) bool {
	if strings.ContainsFunc(text, unicode.IsDigit) {
		return false
	}

	return has(text, l.Stock)
}

func (l *Lexicon) IsReturn(text string) bool {
	return has(text, l.Return)
}

// StockSubject strips stock keywords and filler, leaving the item asked about.
func (l *Lexicon) StockSubject(text string) string {
	var kept []string

	for _, w := range tokens(text) {
		if oneOf(w, l.Stock) || oneOf(w, l.Filler) {
			continue
		}

		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}
