// Package normalize canonicalizes the free text found in ledgers and LLM
// answers: class indicators, account numbers and markdown artifacts.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Veraticus/transco/internal/model"
)

// Classifier maps a class indicator onto an account class.
type Classifier interface {
	Classify(raw any) model.AccountClass
}

// NewClassifier returns the classifier registered under name.
func NewClassifier(name string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first_letter", "first-letter":
		return FirstLetter{}, nil
	case "strict":
		return Strict{}, nil
	default:
		return nil, fmt.Errorf("unknown class classifier: %s", name)
	}
}

// FirstLetter classifies by the first alphabetic character: 'b' is BS and
// 'p' is P&L. Anything else is passed through lower-cased.
type FirstLetter struct{}

// Classify implements Classifier.
func (FirstLetter) Classify(raw any) model.AccountClass {
	text := strings.ToLower(stringify(raw))

	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		switch r {
		case 'b':
			return model.ClassBS
		case 'p':
			return model.ClassPL
		}
		break
	}

	return model.AccountClass(text)
}

// strictAliases are the indicators accepted by the Strict classifier.
var strictAliases = map[string]model.AccountClass{
	"bs":                 model.ClassBS,
	"b/s":                model.ClassBS,
	"b.s.":               model.ClassBS,
	"balance sheet":      model.ClassBS,
	"balance-sheet":      model.ClassBS,
	"bilan":              model.ClassBS,
	"pl":                 model.ClassPL,
	"p&l":                model.ClassPL,
	"p/l":                model.ClassPL,
	"p & l":              model.ClassPL,
	"profit and loss":    model.ClassPL,
	"profit & loss":      model.ClassPL,
	"income statement":   model.ClassPL,
	"compte de résultat": model.ClassPL,
	"compte de resultat": model.ClassPL,
	"résultat":           model.ClassPL,
	"resultat":           model.ClassPL,
}

// Strict only accepts a fixed alias list, so labels such as "provisions"
// or "bank" are not mistaken for a class.
type Strict struct{}

// Classify implements Classifier.
func (Strict) Classify(raw any) model.AccountClass {
	text := strings.ToLower(strings.TrimSpace(stringify(raw)))
	text = strings.Join(strings.Fields(text), " ")

	if class, ok := strictAliases[text]; ok {
		return class
	}

	return model.AccountClass(text)
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case model.AccountClass:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
