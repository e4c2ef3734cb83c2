package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrUnknownStyle is returned by ParseStyle for names outside Styles.
var ErrUnknownStyle = errors.New("unknown playing style")

// Weights scale each evaluation term.
type Weights struct {
	Material      float64
	Activity      float64
	PawnStructure float64
	Space         float64
	Initiative    float64
	KingSafety    float64
	Development   float64
	Prophylaxis   float64
}

// Style is a named set of weights.
type Style struct {
	Name    string
	Weights Weights
}

// Styles lists the playing styles, the default first.
var Styles = []Style{
	{"classical", Weights{1.0, 0.5, 0.5, 0.3, 0.4, 0.6, 0.3, 0.4}},
	{"attacking", Weights{0.8, 0.8, 0.4, 0.4, 1.0, 0.3, 0.2, 0.2}},
	{"tactical", Weights{0.7, 1.0, 0.3, 0.3, 1.2, 0.4, 0.2, 0.2}},
	{"positional", Weights{1.0, 0.6, 0.8, 0.6, 0.3, 0.5, 0.4, 0.6}},
	{"technical", Weights{1.0, 0.4, 0.6, 0.4, 0.2, 0.8, 0.3, 0.5}},
}

// DefaultStyle is the style used when none is configured.
var DefaultStyle = Styles[0]

// StyleNames returns the names of all styles, in order.
func StyleNames() []string {
	return lo.Map(Styles, func(s Style, _ int) string { return s.Name })
}

// ParseStyle looks a style up by name, ignoring case.
func ParseStyle(name string) (Style, error) {
	s, ok := lo.Find(Styles, func(s Style) bool {
		return strings.EqualFold(s.Name, strings.TrimSpace(name))
	})
	if !ok {
		return DefaultStyle, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
	}
	return s, nil
}
