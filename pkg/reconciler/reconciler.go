package reconciler

import (
	"regexp"
	"strings"

	"github.com/traingraph/traingraph/pkg/timetable"
)

// Matcher is one pure strategy for resolving a timetable location label onto
// a route distance. Strategies are tried in order, each either matching
// definitively or passing.
type Matcher interface {
	Name() string
	Match(label string) (float64, bool)
}

// Reconciler maps location labels from the timetable source onto the route's
// distance axis. Resolution is referentially transparent - a label and a
// route table always produce the same answer.
type Reconciler struct {
	Table *timetable.RouteTable

	matchers []Matcher
}

func New(table *timetable.RouteTable) *Reconciler {
	byLabel := map[string]float64{}
	byNormalized := map[string]float64{}
	byCode := map[string]float64{}

	for _, location := range table.Locations {
		byLabel[location.Label] = location.Distance
		byNormalized[normalizeLabel(location.Label)] = location.Distance
		if location.Code != "" {
			byCode[strings.ToUpper(location.Code)] = location.Distance
		}
	}

	return &Reconciler{
		Table: table,
		matchers: []Matcher{
			exactMatcher{byLabel: byLabel},
			strippedMatcher{byNormalized: byNormalized},
			codeTokenMatcher{byCode: byCode},
		},
	}
}

// Resolve returns the distance for a location label along with the name of
// the matcher that resolved it. A false return means the label is not on the
// route - the caller records a gap and drops the stop.
func (reconciler *Reconciler) Resolve(label string) (float64, string, bool) {
	for _, matcher := range reconciler.matchers {
		if distance, ok := matcher.Match(label); ok {
			return distance, matcher.Name(), true
		}
	}

	return 0, "", false
}

type exactMatcher struct {
	byLabel map[string]float64
}

func (matcher exactMatcher) Name() string { return "exact" }

func (matcher exactMatcher) Match(label string) (float64, bool) {
	distance, ok := matcher.byLabel[strings.TrimSpace(label)]
	return distance, ok
}

// strippedMatcher removes bracketed segments and a trailing parenthetical
// qualifier, collapses whitespace and folds case before retrying the lookup.
type strippedMatcher struct {
	byNormalized map[string]float64
}

func (matcher strippedMatcher) Name() string { return "stripped" }

func (matcher strippedMatcher) Match(label string) (float64, bool) {
	distance, ok := matcher.byNormalized[normalizeLabel(label)]
	return distance, ok
}

// codeTokenMatcher resolves labels that embed a recognisable location code,
// like "Acton West (ACTONW)", against the codes registered in the route
// table.
type codeTokenMatcher struct {
	byCode map[string]float64
}

func (matcher codeTokenMatcher) Name() string { return "code" }

var codeTokenRegex = regexp.MustCompile(`[(\[]([A-Za-z0-9]{3,7})[)\]]`)

func (matcher codeTokenMatcher) Match(label string) (float64, bool) {
	for _, match := range codeTokenRegex.FindAllStringSubmatch(label, -1) {
		if distance, ok := matcher.byCode[strings.ToUpper(match[1])]; ok {
			return distance, true
		}
	}

	return 0, false
}

var bracketSegmentRegex = regexp.MustCompile(`\[[^\]]*\]`)
var trailingParenRegex = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

func normalizeLabel(label string) string {
	label = bracketSegmentRegex.ReplaceAllString(label, "")
	label = trailingParenRegex.ReplaceAllString(label, "")
	label = strings.Join(strings.Fields(label), " ")

	return strings.ToLower(label)
}
