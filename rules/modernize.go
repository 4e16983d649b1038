//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestingContext flags context.Background() and context.TODO() in tests.
// t.Context() is canceled when the test finishes, which also stops the
// label writer goroutines of a failed test.
//
// See: https://pkg.go.dev/testing#T.Context
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$fn(context.Background(), $*_)`,
		`$fn(context.TODO(), $*_)`,
		`$ctx := context.Background()`,
		`$ctx := context.TODO()`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead (Go 1.24+)")
}

// RangeOverInt flags counted loops over a constant bound that can range
// over the integer directly.
//
// See: https://go.dev/ref/spec#For_range
func RangeOverInt(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $n; $i++ { $*body }`).
		Where(m["n"].Const || m["n"].Node.Is(`SelectorExpr`)).
		Report("use for $i := range $n (Go 1.22+)").
		Suggest("for $i := range $n { $body }")
}

// SortSlices flags the sort package where the slices package applies.
//
// See: https://pkg.go.dev/slices#SortStableFunc
func SortSlices(m dsl.Matcher) {
	m.Match(`sort.Slice($s, $_)`).
		Report("use slices.SortFunc($s, cmp) (Go 1.21+)")

	m.Match(`sort.SliceStable($s, $_)`).
		Report("use slices.SortStableFunc($s, cmp) (Go 1.21+)")

	m.Match(`sort.Strings($s)`).
		Report("use slices.Sort($s) (Go 1.21+)").
		Suggest("slices.Sort($s)")
}

// ErrgroupWithoutLimit flags errgroups that fan out one goroutine per item
// without SetLimit, which opens every label file at once on large datasets.
func ErrgroupWithoutLimit(m dsl.Matcher) {
	m.Import("golang.org/x/sync/errgroup")

	m.Match(`$g, $_ := errgroup.WithContext($_); for $*_ { $*_ }`).
		Report("call $g.SetLimit before starting goroutines in a loop")
}

// StringsSplitSeq flags strings.Split used only to iterate.
//
// See: https://pkg.go.dev/strings#SplitSeq
func StringsSplitSeq(m dsl.Matcher) {
	m.Match(`for _, $x := range strings.Split($s, $sep) { $*body }`).
		Report("use for $x := range strings.SplitSeq($s, $sep) (Go 1.24+)").
		Suggest("for $x := range strings.SplitSeq($s, $sep) { $body }")
}
