package deps

import (
	"testing"

	"github.com/quillnotes/quill/pkg/parse"
	"github.com/quillnotes/quill/pkg/testutil"
	"github.com/quillnotes/quill/pkg/tt"
)

func mustParse(src string) parse.Node {
	return testutil.Must1(parse.Parse("test", src))
}

func TestUsesSelfReference(t *testing.T) {
	selfRef := func(src string) bool { return UsesSelfReference(mustParse(src)) }
	tt.Test(t, tt.Fn("UsesSelfReference", selfRef).ArgsFmt("(%q)"), tt.Table{
		Args("count find(/x/)").Rets(false),
		Args(`join(", ", map({x -> x.name}, find(/x/)))`).Rets(false),
		Args(".name").Rets(true),
		Args("view .parent").Rets(true),
		Args("f(1, .path)").Rets(true),
		// once memoizes per note, so it always keys per note.
		Args("once[date]").Rets(true),
		// A one-argument append targets the current note.
		Args(`once[append("line")]`).Rets(true),
		Args(`once[append(first(find(/inbox/)), "line")]`).Rets(false),
		Args(`refresh[time.gt("12:00")]`).Rets(false),
	})
}

func TestEstimate(t *testing.T) {
	estimate := func(src string) [5]bool {
		s := Estimate(mustParse(src))
		return [5]bool{s.Existence, s.Paths, s.Modified, s.Created, s.Viewed}
	}
	tt.Test(t, tt.Fn("Estimate", estimate).ArgsFmt("(%q)"), tt.Table{
		Args("5").Rets([5]bool{}),
		// find scans the whole note set.
		Args("count find(/x/)").Rets([5]bool{true, true, false, false, false}),
		// A bare pattern exists to be searched with.
		Args("/x/").Rets([5]bool{true, true, false, false, false}),
		Args(".modified").Rets([5]bool{false, false, true, false, false}),
		Args(".created").Rets([5]bool{false, false, false, true, false}),
		Args(".viewed").Rets([5]bool{false, false, false, false, true}),
		Args(".path").Rets([5]bool{false, true, false, false, false}),
		// The estimate sees into branches, lambdas and wrappers.
		Args(`if(x, {.modified}, {.created})`).
			Rets([5]bool{false, false, true, true, false}),
		Args("once[find(/x/)]").Rets([5]bool{true, true, false, false, false}),
	})
}

var Args = tt.Args
