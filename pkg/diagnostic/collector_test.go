package diagnostic_test

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_String(t *testing.T) {
	span := diagnostic.MustSpan("main.lua", 4, 2, 4, 9)
	e := diagnostic.New("error", "x", span)

	assert.Equal(t, "ERROR (main.lua:4:2-4:9): x", e.String())
	assert.Equal(t, e.String(), e.Error())

	w := diagnostic.New("Warning", "unused variable", span)
	assert.Equal(t, "WARNING ("+span.String()+"): unused variable", w.String())
}

func TestError_JSONMapping(t *testing.T) {
	e := diagnostic.Errorf(diagnostic.MustSpan("m", 1, 1, 1, 3), "bad %s", "token")

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"error","message":"bad token","span":{"unit":"m","startLine":1,"startCol":1,"endLine":1,"endCol":3}}`, string(data))

	var decoded diagnostic.Error
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, e, decoded)
}

func TestKind_Fatal(t *testing.T) {
	assert.True(t, diagnostic.Kind("error").Fatal())
	assert.True(t, diagnostic.Kind("ERROR").Fatal())
	assert.True(t, diagnostic.Kind("fatal").Fatal())
	assert.False(t, diagnostic.KindWarning.Fatal())
	assert.False(t, diagnostic.KindInfo.Fatal())
}

func TestCollector_SortsAndGates(t *testing.T) {
	c := diagnostic.NewCollector()
	assert.False(t, c.HasFatal())

	second := diagnostic.Errorf(diagnostic.LineSpan("main.lua", 9), "second")
	first := diagnostic.Warningf(diagnostic.LineSpan("main.lua", 2), "first")
	c.Report(second)
	c.Report(first)

	assert.True(t, c.HasFatal())
	assert.Equal(t, []diagnostic.Error{first, second}, c.All())

	got, ok := c.First()
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestCollector_WarningsDoNotGate(t *testing.T) {
	c := diagnostic.NewCollector()
	c.Replace([]diagnostic.Error{
		diagnostic.Warningf(diagnostic.LineSpan("a", 1), "w1"),
		diagnostic.New(diagnostic.KindInfo, "i1", diagnostic.LineSpan("a", 2)),
	})
	assert.False(t, c.HasFatal())
	_, ok := c.First()
	assert.False(t, ok)
}

func TestCollector_ReplaceNeverMerges(t *testing.T) {
	c := diagnostic.NewCollector()
	c.Replace([]diagnostic.Error{diagnostic.Errorf(diagnostic.LineSpan("a", 1), "old")})
	c.Replace([]diagnostic.Error{diagnostic.Warningf(diagnostic.LineSpan("a", 1), "new")})

	all := c.All()
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].Message)
	assert.False(t, c.HasFatal())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestCollector_LimitAndDedup(t *testing.T) {
	c := diagnostic.NewCollector(diagnostic.WithLimit(2))
	dup := diagnostic.Errorf(diagnostic.LineSpan("a", 1), "dup")
	c.Report(dup)
	c.Report(dup)
	c.Report(diagnostic.Warningf(diagnostic.LineSpan("a", 2), "w"))
	c.Report(diagnostic.Warningf(diagnostic.LineSpan("a", 3), "over"))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Dropped())
	assert.Len(t, c.All(), 2)
	assert.Equal(t, map[diagnostic.Kind]int{diagnostic.KindError: 1, diagnostic.KindWarning: 1}, c.Counts())
}

func TestCollector_ReplaceDropsDuplicates(t *testing.T) {
	c := diagnostic.NewCollector()
	dup := diagnostic.Errorf(diagnostic.LineSpan("a", 4), "twice")
	c.Replace([]diagnostic.Error{dup, dup, diagnostic.Errorf(diagnostic.LineSpan("a", 1), "once")})

	assert.Equal(t, 2, c.Len())
	assert.Len(t, c.All(), c.Len())
	first, ok := c.First()
	require.True(t, ok)
	assert.Equal(t, "once", first.Message)
}

func TestCollector_CustomFatalKinds(t *testing.T) {
	c := diagnostic.NewCollector(diagnostic.WithFatalKinds("error", "warning"))
	c.Report(diagnostic.Warningf(diagnostic.LineSpan("a", 1), "strict"))
	assert.True(t, c.HasFatal())
}

func TestCollector_ConcurrentReports(t *testing.T) {
	c := diagnostic.NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(line int) {
			defer wg.Done()
			c.Report(diagnostic.Warningf(diagnostic.LineSpan("a", line), "w"))
			_ = c.HasFatal()
		}(i + 1)
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	errs := []diagnostic.Error{
		diagnostic.Errorf(diagnostic.LineSpan("main.lua", 7), "boom"),
		diagnostic.Warningf(diagnostic.LineSpan("main.lua", 1), "careful"),
	}

	require.NoError(t, diagnostic.Render(&buf, errs, diagnostic.WithProfile(termenv.Ascii)))
	assert.Equal(t,
		"WARNING (main.lua:1:1-1:1): careful\n"+
			"ERROR (main.lua:7:1-7:1): boom\n"+
			"1 error, 1 warning\n",
		buf.String())

	// The input order is left untouched.
	assert.Equal(t, "boom", errs[0].Message)

	buf.Reset()
	require.NoError(t, diagnostic.Render(&buf, nil, diagnostic.WithProfile(termenv.Ascii), diagnostic.WithoutSummary()))
	assert.Empty(t, buf.String())
}

func TestRender_CustomFatalKinds(t *testing.T) {
	var buf bytes.Buffer
	errs := []diagnostic.Error{
		diagnostic.Warningf(diagnostic.LineSpan("main.lua", 1), "careful"),
		diagnostic.New("lint", "style", diagnostic.LineSpan("main.lua", 2)),
	}

	require.NoError(t, diagnostic.Render(&buf, errs,
		diagnostic.WithProfile(termenv.Ascii),
		diagnostic.WithFatal("error", "warning")))
	assert.Equal(t,
		"WARNING (main.lua:1:1-1:1): careful\n"+
			"LINT (main.lua:2:1-2:1): style\n"+
			"1 error, 0 warnings\n",
		buf.String())
}
