package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scripthost/internal/engine"
)

func newFakeContext(t *testing.T) engine.LiveContext {
	t.Helper()
	live, err := NewFakeCompiler().NewSession(context.Background(), engine.SessionOptions{})
	require.NoError(t, err)
	return live
}

func TestFakeContext_ScriptedPrefixes(t *testing.T) {
	// Inline scripts arrive bare; files arrive behind imports and a #line marker.
	wrappers := map[string]func(string) string{
		"inline": func(code string) string { return code },
		"file": func(code string) string {
			return "using fmt;\n\n#line 1 \"/work/main.csx\"\n" + code
		},
	}

	for name, wrap := range wrappers {
		t.Run(name, func(t *testing.T) {
			live := newFakeContext(t)
			ctx := context.Background()

			_, err := live.Submit(ctx, engine.Submission{Code: wrap(FailPrefix + "boom")})
			require.EqualError(t, err, "boom")

			_, err = live.Submit(ctx, engine.Submission{Code: wrap(SyntaxErrorPrefix + "bad token")})
			assert.True(t, engine.IsCompilationError(err))

			assert.PanicsWithValue(t, "kaboom", func() {
				_, _ = live.Submit(ctx, engine.Submission{Code: wrap(PanicPrefix + "kaboom")})
			})

			v, err := live.Submit(ctx, engine.Submission{Code: wrap("Fine()")})
			require.NoError(t, err)
			assert.Equal(t, wrap("Fine()"), v)
		})
	}
}

func TestScriptBody(t *testing.T) {
	assert.Equal(t, "x\n#line 9 \"b\"\ny", scriptBody("using a;\n\n#line 1 \"a\"\nx\n#line 9 \"b\"\ny"))
	assert.Equal(t, "using (x) {", scriptBody("using (x) {"))
	assert.Equal(t, "", scriptBody("#line 1 \"a\""))
}
