package optimize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinifyTransformer_CSS(t *testing.T) {
	src := []byte("a {\n    color: red;\n}\n")

	out, err := newMinifyTransformer(mimeCSS).Transform(context.Background(), src, TransformOptions{})
	require.NoError(t, err)

	assert.Less(t, len(out), len(src))
	assert.Equal(t, "a{color:red}", string(out))
}

func TestMinifyTransformer_JS(t *testing.T) {
	src := []byte("function add(first, second) {\n    return first + second;\n}\n")

	out, err := newMinifyTransformer(mimeJS).Transform(context.Background(), src, TransformOptions{})
	require.NoError(t, err)
	assert.Less(t, len(out), len(src))
}

func TestMinifyTransformer_JSParseError(t *testing.T) {
	src := []byte("function broken( {{{")

	_, err := newMinifyTransformer(mimeJS).Transform(context.Background(), src, TransformOptions{})
	assert.Error(t, err)
}

func TestMinifyTransformer_JSON(t *testing.T) {
	src := []byte("{\n  \"name\": \"demo\",\n  \"version\": 2\n}\n")

	out, err := newMinifyTransformer(mimeJSON).Transform(context.Background(), src, TransformOptions{})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"demo","version":2}`, string(out))
}

func TestMinifyTransformer_SVG(t *testing.T) {
	src := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
    <!-- a comment -->
    <rect x="1" y="1" width="8" height="8" />
</svg>`)

	out, err := newMinifyTransformer(mimeSVG).Transform(context.Background(), src, TransformOptions{})
	require.NoError(t, err)
	assert.Less(t, len(out), len(src))
	assert.NotContains(t, string(out), "a comment")
}

func TestMinifyTransformer_Idempotent(t *testing.T) {
	src := []byte("body {\n    margin: 0px;\n    padding: 0px;\n}\n")
	tr := newMinifyTransformer(mimeCSS)

	once, err := tr.Transform(context.Background(), src, TransformOptions{})
	require.NoError(t, err)
	twice, err := tr.Transform(context.Background(), once, TransformOptions{})
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestHTMLTransformer_Minifies(t *testing.T) {
	src := []byte(`<!DOCTYPE html>
<html>
  <head>
    <title>Demo</title>
  </head>
  <body>
    <p>  hello   world  </p>
  </body>
</html>`)

	out, err := newHTMLTransformer().Transform(context.Background(), src, TransformOptions{})
	require.NoError(t, err)
	assert.Less(t, len(out), len(src))
	assert.Contains(t, string(out), "<title>Demo</title>")
}

func TestHTMLTransformer_PreservesPre(t *testing.T) {
	src := []byte("<!DOCTYPE html><html><body><pre>  spaced\n  out  </pre></body></html>")

	out, err := newHTMLTransformer().Transform(context.Background(), src, TransformOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<pre>  spaced\n  out  </pre>")
}

func TestHTMLTransformer_Aggressive(t *testing.T) {
	src := []byte(`<!DOCTYPE html><html><body>
<img src="hero.jpg">
<script src="app.js"></script>
</body></html>`)

	out, err := newHTMLTransformer().Transform(context.Background(), src, TransformOptions{Aggressive: true})
	require.NoError(t, err)

	// The minifier may strip attribute quotes, so match loosely.
	assert.Contains(t, string(out), "loading=")
	assert.Contains(t, string(out), "lazy")
	assert.Contains(t, string(out), "defer")
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()

	assert.NotNil(t, r.Lookup(CategoryHTML))
	assert.NotNil(t, r.Lookup(CategoryCSS))
	assert.NotNil(t, r.Lookup(CategoryImage))

	// Unregistered categories resolve to a passthrough.
	_, err := r.Lookup(CategoryOther).Transform(context.Background(), []byte("data"), TransformOptions{})
	assert.ErrorIs(t, err, ErrSkipTransform)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	custom := TransformerFunc(func(_ context.Context, src []byte, _ TransformOptions) ([]byte, error) {
		return src[:1], nil
	})

	r.Register(CategoryOther, custom)

	out, err := r.Lookup(CategoryOther).Transform(context.Background(), []byte("xyz"), TransformOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), out)
}
