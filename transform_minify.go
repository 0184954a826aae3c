// Package optimize implements a website archive optimization pipeline.
// This file contains the tdewolff-backed minify transforms.
package optimize

import (
	"context"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

// Media types the minifier dispatches on.
const (
	mimeHTML = "text/html"
	mimeCSS  = "text/css"
	mimeJS   = "text/javascript"
	mimeSVG  = "image/svg+xml"
	mimeJSON = "application/json"
)

// minifier is the shared, pre-configured minifier. *minify.M is safe for
// concurrent use, so one instance serves all workers.
var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(mimeCSS, css.Minify)
	m.AddFunc(mimeJS, js.Minify)
	m.AddFunc(mimeSVG, svg.Minify)
	m.AddFunc(mimeJSON, json.Minify)
	// Conditional (IE) comments survive minification; <pre> and <textarea>
	// content is preserved verbatim by the html minifier itself.
	m.Add(mimeHTML, &html.Minifier{
		KeepSpecialComments: true, // conditional (IE) comments survive
		KeepDocumentTags:    true,
		KeepEndTags:         true,
	})
	return m
}

// minifyTransformer runs a single tdewolff minifier over the input.
// A parse error is a recoverable per-file failure, never fatal.
type minifyTransformer struct {
	mediatype string
}

func newMinifyTransformer(mediatype string) *minifyTransformer {
	return &minifyTransformer{mediatype: mediatype}
}

// Transform minifies src according to the transformer's media type.
func (t *minifyTransformer) Transform(_ context.Context, src []byte, _ TransformOptions) ([]byte, error) {
	out, err := minifier.Bytes(t.mediatype, src)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// htmlTransformer minifies HTML and, in aggressive mode, rewrites resource
// references with lazy-loading hints before minification.
type htmlTransformer struct{}

func newHTMLTransformer() *htmlTransformer {
	return &htmlTransformer{}
}

// Transform optimizes an HTML document. The rewrite runs before the
// minifier so its output stays minified.
func (t *htmlTransformer) Transform(_ context.Context, src []byte, opts TransformOptions) ([]byte, error) {
	if opts.Aggressive {
		rewritten, err := rewriteResourceHints(src)
		if err != nil {
			return nil, err
		}
		src = rewritten
	}

	out, err := minifier.Bytes(mimeHTML, src)
	if err != nil {
		return nil, err
	}
	return out, nil
}
