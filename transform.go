// Package optimize implements a website archive optimization pipeline.
// This file contains the transform contract and the per-category registry.
package optimize

import (
	"context"
)

// TransformOptions carries per-batch tuning shared by all transforms.
type TransformOptions struct {
	// JPEGQuality is the re-encode quality for JPEG images (1-100).
	JPEGQuality int

	// Aggressive enables rewrites beyond pure minification, such as
	// injecting lazy-loading attributes into HTML resources.
	Aggressive bool
}

// Transformer optimizes the raw bytes of a single file category.
//
// Implementations must be safe for concurrent use, idempotent (re-running a
// transform on its own output yields no further size change), and must
// never increase semantic content: minifiers preserve DOM/style/behavior
// and image transforms preserve visual content at the configured quality.
//
// A Transformer signals its outcome through the error value:
//   - nil: success, the returned bytes replace the original
//   - ErrSkipTransform: the input passes through unchanged (Skipped)
//   - any other error: a recoverable per-file failure (Failed); the
//     original bytes pass through and the error is recorded in the report
type Transformer interface {
	Transform(ctx context.Context, src []byte, opts TransformOptions) ([]byte, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(ctx context.Context, src []byte, opts TransformOptions) ([]byte, error)

// Transform calls f.
func (f TransformerFunc) Transform(ctx context.Context, src []byte, opts TransformOptions) ([]byte, error) {
	return f(ctx, src, opts)
}

// passthrough declines every input.
var passthrough = TransformerFunc(func(context.Context, []byte, TransformOptions) ([]byte, error) {
	return nil, ErrSkipTransform
})

// Registry maps file categories to transform implementations. Each category
// is independently swappable; categories without a registered transform
// resolve to a passthrough that yields Skipped outcomes.
type Registry struct {
	transformers map[FileCategory]Transformer
}

// NewRegistry returns a registry with the default transform set: tdewolff
// minifiers for HTML/CSS/JS/SVG/JSON, dart-sass compilation for SCSS, and
// standard-library re-encoding for images.
func NewRegistry() *Registry {
	r := &Registry{transformers: make(map[FileCategory]Transformer)}

	scss := newSCSSTransformer()

	r.Register(CategoryHTML, newHTMLTransformer())
	r.Register(CategoryCSS, newMinifyTransformer(mimeCSS))
	r.Register(CategorySCSS, scss)
	r.Register(CategoryJavaScript, newMinifyTransformer(mimeJS))
	r.Register(CategoryTypeScript, newMinifyTransformer(mimeJS))
	r.Register(CategorySVG, newMinifyTransformer(mimeSVG))
	r.Register(CategoryJSON, newMinifyTransformer(mimeJSON))
	r.Register(CategoryImage, newImageTransformer())

	return r
}

// Register installs (or replaces) the transform for a category.
func (r *Registry) Register(cat FileCategory, t Transformer) {
	r.transformers[cat] = t
}

// Lookup returns the transform for a category, or a passthrough when the
// category has none.
func (r *Registry) Lookup(cat FileCategory) Transformer {
	if t, ok := r.transformers[cat]; ok {
		return t
	}
	return passthrough
}
