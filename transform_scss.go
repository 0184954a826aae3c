// Package optimize implements a website archive optimization pipeline.
// This file contains the SCSS transform: dart-sass compile, then minify.
package optimize

import (
	"context"
	"fmt"
	"sync"

	"github.com/bep/godartsass/v2"
)

// scssTransformer compiles SCSS to CSS through the dart-sass embedded
// compiler and minifies the result. The transpiler process is started
// lazily on first use and shared by all workers.
//
// Compile errors, including an unavailable dart-sass binary, are
// recoverable per-file failures: the original bytes pass through and the
// error lands in the report, never aborting the batch.
type scssTransformer struct {
	once     sync.Once
	tr       *godartsass.Transpiler
	startErr error
}

func newSCSSTransformer() *scssTransformer {
	return &scssTransformer{}
}

// Transform compiles src as SCSS and returns minified CSS.
func (t *scssTransformer) Transform(_ context.Context, src []byte, _ TransformOptions) ([]byte, error) {
	t.once.Do(func() {
		t.tr, t.startErr = godartsass.Start(godartsass.Options{})
	})
	if t.startErr != nil {
		return nil, fmt.Errorf("scss compiler unavailable: %w", t.startErr)
	}

	res, err := t.tr.Execute(godartsass.Args{
		Source:       string(src),
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		OutputStyle:  godartsass.OutputStyleCompressed,
	})
	if err != nil {
		return nil, fmt.Errorf("scss compile: %w", err)
	}

	out, err := minifier.Bytes(mimeCSS, []byte(res.CSS))
	if err != nil {
		return nil, fmt.Errorf("css minify after scss compile: %w", err)
	}
	return out, nil
}

// Close shuts down the transpiler process, if one was started.
func (t *scssTransformer) Close() error {
	if t.tr == nil {
		return nil
	}
	return t.tr.Close()
}
