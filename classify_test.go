package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_ByExtension(t *testing.T) {
	tests := []struct {
		path string
		want FileCategory
	}{
		{"index.html", CategoryHTML},
		{"legacy.htm", CategoryHTML},
		{"styles/site.css", CategoryCSS},
		{"styles/site.scss", CategorySCSS},
		{"styles/site.sass", CategorySCSS},
		{"app.js", CategoryJavaScript},
		{"app.mjs", CategoryJavaScript},
		{"component.jsx", CategoryJavaScript},
		{"app.ts", CategoryTypeScript},
		{"component.tsx", CategoryTypeScript},
		{"logo.svg", CategorySVG},
		{"manifest.json", CategoryJSON},
		{"photo.png", CategoryImage},
		{"photo.JPG", CategoryImage},
		{"photo.jpeg", CategoryImage},
		{"anim.gif", CategoryImage},
		{"photo.webp", CategoryImage},
		{"favicon.ico", CategoryImage},
		{"archive.tar", CategoryOther},
		{"README.md", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path, nil))
		})
	}
}

func TestClassify_ByContent(t *testing.T) {
	htmlDoc := []byte("<!DOCTYPE html><html><body>hello</body></html>")
	assert.Equal(t, CategoryHTML, Classify("page", htmlDoc))

	pngMagic := []byte("\x89PNG\r\n\x1a\n" + "rest of the image")
	assert.Equal(t, CategoryImage, Classify("asset", pngMagic))

	assert.Equal(t, CategoryOther, Classify("blob", []byte{0x00, 0x01, 0x02, 0x03}))
}

func TestClassify_ExtensionWinsOverContent(t *testing.T) {
	// A .css file whose content sniffs as HTML still goes to the CSS
	// transform: the extension is the author's declared intent.
	htmlDoc := []byte("<!DOCTYPE html><html></html>")
	assert.Equal(t, CategoryCSS, Classify("styles.css", htmlDoc))
}

func TestClassify_EmptyContent(t *testing.T) {
	assert.Equal(t, CategoryOther, Classify("noext", nil))
	assert.Equal(t, CategoryOther, Classify("noext", []byte{}))
}
