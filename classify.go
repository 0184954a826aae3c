// Package optimize implements a website archive optimization pipeline.
// This file contains the type classifier mapping files to categories.
package optimize

import (
	"net/http"
	"path"
	"strings"
)

// FileCategory identifies which transform handles a file.
// The string values double as the per-category keys in the report.
type FileCategory string

// File categories recognized by the classifier.
const (
	CategoryHTML       FileCategory = "html"
	CategoryCSS        FileCategory = "css"
	CategorySCSS       FileCategory = "scss"
	CategoryJavaScript FileCategory = "javascript"
	CategoryTypeScript FileCategory = "typescript"
	CategoryImage      FileCategory = "image"
	CategorySVG        FileCategory = "svg"
	CategoryJSON       FileCategory = "json"
	CategoryOther      FileCategory = "other"
)

// sniffLen bounds how much content the classifier inspects. Matches the
// window http.DetectContentType considers.
const sniffLen = 512

// extensionCategories maps known file extensions to their category.
var extensionCategories = map[string]FileCategory{
	".html": CategoryHTML,
	".htm":  CategoryHTML,
	".css":  CategoryCSS,
	".scss": CategorySCSS,
	".sass": CategorySCSS,
	".js":   CategoryJavaScript,
	".mjs":  CategoryJavaScript,
	".jsx":  CategoryJavaScript,
	".ts":   CategoryTypeScript,
	".tsx":  CategoryTypeScript,
	".svg":  CategorySVG,
	".json": CategoryJSON,
	".png":  CategoryImage,
	".jpg":  CategoryImage,
	".jpeg": CategoryImage,
	".gif":  CategoryImage,
	".webp": CategoryImage,
	".ico":  CategoryImage,
	".bmp":  CategoryImage,
	".avif": CategoryImage,
}

// Classify maps a file to its optimization category.
//
// Precedence: explicit extension match first, then magic-byte content
// sniffing over a bounded prefix when the extension is absent or unknown,
// then CategoryOther (passthrough). Classification never inspects more than
// sniffLen bytes of content, so large binary assets stay cheap to classify.
func Classify(p string, prefix []byte) FileCategory {
	if ext := strings.ToLower(path.Ext(p)); ext != "" {
		if cat, ok := extensionCategories[ext]; ok {
			return cat
		}
	}

	if len(prefix) == 0 {
		return CategoryOther
	}
	if len(prefix) > sniffLen {
		prefix = prefix[:sniffLen]
	}

	return categoryFromContentType(http.DetectContentType(prefix))
}

// categoryFromContentType maps a sniffed MIME type to a category.
func categoryFromContentType(ct string) FileCategory {
	// DetectContentType appends charset parameters to text types.
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))

	switch ct {
	case "text/html":
		return CategoryHTML
	case "image/svg+xml":
		return CategorySVG
	}
	if strings.HasPrefix(ct, "image/") {
		return CategoryImage
	}
	return CategoryOther
}
