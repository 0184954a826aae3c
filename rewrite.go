// Package optimize implements a website archive optimization pipeline.
// This file contains the aggressive HTML resource-hint rewriter.
package optimize

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// rewriteResourceHints injects performance attributes into an HTML document:
//   - loading="lazy" on <img> and <iframe> elements that lack a loading
//     attribute
//   - defer on external <script> elements that are neither deferred nor
//     async and carry no type override (module scripts defer implicitly)
//
// Attributes already present are left untouched, which keeps the rewrite
// idempotent. The document is re-serialized, so this only runs in
// aggressive mode where structural normalization is acceptable.
func rewriteResourceHints(src []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}

	doc.Find("img, iframe").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("loading"); !ok {
			s.SetAttr("loading", "lazy")
		}
	})

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("defer"); ok {
			return
		}
		if _, ok := s.Attr("async"); ok {
			return
		}
		if typ, ok := s.Attr("type"); ok && typ != "" && typ != "text/javascript" {
			return
		}
		s.SetAttr("defer", "")
	})

	out, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
