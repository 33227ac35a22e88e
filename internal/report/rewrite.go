package report

import (
	"context"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/seqops/seqbrowse/internal/errs"
)

// Asset subdirectories FastQC references relative to the report HTML.
// Only these are rewritten; everything else is left untouched.
var assetDirs = []string{"Images/", "Icons/"}

// cssURLPattern matches url(...) references inside style blocks.
var cssURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// Signer issues time-limited download URLs for remote objects.
// filestore.Store satisfies it.
type Signer interface {
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Rewriter replaces a standalone report's relative asset references with
// presigned URLs so the page renders outside its original directory.
//
// It applies only to HTML fetched as a single object; extracted archives
// carry their assets alongside the report and need no rewriting.
type Rewriter struct {
	signer Signer
	ttl    time.Duration
}

// NewRewriter returns a Rewriter signing URLs valid for ttl.
func NewRewriter(signer Signer, ttl time.Duration) *Rewriter {
	return &Rewriter{signer: signer, ttl: ttl}
}

// Rewrite parses markup and replaces every relative Images/ or Icons/
// reference (img/script src, a/link href, and url(...) inside style blocks)
// with a presigned URL resolved against sourceKey's parent path.
//
// The rewrite is idempotent: presigned URLs are absolute, so a second pass
// recognizes and skips them.
func (r *Rewriter) Rewrite(ctx context.Context, bucket, sourceKey, markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "cannot parse report markup", err)
	}

	base := parentPrefix(sourceKey)

	var signErr error
	rewriteAttr := func(sel *goquery.Selection, attr string) {
		sel.Each(func(_ int, s *goquery.Selection) {
			if signErr != nil {
				return
			}
			val, ok := s.Attr(attr)
			if !ok || !isRewritable(val) {
				return
			}
			signed, err := r.signer.PresignGetURL(ctx, bucket, base+val, r.ttl)
			if err != nil {
				signErr = err
				return
			}
			s.SetAttr(attr, signed)
		})
	}

	rewriteAttr(doc.Find("img[src]"), "src")
	rewriteAttr(doc.Find("script[src]"), "src")
	rewriteAttr(doc.Find("a[href]"), "href")
	rewriteAttr(doc.Find("link[href]"), "href")

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if signErr != nil {
			return
		}
		css := s.Text()
		rewritten := cssURLPattern.ReplaceAllStringFunc(css, func(match string) string {
			if signErr != nil {
				return match
			}
			ref := cssURLPattern.FindStringSubmatch(match)[1]
			if !isRewritable(ref) {
				return match
			}
			signed, err := r.signer.PresignGetURL(ctx, bucket, base+ref, r.ttl)
			if err != nil {
				signErr = err
				return match
			}
			return "url(" + signed + ")"
		})
		if rewritten != css {
			s.SetText(rewritten)
		}
	})

	if signErr != nil {
		return "", signErr
	}

	out, err := doc.Html()
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "cannot serialize rewritten markup", err)
	}
	return out, nil
}

// isRewritable reports whether ref is a relative reference into one of the
// known asset subdirectories. Absolute URLs (including already-signed ones),
// rooted paths, and other subdirectories are never rewritten.
func isRewritable(ref string) bool {
	for _, dir := range assetDirs {
		if strings.HasPrefix(ref, dir) {
			return true
		}
	}
	return false
}

// parentPrefix returns sourceKey's containing "directory" with a trailing
// slash, or "" for a bare key.
func parentPrefix(sourceKey string) string {
	dir := path.Dir(sourceKey)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir + "/"
}
