package feed

import (
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/shanehull/cryptobriefs/internal/types"
)

// extractImage picks the best image for an item, falling back to the placeholder.
func extractImage(item *gofeed.Item) string {
	if src := enclosureImage(item.Enclosures); src != "" {
		return src
	}
	if src := mediaImage(item); src != "" {
		return src
	}
	if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, body := range []string{item.Content, item.Description} {
		if src := firstImgSrc(body); src != "" {
			return src
		}
	}
	return types.ImagePlaceholder
}

func enclosureImage(enclosures []*gofeed.Enclosure) string {
	var fallback string
	for _, enc := range enclosures {
		if enc == nil || strings.TrimSpace(enc.URL) == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			return strings.TrimSpace(enc.URL)
		}
		if fallback == "" {
			fallback = strings.TrimSpace(enc.URL)
		}
	}
	return fallback
}

func mediaImage(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, name := range []string{"content", "thumbnail"} {
		for _, e := range media[name] {
			if medium := e.Attrs["medium"]; medium != "" && medium != "image" {
				continue
			}
			if src := strings.TrimSpace(e.Attrs["url"]); src != "" {
				return src
			}
		}
	}
	return ""
}

// firstImgSrc returns the src of the first <img> in an HTML fragment.
func firstImgSrc(fragment string) string {
	if !strings.Contains(strings.ToLower(fragment), "<img") {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var src string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			for _, a := range n.Attr {
				if a.Key == "src" && strings.TrimSpace(a.Val) != "" {
					src = strings.TrimSpace(a.Val)
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return src
}
