package search

import (
	"net/url"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
)

var routePrefixes = map[content.Type]string{
	content.TypePortfolio: "/portfolio/",
	content.TypeBlog:      "/workshop/blog/",
	content.TypePlugin:    "/workshop/plugins/",
	content.TypeTool:      "/tools/",
	content.TypeProfile:   "/about/profile/",
	content.TypePage:      "/",
}

// URLFor returns the site path of a content entry
func URLFor(t content.Type, id string) string {
	escaped := url.PathEscape(id)
	if prefix, ok := routePrefixes[t]; ok {
		return prefix + escaped
	}
	return "/" + url.PathEscape(string(t)) + "/" + escaped
}
