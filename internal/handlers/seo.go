package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

var staticPaths = []string{"/", "/about", "/contact", "/projects", "/tools", "/admin/login"}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap lists every project detail page followed by the static pages.
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	list, err := h.Projects.List(r.Context())
	if err != nil {
		h.Renderer.ServerError(w, r, err)
		return
	}
	base := h.baseURL(r)

	set := urlSet{Xmlns: sitemapNS, URLs: make([]sitemapURL, 0, len(list)+len(staticPaths))}
	for _, p := range list {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     base + "/projects/" + p.ID.String(),
			LastMod: p.DateCreated.UTC().Format("2006-01-02"),
		})
	}
	for _, path := range staticPaths {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + path})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		h.Renderer.ServerError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}

func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", h.baseURL(r))
}
