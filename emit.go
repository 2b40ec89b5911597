package adgen

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/ballzy/adgen/config"
)

const googleNamespace = "http://base.google.com/ns/1.0"

// creativeURL is the public URL of a product's generated creative, built
// from the configured base URL and the deterministic filename.
func creativeURL(baseURL string, market config.Market, p *Product) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.ToLower(market.Code) + "/" + p.CreativeFile
}

// newFeedDocument builds the shared RSS 2.0 container of the XML emitters
// and returns the channel element items are appended to.
func newFeedDocument(market config.Market, title string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")
	rss.CreateAttr("xmlns:g", googleNamespace)
	channel := rss.CreateElement("channel")
	channel.CreateElement("title").SetText(title)
	channel.CreateElement("link").SetText("https://ballzy.eu")
	channel.CreateElement("description").SetText("Generated ad creatives for " + market.Code)
	return doc, channel
}

func writeFeedDocument(doc *etree.Document, path string) error {
	doc.Indent(2)
	return doc.WriteToFile(path)
}
