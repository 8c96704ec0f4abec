package news

// DefaultFeeds are the feeds ingested when none are configured.
var DefaultFeeds = []string{
	"https://feeds.finance.yahoo.com/rss/2.0/headline?s=^IXIC&region=US&lang=en-US", // Nasdaq
	"https://www.cnbc.com/id/100003114/device/rss/rss.html",                         // CNBC top news
}

// Metadata keys written for stored articles.
const (
	MetaTitle   = "title"
	MetaLink    = "link"
	MetaPubDate = "pubDate"
	MetaTickers = "tickers"
)
