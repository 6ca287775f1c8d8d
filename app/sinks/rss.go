package sinks

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/Fuyucch1/Vinted-Notifications/app/database"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

var _ pipeline.Sink = (*RSSSink)(nil)

const defaultRSSMaxItems = 100

// RSSSink keeps the most recent notifications in memory and renders them
// as an RSS 2.0 document on demand. Unlike the other sinks it has no
// delivery loop; readers poll the feed endpoint.
type RSSSink struct {
	settingRepo database.SettingRepository
	baseURL     string
	version     string

	mu      sync.RWMutex
	entries []rssEntry
}

type rssEntry struct {
	notification pipeline.Notification
	publishedAt  time.Time
}

func NewRSSSink(settingRepo database.SettingRepository, baseURL, version string) *RSSSink {
	return &RSSSink{
		settingRepo: settingRepo,
		baseURL:     baseURL,
		version:     version,
	}
}

func (s *RSSSink) Name() string {
	return "rss"
}

func (s *RSSSink) Enqueue(n pipeline.Notification) bool {
	maxItems := s.settingRepo.GetInt("rss_max_items", defaultRSSMaxItems)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, rssEntry{notification: n, publishedAt: time.Now()})
	if len(s.entries) > maxItems {
		s.entries = s.entries[len(s.entries)-maxItems:]
	}

	return true
}

func (s *RSSSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Render produces the feed document, newest entries first.
func (s *RSSSink) Render() string {
	s.mu.RLock()
	entries := make([]rssEntry, len(s.entries))
	copy(entries, s.entries)
	s.mu.RUnlock()

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	writeElement(&buf, "title", "Vinted Notifications", 4)
	writeElement(&buf, "description", "Latest items from Vinted matching your search queries", 4)
	if s.baseURL != "" {
		writeElement(&buf, "link", s.baseURL, 4)
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(s.baseURL+"/rss")))
	}

	lastBuildDate := time.Now()
	if len(entries) > 0 {
		lastBuildDate = entries[len(entries)-1].publishedAt
	}
	writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	writeElement(&buf, "generator", fmt.Sprintf("Vinted-Notifications/%s", s.version), 4)
	writeElement(&buf, "language", "en", 4)

	for i := len(entries) - 1; i >= 0; i-- {
		writeItem(&buf, entries[i])
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func writeItem(buf *bytes.Buffer, entry rssEntry) {
	n := entry.notification

	buf.WriteString("    <item>\n")

	buf.WriteString(`      <guid isPermaLink="true">`)
	xml.EscapeText(buf, []byte(n.URL))
	buf.WriteString("</guid>\n")

	writeElement(buf, "title", n.Title, 6)
	writeElement(buf, "link", n.URL, 6)
	writeElement(buf, "description", FormatMessage(n), 6)
	writeElement(buf, "pubDate", entry.publishedAt.Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
