package sinks

import (
	"strconv"
	"strings"
	"testing"

	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

type stubSettingRepo struct {
	values map[string]string
}

func (s *stubSettingRepo) Get(key string) (string, error) {
	return s.values[key], nil
}

func (s *stubSettingRepo) GetInt(key string, fallback int) int {
	if v, ok := s.values[key]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func (s *stubSettingRepo) Set(key, value string) error {
	s.values[key] = value
	return nil
}

func (s *stubSettingRepo) GetAll() (map[string]string, error) {
	return s.values, nil
}

func TestRSSSinkRender(t *testing.T) {
	sink := NewRSSSink(&stubSettingRepo{values: map[string]string{}}, "https://vinted.example.com", "test")

	sink.Enqueue(pipeline.Notification{
		Title:    "Nike Air Max",
		Price:    "25.0",
		Currency: "EUR",
		Brand:    "Nike",
		URL:      "https://www.vinted.fr/items/123",
	})

	doc := sink.Render()

	for _, want := range []string{
		`<rss version="2.0"`,
		"<title>Vinted Notifications</title>",
		"<title>Nike Air Max</title>",
		"<link>https://www.vinted.fr/items/123</link>",
		`<guid isPermaLink="true">https://www.vinted.fr/items/123</guid>`,
		"25.0 EUR",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("Expected document to contain %q:\n%s", want, doc)
		}
	}
}

func TestRSSSinkNewestFirst(t *testing.T) {
	sink := NewRSSSink(&stubSettingRepo{values: map[string]string{}}, "", "test")

	sink.Enqueue(pipeline.Notification{Title: "older", URL: "https://example.com/1"})
	sink.Enqueue(pipeline.Notification{Title: "newer", URL: "https://example.com/2"})

	doc := sink.Render()

	if strings.Index(doc, "newer") > strings.Index(doc, "older") {
		t.Error("Expected the newest entry to come first")
	}
}

func TestRSSSinkCapsEntries(t *testing.T) {
	sink := NewRSSSink(&stubSettingRepo{values: map[string]string{"rss_max_items": "3"}}, "", "test")

	for i := 0; i < 5; i++ {
		sink.Enqueue(pipeline.Notification{Title: "item", URL: "https://example.com"})
	}

	if sink.Len() != 3 {
		t.Errorf("Expected 3 retained entries, got %d", sink.Len())
	}
}

func TestRSSSinkEscapesContent(t *testing.T) {
	sink := NewRSSSink(&stubSettingRepo{values: map[string]string{}}, "", "test")

	sink.Enqueue(pipeline.Notification{
		Title: "Vest & <jacket>",
		URL:   "https://example.com/1",
	})

	doc := sink.Render()

	if strings.Contains(doc, "<jacket>") {
		t.Errorf("Expected markup in titles to be escaped:\n%s", doc)
	}
	if !strings.Contains(doc, "Vest &amp; &lt;jacket&gt;") {
		t.Errorf("Expected escaped title, got:\n%s", doc)
	}
}

func TestFormatMessage(t *testing.T) {
	got := FormatMessage(pipeline.Notification{
		Title:    "Wool coat",
		Price:    "40.0",
		Currency: "EUR",
		Brand:    "Zara",
		PhotoURL: "https://images.vinted.net/1.jpg",
	})

	for _, want := range []string{
		"🆕 Title : Wool coat",
		"💶 Price : 40.0 EUR",
		"🛍️ Brand : Zara",
		"<a href='https://images.vinted.net/1.jpg'>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected message to contain %q, got:\n%s", want, got)
		}
	}
}
