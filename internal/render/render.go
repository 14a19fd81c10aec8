// Package render turns assistant replies into display nodes. It knows nothing
// about HTML, terminals or any other surface.
package render

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"mentor-chat/internal/models"
)

type Kind string

const (
	KindTitle     Kind = "title"
	KindHeader    Kind = "header"
	KindChips     Kind = "chips"
	KindQuestion  Kind = "question"
	KindParagraph Kind = "paragraph"
	KindVideo     Kind = "video"
)

type SegmentKind string

const (
	SegmentText SegmentKind = "text"
	SegmentChip SegmentKind = "chip"
)

// Segment is one piece of a chip row: inline text or a clickable topic.
type Segment struct {
	Kind    SegmentKind `json:"kind"`
	Text    string      `json:"text"`
	Compact bool        `json:"compact,omitempty"`
}

type Video struct {
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

type Node struct {
	Kind     Kind      `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
	Video    *Video    `json:"video,omitempty"`
}

type Document struct {
	Role  models.Role `json:"role"`
	Nodes []Node      `json:"nodes"`
}

// compactLabelLen is the exclusive upper bound on a compact chip's label length.
const compactLabelLen = 30

const videoSearchURL = "https://www.youtube.com/results"

var (
	boldSpan  = regexp.MustCompile(`\*\*(.*?)\*\*`)
	videoLine = regexp.MustCompile(`^- "(.*?)" by (.*?):(.*)$`)
)

// Message renders one conversation turn. Only assistant text is classified;
// anything else is a single paragraph.
func Message(m models.Message) Document {
	if m.Role != models.RoleAssistant {
		return Document{Role: m.Role, Nodes: []Node{{Kind: KindParagraph, Text: m.Content}}}
	}
	doc := Parse(m.Content)
	doc.Role = m.Role
	return doc
}

// Messages renders a whole conversation in order.
func Messages(msgs []models.Message) []Document {
	docs := make([]Document, 0, len(msgs))
	for _, m := range msgs {
		docs = append(docs, Message(m))
	}
	return docs
}

// Parse classifies each line of text; the first matching rule wins and lines
// matching none are dropped.
func Parse(text string) Document {
	lines := strings.Split(text, "\n")
	doc := Document{Role: models.RoleAssistant, Nodes: make([]Node, 0, len(lines))}

	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		if node, ok := classify(i, line); ok {
			doc.Nodes = append(doc.Nodes, node)
		}
	}
	return doc
}

func classify(index int, line string) (Node, bool) {
	trimmed := strings.TrimSpace(line)

	switch {
	case index == 0:
		return Node{Kind: KindTitle, Text: line}, true
	case strings.HasSuffix(trimmed, ":"):
		return Node{Kind: KindHeader, Text: line}, true
	}

	if segments := chipSegments(line); segments != nil {
		return Node{Kind: KindChips, Segments: segments}, true
	}

	switch {
	case strings.HasSuffix(trimmed, "?"):
		return Node{Kind: KindQuestion, Text: line}, true
	case trimmed != "" && !strings.Contains(line, ":"):
		return Node{Kind: KindParagraph, Text: line}, true
	case strings.HasPrefix(trimmed, `- "`):
		if video, ok := parseVideo(trimmed); ok {
			return Node{Kind: KindVideo, Video: video}, true
		}
	}

	// Definition-style lines ("Term: meaning") are not shown.
	return Node{}, false
}

// chipSegments splits a line around **bold** spans. It returns nil when the
// line has none.
func chipSegments(line string) []Segment {
	matches := boldSpan.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return nil
	}

	var segments []Segment
	last := 0
	for _, m := range matches {
		if m[0] > last {
			segments = append(segments, Segment{Kind: SegmentText, Text: line[last:m[0]]})
		}
		label := strings.TrimSpace(line[m[2]:m[3]])
		segments = append(segments, Segment{
			Kind:    SegmentChip,
			Text:    label,
			Compact: utf8.RuneCountInString(label) < compactLabelLen && strings.Contains(label, ":"),
		})
		last = m[1]
	}
	if last < len(line) {
		segments = append(segments, Segment{Kind: SegmentText, Text: line[last:]})
	}
	return segments
}

func parseVideo(line string) (*Video, bool) {
	m := videoLine.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	title, channel := m[1], strings.TrimSpace(m[2])
	return &Video{
		Title:       title,
		Channel:     channel,
		Description: strings.TrimSpace(m[3]),
		URL:         SearchURL(title + " " + channel),
	}, true
}

// SearchURL builds a video-search link for query.
func SearchURL(query string) string {
	return videoSearchURL + "?" + url.Values{"search_query": {query}}.Encode()
}

// Chips returns the topic labels of a document in reading order.
func Chips(doc Document) []Segment {
	var chips []Segment
	for _, n := range doc.Nodes {
		for _, s := range n.Segments {
			if s.Kind == SegmentChip {
				chips = append(chips, s)
			}
		}
	}
	return chips
}
