package main

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"mentor-chat/internal/conversation"
	"mentor-chat/internal/models"
	"mentor-chat/internal/render"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("221")).Italic(true)
	chipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("141")).Padding(0, 1)
	compactStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Underline(true)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	videoStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// view renders one document. Chips are numbered from *next so the user can
// pick one; the labels are returned in that order.
func view(doc render.Document, next *int) (string, []string) {
	if doc.Role != models.RoleAssistant {
		var b strings.Builder
		for _, n := range doc.Nodes {
			b.WriteString(userStyle.Render("> " + n.Text))
		}
		return b.String(), nil
	}

	var (
		lines  []string
		labels []string
	)
	for _, n := range doc.Nodes {
		switch n.Kind {
		case render.KindTitle:
			lines = append(lines, titleStyle.Render(n.Text))
		case render.KindHeader:
			lines = append(lines, headerStyle.Render(n.Text))
		case render.KindQuestion:
			lines = append(lines, questionStyle.Render(n.Text))
		case render.KindParagraph:
			lines = append(lines, n.Text)
		case render.KindChips:
			var b strings.Builder
			for _, s := range n.Segments {
				if s.Kind != render.SegmentChip {
					b.WriteString(s.Text)
					continue
				}
				*next++
				labels = append(labels, s.Text)
				label := fmt.Sprintf("[%d] %s", *next, s.Text)
				if s.Compact {
					b.WriteString(compactStyle.Render(label))
				} else {
					b.WriteString(chipStyle.Render(label))
				}
			}
			lines = append(lines, b.String())
		case render.KindVideo:
			v := n.Video
			card := titleStyle.Render(v.Title) + "\n" + v.Channel
			if v.Description != "" {
				card += "\n" + v.Description
			}
			card += "\n" + hintStyle.Render(v.URL)
			lines = append(lines, videoStyle.Render(card))
		}
	}
	return strings.Join(lines, "\n"), labels
}

// screen renders the turns of snap from index from on.
func screen(snap conversation.Snapshot, from int) string {
	if from > len(snap.Messages) {
		from = len(snap.Messages)
	}

	var parts []string
	for _, doc := range render.Messages(snap.Messages[from:]) {
		n := 0
		text, _ := view(doc, &n)
		parts = append(parts, text)
	}

	if snap.Loading {
		parts = append(parts, hintStyle.Render("Thinking..."))
	}
	if snap.Error != "" {
		parts = append(parts, errorStyle.Render(snap.Error))
	}
	return strings.Join(parts, "\n\n")
}

// latestChips returns the chip labels of the newest assistant reply, the only
// ones that can be picked.
func latestChips(snap conversation.Snapshot) []string {
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		m := snap.Messages[i]
		if m.Role != models.RoleAssistant {
			continue
		}
		var labels []string
		for _, chip := range render.Chips(render.Message(m)) {
			labels = append(labels, chip.Text)
		}
		return labels
	}
	return nil
}
