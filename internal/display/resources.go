package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/drbdmon/internal/model"
	"github.com/rileyhilliard/drbdmon/internal/severity"
)

// RenderHierarchy renders every resource with its volumes, connections and
// peer volumes, one object per line. It returns the lines and, for each
// resource, the index of its first line. Resource selected is highlighted;
// pass -1 for none.
func RenderHierarchy(snap model.Snapshot, selected int) ([]string, []int) {
	var lines []string
	starts := make([]int, 0, len(snap.Resources))

	for i, r := range snap.Resources {
		starts = append(starts, len(lines))
		lines = append(lines, resourceLine(r, i == selected))
		for _, v := range r.Volumes {
			lines = append(lines, "    "+volumeLine(v, false))
		}
		for _, c := range r.Connections {
			lines = append(lines, "  "+connectionLine(c))
			for _, v := range c.Volumes {
				lines = append(lines, "      "+volumeLine(v, true))
			}
		}
	}
	return lines, starts
}

func resourceLine(r model.ResourceView, selected bool) string {
	name := fmt.Sprintf("%-16s", r.Name)
	if selected {
		name = SelectedStyle.Render(name)
	} else {
		name = NameStyle.Render(name)
	}

	parts := []string{SeverityGlyph(r.Level), name, LabelStyle.Render(fmt.Sprintf("%-10s", orDash(r.Role.String())))}
	if r.RoleAlert {
		parts = append(parts, SeverityStyle(severity.Alert).Render("role unknown"))
	}
	if r.QuorumAlert {
		parts = append(parts, SeverityStyle(severity.Alert).Render("quorum lost"))
	}
	if r.Aggregate != r.Level {
		parts = append(parts, MutedStyle.Render("worst:")+SeverityStyle(r.Aggregate).Render(r.Aggregate.String()))
	}
	return strings.Join(parts, " ")
}

func connectionLine(c model.ConnectionView) string {
	parts := []string{
		SeverityGlyph(c.Level),
		NameStyle.Render(fmt.Sprintf("%-14s", c.Peer)),
		SeverityStyle(c.Level).Render(fmt.Sprintf("%-14s", orDash(c.State.String()))),
	}
	if c.PeerRole != model.RoleUnreported {
		parts = append(parts, LabelStyle.Render("peer "+c.PeerRole.String()))
	}
	return strings.Join(parts, " ")
}

func volumeLine(v model.VolumeView, peer bool) string {
	parts := []string{SeverityGlyph(v.Level), LabelStyle.Render(fmt.Sprintf("vol %-5d", v.Number))}
	if !peer {
		minor := "-"
		if v.Minor != model.NoMinor {
			minor = fmt.Sprintf("%d", v.Minor)
		}
		parts = append(parts, MutedStyle.Render(fmt.Sprintf("minor %-5s", minor)))
	} else {
		parts = append(parts, LabelStyle.Render(fmt.Sprintf("%-14s", orDash(v.Replication.String()))))
	}
	parts = append(parts, SeverityStyle(v.Level).Render(fmt.Sprintf("%-13s", orDash(v.Disk.String()))))

	if v.Client == model.TriYes {
		parts = append(parts, MutedStyle.Render("client"))
	}
	if !peer && v.Quorum == model.TriNo {
		parts = append(parts, SeverityStyle(severity.Alert).Render("no quorum"))
	}
	if peer && v.Replication.Resyncing() {
		pct := float64(v.SyncPercent) / 100
		parts = append(parts, SyncBar(12, pct), LabelStyle.Render(fmt.Sprintf("%5.1f%%", pct)))
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// renderResources renders the resources page, scrolled so the selected
// resource is visible.
func (m Model) renderResources(height int) string {
	snap := m.frame.Model
	if !snap.Initialized && len(snap.Resources) == 0 {
		return m.spinner.View() + " " + LabelStyle.Render("Loading initial state")
	}
	if len(snap.Resources) == 0 {
		return LabelStyle.Render("No resources configured")
	}

	sel := m.selected[PageResources]
	lines, starts := RenderHierarchy(snap, sel)
	top := 0
	if sel >= 0 && sel < len(starts) {
		top = scrollTop(starts[sel], len(lines), height)
	}
	end := top + height
	if end > len(lines) {
		end = len(lines)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines[top:end]...)
}

// scrollTop returns the first line to show so that line is within a window
// of height lines.
func scrollTop(line, total, height int) int {
	if height <= 0 || total <= height {
		return 0
	}
	top := line - height/2
	if top < 0 {
		top = 0
	}
	if top > total-height {
		top = total - height
	}
	return top
}
