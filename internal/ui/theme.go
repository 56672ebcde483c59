package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muhammadolammi/ascend/internal/quest"
)

const (
	IconQuest  = "🗺️"
	IconDone   = "✅"
	IconOpen   = "⬜"
	IconTrophy = "🏆"
	IconBolt   = "⚡"
	IconWarn   = "⚠️"
	IconError  = "🧨"
	IconReset  = "🔁"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// QuestLine renders one checklist row.
func QuestLine(q quest.Quest) string {
	xp := fmt.Sprintf("+%d XP", q.XP)
	if q.Completed {
		return fmt.Sprintf("%s %s %s %s", IconDone, Good.Render(q.Title), Muted.Render(string(q.ID)), Gold.Render(xp))
	}
	return fmt.Sprintf("%s %s %s %s", IconOpen, q.Title, Muted.Render(string(q.ID)), Muted.Render(xp))
}

// ProgressBar draws a fixed width bar for percent in [0,100].
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = max(0, min(100, percent))
	filled := int(percent * float64(width) / 100)
	return Good.Render(strings.Repeat("█", filled)) + Muted.Render(strings.Repeat("░", width-filled))
}

// LevelText summarises a rank and the distance to the next one.
func LevelText(p quest.Progress) string {
	if p.Max {
		return Gold.Render(p.Rank) + " " + Muted.Render("(max rank)")
	}
	return fmt.Sprintf("%s %s", Gold.Render(p.Rank), Muted.Render(fmt.Sprintf("(%d XP to %s)", p.ToNext, p.NextRank)))
}
