package styles

import "github.com/charmbracelet/lipgloss"

var (
	ContentWidth = 54
)

var (
	TitleStyle           lipgloss.Style
	InfoStyle            lipgloss.Style
	UserLabelStyle       lipgloss.Style
	UserMsgStyle         lipgloss.Style
	ErrorStyle           lipgloss.Style
	NoticeStyle          lipgloss.Style
	InputBoxStyle        lipgloss.Style
	WelcomeArtStyle      lipgloss.Style
	WelcomeSubtitleStyle lipgloss.Style

	ModalStyle         lipgloss.Style
	ModalTitleStyle    lipgloss.Style
	ModalItemStyle     lipgloss.Style
	ModalSelectedStyle lipgloss.Style
	KeyStyle           lipgloss.Style
	DescStyle          lipgloss.Style

	SidebarStyle        lipgloss.Style
	SidebarTitleStyle   lipgloss.Style
	SidebarItemStyle    lipgloss.Style
	SidebarCurrentStyle lipgloss.Style
	BottomBarStyle      lipgloss.Style
	BadgeStyle          lipgloss.Style
	InactiveBadgeStyle  lipgloss.Style
	TokenStyle          lipgloss.Style
	HintStyle           lipgloss.Style
	HintColor           lipgloss.Color
	SelectedMarkerStyle lipgloss.Style
	ThinkingStyle       lipgloss.Style
	UntaggedLabelStyle  lipgloss.Style
	UntaggedMsgStyle    lipgloss.Style
	SpinnerStyle        lipgloss.Style
	PromptStyle         lipgloss.Style
	PlaceholderStyle    lipgloss.Style
)

func init() {
	build(CurrentTheme)
}

// AiLabelStyle is the label badge above a reply from the model in slot.
func AiLabelStyle(slot int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(CurrentTheme.TextInverse).
		Background(ModelColor(slot)).
		Bold(true).
		Padding(0, 1).
		MarginRight(1)
}

// AiMsgStyle frames a single reply from the model in slot.
func AiMsgStyle(slot int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(CurrentTheme.TextPrimary).
		BorderLeft(true).
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(ModelColor(slot))
}

// PanelStyle frames one half of a side-by-side dual response.
func PanelStyle(slot, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ModelColor(slot)).
		Padding(0, 1)
}

func build(t Theme) {
	HintColor = t.TextMuted

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		Padding(0, 1)

	InfoStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted)

	UserLabelStyle = lipgloss.NewStyle().
		Foreground(t.TextInverse).
		Background(t.Secondary).
		Bold(true).
		Padding(0, 1).
		MarginRight(1)

	UserMsgStyle = lipgloss.NewStyle().
		Foreground(t.TextPrimary).
		PaddingLeft(2).
		BorderLeft(true).
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(t.Secondary)

	UntaggedLabelStyle = lipgloss.NewStyle().
		Foreground(t.TextInverse).
		Background(t.TextSecondary).
		Bold(true).
		Padding(0, 1)

	UntaggedMsgStyle = lipgloss.NewStyle().
		Foreground(t.TextPrimary).
		BorderLeft(true).
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(t.TextSecondary)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(t.Error).
		Bold(true)

	NoticeStyle = lipgloss.NewStyle().
		Foreground(t.Success)

	ThinkingStyle = lipgloss.NewStyle().
		Foreground(t.TextSecondary).
		Italic(true)

	SelectedMarkerStyle = lipgloss.NewStyle().
		Foreground(t.Success).
		Bold(true)

	InputBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1)

	WelcomeArtStyle = lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	WelcomeSubtitleStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Italic(true)

	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2)

	ModalTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		MarginBottom(1)

	ModalItemStyle = lipgloss.NewStyle().
		Padding(0, 1)

	ModalSelectedStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Background(t.BgSelected).
		Foreground(t.TextInverse)

	KeyStyle = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true).
		Width(12)

	DescStyle = lipgloss.NewStyle().
		Foreground(t.TextPrimary)

	SidebarStyle = lipgloss.NewStyle().
		BorderRight(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		PaddingRight(1)

	SidebarTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		MarginBottom(1)

	SidebarItemStyle = lipgloss.NewStyle().
		Foreground(t.TextSecondary)

	SidebarCurrentStyle = lipgloss.NewStyle().
		Foreground(t.TextPrimary).
		Bold(true)

	BottomBarStyle = lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	BadgeStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.TextInverse).
		Padding(0, 1)

	InactiveBadgeStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Strikethrough(true).
		Padding(0, 1)

	TokenStyle = lipgloss.NewStyle().
		Foreground(t.TextSecondary)

	HintStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted)

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(t.Primary)

	PromptStyle = lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	PlaceholderStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted)
}
