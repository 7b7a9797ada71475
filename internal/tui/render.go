package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/realcheck/internal/inference"
	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/stage"
	"github.com/jask/realcheck/internal/upload"
)

const appName = "realcheck"

func renderHeader(active media.Mode, width int) string {
	name := headerAppStyle.Render(appName)
	tabs := make([]string, 0, len(media.Modes))
	for _, m := range media.Modes {
		if m == active {
			tabs = append(tabs, activeTabStyle.Render(m.Title()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(m.Title()))
		}
	}
	bar := tabSepStyle.Render(" ") + strings.Join(tabs, tabSepStyle.Render("│"))
	content := name + tabSepStyle.Render("  ") + bar
	if width <= 0 {
		return headerBarStyle.Render(content)
	}
	return headerBarStyle.Width(width).Render(content)
}

func (a *App) panelWidth() int {
	if a.width <= 0 {
		return 60
	}
	return max(24, min(72, a.width-4))
}

func (a *App) renderPanel(style lipgloss.Style, title, content string) string {
	inner := a.panelWidth() - 4
	header := padRight(titleStyle.Render(title), inner)
	sep := lipgloss.NewStyle().Foreground(colorSurface2).Render(strings.Repeat("─", inner))
	panel := style.Width(a.panelWidth()).Render(header + "\n" + sep + "\n" + content)
	if a.width == 0 {
		return panel
	}
	return lipgloss.Place(a.width, lipgloss.Height(panel), lipgloss.Center, lipgloss.Top, panel)
}

func (a *App) renderUpload(d upload.Display) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Upload %s", strings.ToLower(d.Mode.Title()))),
		"",
		mutedStyle.Render("press b to browse or p to type a path"),
		"",
		hintStyle.Render(d.Hint),
	}
	box := uploadBoxStyle.Width(a.panelWidth()).Render(strings.Join(lines, "\n"))
	if a.width == 0 {
		return box
	}
	return lipgloss.Place(a.width, lipgloss.Height(box), lipgloss.Center, lipgloss.Top, box)
}

func (a *App) renderSpinner(d upload.Display) string {
	name := truncate(d.FileName, a.panelWidth()-8)
	body := a.spinner.View() + " " + statusStyle.Render(d.Status)
	if name != "" {
		body += "\n" + fileNameStyle.Render(name)
	}
	return a.renderPanel(panelStyle, "Working", body)
}

func (a *App) renderResult(d upload.Display) string {
	var b strings.Builder
	b.WriteString(fileNameStyle.Render(truncate(d.FileName, a.panelWidth()-6)))
	b.WriteString("\n\n")
	b.WriteString(renderPreview(d.Preview))
	b.WriteString("\n\n")

	if d.Label == "" {
		b.WriteString(errorTextStyle.Render("No verdict."))
		return a.renderPanel(panelStyle, "Result", b.String())
	}

	label := lipgloss.NewStyle().Foreground(labelColor(d.Label)).Bold(true).Render(d.Label)
	b.WriteString("Label: " + label + "\n")
	b.WriteString("Score: " + scoreStyle.Render(d.Score.String()))
	if f, ok := d.Score.Fraction(); ok {
		b.WriteString("\n" + a.bar.ViewAs(f))
	}
	if d.Result != nil {
		b.WriteString(renderAux(*d.Result, a.panelWidth()-6))
	}
	return a.renderPanel(panelStyle.BorderForeground(labelColor(d.Label)), "Result", b.String())
}

func renderAux(r inference.Result, width int) string {
	var b strings.Builder
	if t := strings.TrimSpace(r.LipReadingText); t != "" {
		b.WriteString("\n\n" + auxLabelStyle.Render("Lip reading") + "\n" + lipgloss.NewStyle().Width(width).Render(t))
	}
	if t := strings.TrimSpace(r.SpeechText); t != "" {
		b.WriteString("\n\n" + auxLabelStyle.Render("Speech") + "\n" + lipgloss.NewStyle().Width(width).Render(t))
	}
	return b.String()
}

func (a *App) renderError(d upload.Display) string {
	msg := errorTextStyle.Render(d.ErrorMessage)
	return a.renderPanel(errorPanelStyle, "Error", msg+"\n\n"+mutedStyle.Render("press r to try again"))
}

func (a *App) renderPicker(d upload.Display) string {
	body := hintStyle.Render(d.Hint) + "\n" + mutedStyle.Render(a.picker.CurrentDirectory) + "\n\n" + a.picker.View()
	return a.renderPanel(panelStyle.BorderForeground(colorFocus), "Choose a file", body)
}

func (a *App) renderPathInput(d upload.Display) string {
	body := a.path.View() + "\n\n" + hintStyle.Render(d.Hint)
	return a.renderPanel(panelStyle.BorderForeground(colorFocus), "File path", body)
}

func renderPreview(p *stage.Preview) string {
	if p == nil {
		return mutedStyle.Render("(no preview)")
	}
	if p.Thumbnail != nil {
		return renderThumbnail(p.Thumbnail) + "\n" + mutedStyle.Render(p.Summary())
	}
	return mutedStyle.Render("▶ " + p.Summary())
}

// renderThumbnail draws two pixel rows per text row with the upper half
// block: the foreground is the top pixel and the background the bottom one.
func renderThumbnail(img image.Image) string {
	b := img.Bounds()
	var out strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			out.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := hexColor(img.At(x, y))
			bottom := top
			if y+1 < b.Max.Y {
				bottom = hexColor(img.At(x, y+1))
			}
			out.WriteString(lipgloss.NewStyle().Foreground(top).Background(bottom).Render("▀"))
		}
	}
	return out.String()
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

func renderAlert(msg string) string {
	title := lipgloss.NewStyle().Foreground(colorWarning).Bold(true).Render("Request failed")
	return title + "\n\n" + msg + "\n\n" + mutedStyle.Render("enter to dismiss")
}

func (a *App) renderFooter(bindings []key.Binding) string {
	content := a.help.ShortHelpView(bindings)
	if a.width == 0 {
		return footerStyle.Render(content)
	}
	return footerStyle.Width(a.width).Render(content)
}

func (a *App) renderStatus(text string) string {
	flat := strings.ReplaceAll(text, "\n", " ")
	if a.width == 0 {
		return statusBarStyle.Render(flat)
	}
	return statusBarStyle.Width(a.width).Render(truncate(flat, a.width-4))
}

func (a *App) placeWithFooter(body, statusLine, footer string) string {
	if a.height == 0 {
		return body + "\n\n" + statusLine + "\n" + footer
	}
	contentHeight := max(1, a.height-2)
	if lipgloss.Height(body) >= contentHeight {
		return body + "\n" + statusLine + "\n" + footer
	}
	main := lipgloss.Place(a.width, contentHeight, lipgloss.Left, lipgloss.Top, body)
	lines := splitLines(main)
	for i, line := range lines {
		lines[i] = padRight(line, a.width)
	}
	return strings.Join(lines, "\n") + "\n" + statusLine + "\n" + footer
}

func (a *App) composeOverlay(base, statusLine, footer, content string) string {
	baseView := a.placeWithFooter(base, statusLine, footer)
	if a.height == 0 || a.width == 0 {
		return baseView + "\n\n" + modalStyle.Render(content)
	}
	modal := modalStyle.Render(lipgloss.NewStyle().Width(min(50, a.width-10)).Render(content))
	lines := splitLines(modal)
	targetHeight := max(1, a.height-2)
	x := max(0, (a.width-maxLineWidth(lines))/2)
	y := max(0, (targetHeight-len(lines))/2)
	return overlayAt(baseView, modal, x, y, a.width, targetHeight)
}
