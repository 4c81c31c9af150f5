package progress

import (
	"fmt"
	"strings"
)

// Bar is a fixed-width horizontal progress bar over a 0..1 fraction.
type Bar struct {
	width      int
	percentage float64
	label      string
}

// NewBar returns a Bar of the given character width.
func NewBar(width int) *Bar {
	return &Bar{width: width}
}

// SetProgress sets the completed fraction, clamped to [0,1].
func (b *Bar) SetProgress(percentage float64) {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 1 {
		percentage = 1
	}
	b.percentage = percentage
}

// SetLabel sets the bar's title line.
func (b *Bar) SetLabel(label string) { b.label = label }

// SetWidth resizes the bar.
func (b *Bar) SetWidth(width int) { b.width = width }

// Render draws the bar with a trailing percentage.
func (b *Bar) Render() string {
	var s strings.Builder

	barWidth := b.width - 10
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(float64(barWidth) * b.percentage)
	empty := barWidth - filled

	for i := 0; i < filled; i++ {
		s.WriteString(ProgressFullStyle.Render("█"))
	}
	for i := 0; i < empty; i++ {
		s.WriteString(ProgressEmptyStyle.Render("░"))
	}
	s.WriteString(" ")
	s.WriteString(ValueStyle.Render(fmt.Sprintf("%5.1f%%", b.percentage*100)))
	return s.String()
}

// RenderWithLabel draws the label line followed by the bar.
func (b *Bar) RenderWithLabel() string {
	if b.label == "" {
		return b.Render()
	}
	return LabelStyle.Render(b.label) + "\n" + b.Render()
}

// Spinner is an indeterminate progress indicator, ticked once per frame.
type Spinner struct {
	frame   int
	text    string
	running bool
}

// NewSpinner returns a running Spinner with the given status text.
func NewSpinner(text string) *Spinner {
	return &Spinner{text: text, running: true}
}

// SetText updates the spinner's status text.
func (s *Spinner) SetText(text string) { s.text = text }

// Stop freezes the spinner on a checkmark.
func (s *Spinner) Stop() { s.running = false }

// Tick advances the animation frame.
func (s *Spinner) Tick() {
	if s.running {
		s.frame = (s.frame + 1) % len(SpinnerChars)
	}
}

// Render draws the current frame.
func (s *Spinner) Render() string {
	if !s.running {
		return SuccessStyle.Render("✓") + " " + s.text
	}
	return InfoStyle.Render(SpinnerChars[s.frame]) + " " + s.text
}
