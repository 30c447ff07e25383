package viewer

import (
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"tradepost/pkg/core"
)

const maxLogLines = 1000

// LogPanel is a window mirroring the log output.
type LogPanel struct {
	window    fyne.Window
	textArea  *widget.TextGrid
	log       core.Logger
	mu        sync.Mutex
	lines     []string
	isVisible bool
}

func NewLogPanel(a fyne.App, log core.Logger) *LogPanel {
	lp := &LogPanel{log: log}

	lp.window = a.NewWindow("Trading Post Log")
	lp.textArea = widget.NewTextGrid()

	markBtn := widget.NewButton("Mark", func() {
		lp.log.Info("Log marker")
	})
	clearBtn := widget.NewButton("Clear", lp.Clear)
	hideBtn := widget.NewButton("Hide", lp.Hide)

	content := container.NewBorder(
		container.NewHBox(markBtn, clearBtn, hideBtn),
		nil, nil, nil,
		container.NewScroll(lp.textArea),
	)
	lp.window.SetContent(content)
	lp.window.Resize(fyne.NewSize(800, 600))
	lp.window.SetCloseIntercept(lp.Hide)

	return lp
}

// AddText appends one line, keeping the newest maxLogLines.
func (lp *LogPanel) AddText(text string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	lp.lines = append(lp.lines, text)
	if len(lp.lines) > maxLogLines {
		lp.lines = lp.lines[len(lp.lines)-maxLogLines:]
	}
	lp.textArea.SetText(strings.Join(lp.lines, "\n"))
}

func (lp *LogPanel) Clear() {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	lp.lines = nil
	lp.textArea.SetText("")
}

// Lines returns a copy of the buffered lines.
func (lp *LogPanel) Lines() []string {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return append([]string(nil), lp.lines...)
}

func (lp *LogPanel) Show() {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.isVisible = true
	lp.window.Show()
}

func (lp *LogPanel) Hide() {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.isVisible = false
	lp.window.Hide()
}

func (lp *LogPanel) IsVisible() bool {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.isVisible
}

// LogWriter feeds log output into a LogPanel, one entry per line.
type LogWriter struct {
	panel *LogPanel
}

func NewLogWriter(panel *LogPanel) *LogWriter {
	return &LogWriter{panel: panel}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.panel.AddText(line)
		}
	}
	return len(p), nil
}
