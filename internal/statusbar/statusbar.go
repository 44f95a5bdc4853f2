// internal/statusbar/statusbar.go
package statusbar

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg" // For proper Unicode width calculation
)

// Config defines the appearance and behavior of the status bar.
type Config struct {
	StyleDefault  tcell.Style // Default background/foreground
	StyleMessage  tcell.Style // Style for temporary messages
	StyleOverWarn tcell.Style // Style once the word count nears the limit
	MessageTimeout time.Duration
	WordLimit      int
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{
		StyleDefault:   tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorBlue),
		StyleMessage:   tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlue).Bold(true),
		StyleOverWarn:  tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorBlue).Bold(true),
		MessageTimeout: 4 * time.Second,
		WordLimit:      2000,
	}
}

// StatusBar represents the UI component for the status line.
type StatusBar struct {
	config Config
	mu     sync.RWMutex // Protect access to text fields

	// Content fields (updated externally)
	wordCount  int
	popupState string
	loading    bool

	// Temporary message state
	tempMessage     string
	tempMessageTime time.Time
}

// New creates a new StatusBar with the given configuration.
func New(config Config) *StatusBar {
	return &StatusBar{
		config: config,
	}
}

// SetWordCount updates the word count shown against the limit.
func (sb *StatusBar) SetWordCount(n int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.wordCount = n
}

// SetPopupState updates the displayed coordinator state.
func (sb *StatusBar) SetPopupState(state string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.popupState = state
}

// SetLoading toggles the in-flight transformation indicator.
func (sb *StatusBar) SetLoading(loading bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.loading = loading
}

// SetTemporaryMessage displays a message for a configured duration.
func (sb *StatusBar) SetTemporaryMessage(format string, args ...interface{}) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.tempMessage = fmt.Sprintf(format, args...)
	sb.tempMessageTime = time.Now()
}

// ResetTemporaryMessage clears any temporary message being displayed.
func (sb *StatusBar) ResetTemporaryMessage() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.tempMessage = ""
	sb.tempMessageTime = time.Time{}
}

// nearLimit reports whether the word count is within 10% of the limit.
func (sb *StatusBar) nearLimit() bool {
	return sb.config.WordLimit > 0 && sb.wordCount*10 >= sb.config.WordLimit*9
}

// getDefaultDisplayText builds the default status line text.
func (sb *StatusBar) getDefaultDisplayText() string {
	loadingIndicator := ""
	if sb.loading {
		loadingIndicator = " [working...]"
	}
	stateIndicator := ""
	if sb.popupState != "" {
		stateIndicator = fmt.Sprintf(" -- %s", sb.popupState)
	}
	return fmt.Sprintf("%d/%d words%s%s -- Esc close | Ctrl+Space show actions",
		sb.wordCount, sb.config.WordLimit, loadingIndicator, stateIndicator)
}

// Draw renders the status bar onto the screen using visual widths.
func (sb *StatusBar) Draw(screen tcell.Screen, width, height int) {
	if height <= 0 || width <= 0 {
		return
	}
	y := height - 1 // Status bar is always the last line

	sb.mu.Lock()
	isTempMsgActive := !sb.tempMessageTime.IsZero() && time.Since(sb.tempMessageTime) <= sb.config.MessageTimeout
	if !sb.tempMessageTime.IsZero() && !isTempMsgActive {
		sb.tempMessage = ""
		sb.tempMessageTime = time.Time{}
	}

	var style tcell.Style
	var text string
	if isTempMsgActive {
		text = sb.tempMessage
		style = sb.config.StyleMessage
	} else {
		text = sb.getDefaultDisplayText()
		if sb.nearLimit() {
			style = sb.config.StyleOverWarn
		} else {
			style = sb.config.StyleDefault
		}
	}
	sb.mu.Unlock()

	// Fill background first
	for x := 0; x < width; x++ {
		screen.SetContent(x, y, ' ', nil, style)
	}

	// Draw text using uniseg for width calculation
	gr := uniseg.NewGraphemes(text)
	currentX := 0
	for gr.Next() {
		clusterWidth := gr.Width()
		if currentX+clusterWidth > width {
			break // Stop if cluster doesn't fit
		}

		runes := gr.Runes()
		if len(runes) > 0 {
			mainRune := runes[0]
			var combiningRunes []rune
			if len(runes) > 1 {
				combiningRunes = runes[1:]
			}
			screen.SetContent(currentX, y, mainRune, combiningRunes, style)
		}
		currentX += clusterWidth
	}
}
