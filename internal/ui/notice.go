package ui

import (
	"strings"
	"time"
)

type noticeLevel int

const (
	levelInfo noticeLevel = iota
	levelSuccess
	levelError
)

const maxNotices = 3

// notice is a transient toast shown above the footer.
type notice struct {
	text  string
	level noticeLevel
	at    time.Time
}

func (m *Model) notify(level noticeLevel, text string) {
	m.notices = append(m.notices, notice{text: text, level: level, at: m.now()})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m *Model) pruneNotices(now time.Time) {
	kept := m.notices[:0]
	for _, n := range m.notices {
		// Errors stay twice as long.
		ttl := m.noticeTTL
		if n.level == levelError {
			ttl *= 2
		}
		if now.Sub(n.at) < ttl {
			kept = append(kept, n)
		}
	}
	m.notices = kept
}

func (m Model) renderNotices(styles Styles) string {
	if len(m.notices) == 0 {
		return ""
	}
	lines := make([]string, len(m.notices))
	for i, n := range m.notices {
		switch n.level {
		case levelSuccess:
			lines[i] = styles.SuccessText.Render("✓ " + n.text)
		case levelError:
			lines[i] = styles.DangerText.Render("✗ " + n.text)
		default:
			lines[i] = styles.InfoText.Render("• " + n.text)
		}
	}
	return strings.Join(lines, "\n")
}
