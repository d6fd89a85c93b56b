// Package transcript records conversation turns and exports them at the end
// of a session. Utterances are append-only: once recorded they are never
// edited or removed, and export order is always insertion order.
package transcript

import (
	"encoding/csv"
	"io"
	"os"
	"sync"
	"time"
)

// Speaker identifies who produced an utterance.
type Speaker int

const (
	SpeakerSystem Speaker = iota
	SpeakerUser
	SpeakerAI
)

func (s Speaker) String() string {
	switch s {
	case SpeakerSystem:
		return "System"
	case SpeakerUser:
		return "User"
	case SpeakerAI:
		return "AI"
	default:
		return "Unknown"
	}
}

// Label returns the speaker label used in the exported transcript. The
// Japanese labels are kept as-is so existing summarizer tooling keeps working.
func (s Speaker) Label() string {
	switch s {
	case SpeakerSystem:
		return "システム"
	case SpeakerUser:
		return "ユーザー"
	case SpeakerAI:
		return "AI"
	default:
		return "?"
	}
}

// Utterance is one recorded turn. Immutable once appended to a Log.
type Utterance struct {
	Speaker   Speaker
	Text      string
	Timestamp time.Time
}

// Log accumulates utterances in strict chronological order. Appends are
// ordered by the sequence in which steps complete, so a single mutex is all
// the coordination needed.
type Log struct {
	mu      sync.Mutex
	entries []Utterance
}

func NewLog() *Log {
	return &Log{}
}

// Append records an utterance and returns it.
func (l *Log) Append(sp Speaker, text string) Utterance {
	u := Utterance{Speaker: sp, Text: text, Timestamp: time.Now()}
	l.mu.Lock()
	l.entries = append(l.entries, u)
	l.mu.Unlock()
	return u
}

// Utterances returns a copy of the recorded sequence.
func (l *Log) Utterances() []Utterance {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Utterance, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of recorded utterances.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// WriteCSV serializes the log. The header row is "User, AI" even though the
// rows underneath are chronological (speaker, text) pairs rather than aligned
// user/AI columns. The format is inherited and downstream tooling depends on
// it, so it is preserved verbatim.
func (l *Log) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"User", "AI"}); err != nil {
		return err
	}
	for _, u := range l.Utterances() {
		if err := cw.Write([]string{u.Speaker.Label(), u.Text}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the log to path, replacing any previous file.
func (l *Log) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := l.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
