package state

// LogBuffer keeps free-text trace lines per entity, oldest first.
type LogBuffer struct {
	lines   map[string][]string
	maxLogs int
}

func NewLogBuffer(maxLogs int) *LogBuffer {
	return &LogBuffer{lines: make(map[string][]string), maxLogs: maxLogs}
}

func (b *LogBuffer) Append(key, line string) {
	ls := b.lines[key]
	if b.maxLogs > 0 && len(ls) >= b.maxLogs {
		ls = ls[len(ls)-b.maxLogs+1:]
	}
	b.lines[key] = append(ls, line)
}

// All returns a copy of the lines in store order (oldest first).
func (b *LogBuffer) All(key string) []string {
	ls, ok := b.lines[key]
	if !ok {
		return nil
	}
	out := make([]string, len(ls))
	copy(out, ls)
	return out
}

// Newest returns up to n lines, newest first. n <= 0 means all.
func (b *LogBuffer) Newest(key string, n int) []string {
	ls := b.lines[key]
	if n <= 0 || n > len(ls) {
		n = len(ls)
	}
	out := make([]string, 0, n)
	for i := len(ls) - 1; i >= len(ls)-n; i-- {
		out = append(out, ls[i])
	}
	return out
}

// Last returns the most recent line.
func (b *LogBuffer) Last(key string) (string, bool) {
	ls := b.lines[key]
	if len(ls) == 0 {
		return "", false
	}
	return ls[len(ls)-1], true
}

func (b *LogBuffer) Has(key string) bool {
	_, ok := b.lines[key]
	return ok
}

func (b *LogBuffer) Reset() { b.lines = make(map[string][]string) }
