package engine

import "strings"

// markerScanner detects non-overlapping <tool_call>...</tool_call> marker
// pairs across a stream of UTF-8 pieces, forwarding text outside markers
// and buffering the JSON payload of text inside them. It is fed one
// decoded piece at a time and may itself be fed a piece that splits a
// marker across a token boundary, so it carries a small amount of
// unclassified text between calls.
type markerScanner struct {
	buffering bool
	payload   strings.Builder
	carry     string
}

// scannerEvent is either forwarded text or a completed tool-call payload.
type scannerEvent struct {
	text        string
	toolPayload []byte
	isToolCall  bool
}

// Feed processes one decoded piece and returns zero or more events in
// order. Forwarded text events are always non-empty; a toolPayload event
// fires once per closed marker pair.
func (m *markerScanner) Feed(piece string) []scannerEvent {
	var events []scannerEvent
	text := m.carry + piece
	m.carry = ""

	for {
		if !m.buffering {
			idx := strings.Index(text, toolCallOpenMarker)
			if idx < 0 {
				carry, emit := splitTrailingPartialMatch(text, toolCallOpenMarker)
				m.carry = carry
				if emit != "" {
					events = append(events, scannerEvent{text: emit})
				}
				return events
			}
			if idx > 0 {
				events = append(events, scannerEvent{text: text[:idx]})
			}
			m.buffering = true
			m.payload.Reset()
			text = text[idx+len(toolCallOpenMarker):]
			continue
		}

		idx := strings.Index(text, toolCallCloseMarker)
		if idx < 0 {
			m.payload.WriteString(text)
			return events
		}
		m.payload.WriteString(text[:idx])
		m.buffering = false
		events = append(events, scannerEvent{toolPayload: []byte(m.payload.String()), isToolCall: true})
		m.payload.Reset()
		text = text[idx+len(toolCallCloseMarker):]
	}
}

// Flush returns any text carried over with no further piece expected (end
// of generation while not buffering a tool call). A still-open marker at
// end of stream is the engine's responsibility to flush as a best-effort
// tool-call parse attempt, not this scanner's.
func (m *markerScanner) Flush() string {
	out := m.carry
	m.carry = ""
	return out
}

// Buffering reports whether a <tool_call> marker is currently open.
func (m *markerScanner) Buffering() bool {
	return m.buffering
}

// PendingPayload returns the text buffered so far inside an open marker.
func (m *markerScanner) PendingPayload() []byte {
	return []byte(m.payload.String())
}

// splitTrailingPartialMatch returns (carry, emit) such that emit+carry ==
// text, carry is the longest suffix of text that is a proper prefix of
// marker, and emit is safe to forward as ordinary token text now.
func splitTrailingPartialMatch(text, marker string) (carry, emit string) {
	maxLen := len(marker) - 1
	if maxLen > len(text) {
		maxLen = len(text)
	}
	for l := maxLen; l > 0; l-- {
		suffix := text[len(text)-l:]
		if strings.HasPrefix(marker, suffix) {
			return suffix, text[:len(text)-l]
		}
	}
	return "", text
}
