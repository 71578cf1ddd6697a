package engine

import "testing"

func feedAll(t *testing.T, pieces []string) []scannerEvent {
	t.Helper()
	m := &markerScanner{}
	var all []scannerEvent
	for _, p := range pieces {
		all = append(all, m.Feed(p)...)
	}
	return all
}

func TestMarkerScannerForwardsPlainText(t *testing.T) {
	events := feedAll(t, []string{"hello ", "world"})
	if len(events) != 2 || events[0].text != "hello " || events[1].text != "world" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestMarkerScannerBuffersInsideMarker(t *testing.T) {
	events := feedAll(t, []string{"before", "<tool_call>", `{"name":"calculator"}`, "</tool_call>", "after"})
	if len(events) != 3 {
		t.Fatalf("expected 3 events (before, toolcall, after), got %+v", events)
	}
	if events[0].text != "before" {
		t.Fatalf("expected leading text forwarded, got %+v", events[0])
	}
	if !events[1].isToolCall || string(events[1].toolPayload) != `{"name":"calculator"}` {
		t.Fatalf("expected tool payload event, got %+v", events[1])
	}
	if events[2].text != "after" {
		t.Fatalf("expected trailing text forwarded, got %+v", events[2])
	}
}

func TestMarkerScannerHandlesMarkerSplitAcrossPieces(t *testing.T) {
	events := feedAll(t, []string{"x<tool_", "call>payload</tool_call>y"})
	var gotPayload bool
	for _, e := range events {
		if e.isToolCall {
			gotPayload = true
			if string(e.toolPayload) != "payload" {
				t.Fatalf("expected payload %q, got %q", "payload", e.toolPayload)
			}
		}
	}
	if !gotPayload {
		t.Fatalf("expected a tool call event when marker splits across pieces, got %+v", events)
	}
}

func TestMarkerScannerNeverForwardsTextInsideMarker(t *testing.T) {
	m := &markerScanner{}
	var forwarded string
	for _, p := range []string{"<tool_call>", "secret", "</tool_call>"} {
		for _, e := range m.Feed(p) {
			forwarded += e.text
		}
	}
	if forwarded != "" {
		t.Fatalf("expected no text forwarded while buffering, got %q", forwarded)
	}
}
