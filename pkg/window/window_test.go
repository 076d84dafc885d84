package window

import (
	"testing"
	"time"
)

func collect(g *Generator) []Window {
	var windows []Window
	for {
		w, ok := g.Next()
		if !ok {
			return windows
		}
		windows = append(windows, w)
	}
}

func TestGeneratorExactPartition(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)

	g, err := NewGenerator(start, end, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	windows := collect(g)
	if len(windows) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(windows))
	}

	// Consecutive windows must tile the range with no gaps or overlap
	if !windows[0].Start.Equal(start) {
		t.Errorf("Expected first window to start at range start, got %v", windows[0].Start)
	}
	for i := 1; i < len(windows); i++ {
		if !windows[i].Start.Equal(windows[i-1].End) {
			t.Errorf("Window %d start %v does not meet previous end %v", i, windows[i].Start, windows[i-1].End)
		}
	}
	if !windows[len(windows)-1].End.Equal(end) {
		t.Errorf("Expected last window to end at range end, got %v", windows[len(windows)-1].End)
	}
}

func TestGeneratorTruncatedFinalWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2*time.Hour + 30*time.Minute)

	g, err := NewGenerator(start, end, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	windows := collect(g)
	if len(windows) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(windows))
	}

	last := windows[2]
	if last.Duration() != 30*time.Minute {
		t.Errorf("Expected truncated 30m final window, got %v", last.Duration())
	}
	if !last.End.Equal(end) {
		t.Errorf("Expected final window to end at range end, got %v", last.End)
	}
}

func TestGeneratorDegenerateRange(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("StartEqualsEnd", func(t *testing.T) {
		g, err := NewGenerator(at, at, time.Hour)
		if err != nil {
			t.Fatalf("Failed to create generator: %v", err)
		}
		if windows := collect(g); len(windows) != 0 {
			t.Errorf("Expected no windows, got %d", len(windows))
		}
		if g.Count() != 0 {
			t.Errorf("Expected count 0, got %d", g.Count())
		}
	})

	t.Run("StartAfterEnd", func(t *testing.T) {
		g, err := NewGenerator(at.Add(time.Hour), at, time.Hour)
		if err != nil {
			t.Fatalf("Failed to create generator: %v", err)
		}
		if windows := collect(g); len(windows) != 0 {
			t.Errorf("Expected no windows, got %d", len(windows))
		}
	})
}

func TestGeneratorInvalidGranularity(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := NewGenerator(at, at.Add(time.Hour), 0); err == nil {
		t.Error("Expected error for zero granularity")
	}
	if _, err := NewGenerator(at, at.Add(time.Hour), -time.Minute); err == nil {
		t.Error("Expected error for negative granularity")
	}
}

func TestGeneratorReset(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g, err := NewGenerator(start, start.Add(2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	first := collect(g)
	g.Reset()
	second := collect(g)

	if len(first) != len(second) {
		t.Fatalf("Expected same window count after reset, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) || !first[i].End.Equal(second[i].End) {
			t.Errorf("Window %d differs after reset: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestGeneratorCount(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		end         time.Time
		granularity time.Duration
		want        int
	}{
		{"exact", start.Add(24 * time.Hour), time.Hour, 24},
		{"truncated", start.Add(90 * time.Minute), time.Hour, 2},
		{"single", start.Add(time.Minute), time.Hour, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(start, tt.end, tt.granularity)
			if err != nil {
				t.Fatalf("Failed to create generator: %v", err)
			}
			if got := g.Count(); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
			if produced := len(collect(g)); produced != tt.want {
				t.Errorf("Produced %d windows, want %d", produced, tt.want)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
	}

	if !w.Contains(w.Start) {
		t.Error("Expected window to contain its start")
	}
	if w.Contains(w.End) {
		t.Error("Expected window to exclude its end")
	}
	if !w.Contains(w.Start.Add(30 * time.Minute)) {
		t.Error("Expected window to contain interior instant")
	}
}
