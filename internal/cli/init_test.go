package cli

import (
	"errors"
	"testing"
	"time"

	"ledgerlens/internal/config"
	"ledgerlens/internal/sink"
)

func TestParseUserDate(t *testing.T) {
	now := time.Date(2024, 5, 17, 10, 32, 50, 0, time.UTC)
	tests := []struct {
		year, month, day string
		want             string
		wantErr          bool
	}{
		{"2020", "07", "22", "2020-07-22 10:32:50", false},
		{"2020", "7", "2", "2020-07-02 10:32:50", false},
		{"", "07", "22", "2024-05-17 10:32:50", false},
		{"", "", "", "2024-05-17 10:32:50", false},
		{"2021", "02", "30", "", true},
		{"2021", "13", "01", "", true},
		{"20x1", "01", "01", "", true},
	}
	for _, tt := range tests {
		got, err := ParseUserDate(tt.year, tt.month, tt.day, now)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDate) {
				t.Errorf("ParseUserDate(%q, %q, %q): expected ErrInvalidDate, got %v", tt.year, tt.month, tt.day, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseUserDate(%q, %q, %q) = %q, %v; want %q", tt.year, tt.month, tt.day, got, err, tt.want)
		}
	}
}

func TestQuotesConfig(t *testing.T) {
	cfg := &config.Config{FixerAPIKey: "f", AlphaVantageAPIKey: "a", QuoteConcurrency: 3, QuoteTimeout: time.Second}
	q := QuotesConfig(cfg)
	if q.FixerAPIKey != "f" || q.AlphaVantageAPIKey != "a" || q.Concurrency != 3 || q.Timeout != time.Second {
		t.Fatalf("unexpected quotes config %+v", q)
	}
}

func TestReportPublisherDisabled(t *testing.T) {
	p, err := ReportPublisher(&config.Config{}, nil)
	if err != nil || p != nil {
		t.Fatalf("expected no publisher without AMQP_URL, got %v, %v", p, err)
	}
	if _, ok := ResultSink("result.json", p).(sink.File); !ok {
		t.Fatalf("expected a plain file sink without publisher")
	}
}

func TestSetupLogger(t *testing.T) {
	l := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, "cli")
	if l.Component() != "cli" {
		t.Fatalf("component = %q", l.Component())
	}
}
