package skyline

import (
	"errors"
	"testing"
	"time"
)

func TestEvalContextValidate(t *testing.T) {
	tests := []struct {
		name    string
		ctx     EvalContext
		wantErr bool
	}{
		{name: "valid", ctx: EvalContext{Start: 0, End: 120_000, Step: 60_000}, wantErr: false},
		{name: "unaligned start", ctx: EvalContext{Start: 10, End: 120_000, Step: 60_000}, wantErr: true},
		{name: "unaligned end", ctx: EvalContext{Start: 0, End: 90_000, Step: 60_000}, wantErr: true},
		{name: "end equals start", ctx: EvalContext{Start: 60_000, End: 60_000, Step: 60_000}, wantErr: true},
		{name: "end before start", ctx: EvalContext{Start: 120_000, End: 60_000, Step: 60_000}, wantErr: true},
		{name: "zero step", ctx: EvalContext{Start: 0, End: 60_000, Step: 0}, wantErr: true},
		{name: "negative step", ctx: EvalContext{Start: 0, End: 60_000, Step: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ctx.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidContext) {
				t.Errorf("error %v is not ErrInvalidContext", err)
			}
		})
	}
}

func TestParseTimeRef(t *testing.T) {
	now := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)
	end := now
	start := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		ref  string
		want time.Time
	}{
		{name: "now", ref: "now", want: now},
		{name: "end anchor", ref: "e", want: end},
		{name: "start anchor", ref: "s", want: start},
		{name: "minus minutes", ref: "e-30m", want: end.Add(-30 * time.Minute)},
		{name: "minus hours", ref: "e-6h", want: end.Add(-6 * time.Hour)},
		{name: "minus days", ref: "e-1d", want: end.Add(-24 * time.Hour)},
		{name: "minus weeks", ref: "e-1w", want: end.Add(-7 * 24 * time.Hour)},
		{name: "plus offset", ref: "s+6h", want: start.Add(6 * time.Hour)},
		{name: "iso", ref: "2011-12-25T00:00:00Z", want: time.Date(2011, 12, 25, 0, 0, 0, 0, time.UTC)},
		{name: "epoch millis", ref: "1325376000000", want: now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeRef(tt.ref, start, end, now)
			if err != nil {
				t.Fatalf("ParseTimeRef(%q): %v", tt.ref, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimeRef(%q) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestParseTimeRefErrors(t *testing.T) {
	now := time.Now()
	for _, ref := range []string{"", "e-", "e-5x", "yesterday", "e-xw"} {
		if _, err := ParseTimeRef(ref, now, now, now); err == nil {
			t.Errorf("ParseTimeRef(%q) succeeded, want error", ref)
		}
	}
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2012, 1, 1, 0, 0, 30, 0, time.UTC)
	ctx, err := ResolveWindow("e-1w", "2012-01-01T00:00:00Z", 60_000, "UTC", now)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if err := ctx.Validate(); err != nil {
		t.Fatalf("resolved context invalid: %v", err)
	}
	wantEnd := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if ctx.End != wantEnd {
		t.Errorf("End = %d, want %d", ctx.End, wantEnd)
	}
	if ctx.End-ctx.Start != 7*24*60*60*1000 {
		t.Errorf("window = %d ms, want one week", ctx.End-ctx.Start)
	}
}

func TestResolveWindowDefaults(t *testing.T) {
	now := time.Date(2012, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx, err := ResolveWindow("", "", 60_000, "UTC", now)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if ctx.End-ctx.Start != 3*60*60*1000 {
		t.Errorf("default window = %d ms, want three hours", ctx.End-ctx.Start)
	}
}
