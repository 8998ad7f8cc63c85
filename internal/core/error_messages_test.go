package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped source error wins over connection detail",
			err:         fmt.Errorf("%w: dial tcp: connection refused", ErrSourceUnavailable),
			wantCode:    "SRC001",
			wantMessage: "The indicator data could not be loaded",
		},
		{
			name:        "empty selection",
			err:         fmt.Errorf("snapshot: %w", ErrEmptySelection),
			wantCode:    "SEL001",
			wantMessage: "No data for the current selection",
		},
		{
			name:        "invalid search",
			err:         fmt.Errorf("%w: \"abc\" is not a number", ErrInvalidSearch),
			wantCode:    "SRCH001",
			wantMessage: "The search term does not match the column type",
		},
		{
			name:        "metric unavailable",
			err:         fmt.Errorf("%w: unemployment", ErrMetricUnavailable),
			wantCode:    "MET001",
			wantMessage: "The requested metric is not available",
		},
		{
			name:        "invalid filter",
			err:         fmt.Errorf("%w: unknown region \"XX\"", ErrInvalidFilter),
			wantCode:    "FLT001",
			wantMessage: "The filter is outside the available data",
		},
		{
			name:        "no region column",
			err:         ErrNoRegionColumn,
			wantCode:    "REG001",
			wantMessage: "The data has no region column",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "deadline before generic timeout",
			err:         errors.New("context deadline exceeded (timeout)"),
			wantCode:    "REQ003",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("SOURCE UNAVAILABLE"),
			wantCode:    "SRC001",
			wantMessage: "The indicator data could not be loaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrEmptySelection)

	expected := "No data for the current selection (Code: SEL001). Widen the year range or select more regions"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrInvalidFilter,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
