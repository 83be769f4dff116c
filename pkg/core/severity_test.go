package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverity_Ordering(t *testing.T) {
	assert.Less(t, SeverityNone, SeverityNotice)
	assert.Less(t, SeverityNotice, SeverityWarning)
	assert.Less(t, SeverityWarning, SeverityFailure)
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in     string
		want   Severity
		wantOK bool
	}{
		{"failure", SeverityFailure, true},
		{"ERROR", SeverityFailure, true},
		{"warning", SeverityWarning, true},
		{" warn ", SeverityWarning, true},
		{"notice", SeverityNotice, true},
		{"info", SeverityNotice, true},
		{"none", SeverityNone, true},
		{"bogus", SeverityNotice, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSeverity(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "failure", SeverityFailure.String())
	assert.Equal(t, "unknown", Severity(42).String())

	text, err := SeverityWarning.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "warning", string(text))
}

func TestQueries(t *testing.T) {
	qs := Queries("SELECT 1", "SELECT 2")
	assert.Len(t, qs, 2)
	assert.Equal(t, 0, qs[0].Index)
	assert.Equal(t, 1, qs[1].Index)
	assert.Equal(t, "SELECT 2", qs[1].SQL)

	qs[0].Duration = 2 * time.Millisecond
	qs[1].Duration = 3 * time.Millisecond
	assert.Equal(t, 5*time.Millisecond, TotalDuration(qs))
}
