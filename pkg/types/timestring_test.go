package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeStringFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TimeString
		wantErr bool
	}{
		{name: "valid morning", input: "09:00", want: "09:00"},
		{name: "valid midnight", input: "00:00", want: "00:00"},
		{name: "valid last minute", input: "23:59", want: "23:59"},
		{name: "missing zero padding", input: "9:00", wantErr: true},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "garbage", input: "lunch", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTimeStringFromString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTimeStringFromTime(t *testing.T) {
	ts := NewTimeString(time.Date(2026, 3, 2, 14, 5, 59, 0, time.UTC))
	assert.Equal(t, TimeString("14:05"), ts)
	assert.NoError(t, ts.Validate())
}

func TestTimeStringMinutes(t *testing.T) {
	m, err := TimeString("09:30").Minutes()
	require.NoError(t, err)
	assert.Equal(t, 9*60+30, m)

	m, err = TimeString("00:00").Minutes()
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	_, err = TimeString("9:30").Minutes()
	require.Error(t, err)
}

func TestTimeStringComparison(t *testing.T) {
	open := TimeString("09:00")
	close := TimeString("18:00")

	assert.True(t, open.IsBefore(close))
	assert.False(t, close.IsBefore(open))
	assert.True(t, close.IsAfter(open))
	assert.False(t, open.IsBefore(open))
	assert.False(t, open.IsAfter(open))
}

func TestTimeStringAddMinutes(t *testing.T) {
	got, err := TimeString("09:00").AddMinutes(90)
	require.NoError(t, err)
	assert.Equal(t, TimeString("10:30"), got)

	got, err = TimeString("10:30").AddMinutes(-30)
	require.NoError(t, err)
	assert.Equal(t, TimeString("10:00"), got)

	// Смещение за пределы суток недопустимо
	_, err = TimeString("23:30").AddMinutes(45)
	require.Error(t, err)

	_, err = TimeString("00:15").AddMinutes(-30)
	require.Error(t, err)
}

func TestTimeStringIsZero(t *testing.T) {
	assert.True(t, TimeString("").IsZero())
	assert.False(t, TimeString("09:00").IsZero())
}
