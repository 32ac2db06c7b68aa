package hardware

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCelsius(t *testing.T) {
	cases := []struct {
		desc string
		temp float64
		want ThermalState
	}{
		{desc: "idle", temp: 42, want: ThermalNominal},
		{desc: "just below moderate", temp: 74.9, want: ThermalNominal},
		{desc: "moderate boundary", temp: 75, want: ThermalModerate},
		{desc: "warm", temp: 84.9, want: ThermalModerate},
		{desc: "heavy boundary", temp: 85, want: ThermalHeavy},
		{desc: "hot", temp: 94.9, want: ThermalHeavy},
		{desc: "hotspot boundary", temp: 95, want: ThermalHotspot},
		{desc: "critical", temp: 104, want: ThermalHotspot},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyCelsius(tc.temp))
		})
	}
}

func TestClassifySpeedLimit(t *testing.T) {
	cases := []struct {
		desc  string
		limit int
		want  ThermalState
	}{
		{desc: "full speed", limit: 100, want: ThermalNominal},
		{desc: "light throttle", limit: 90, want: ThermalModerate},
		{desc: "throttle boundary", limit: 80, want: ThermalModerate},
		{desc: "half speed", limit: 50, want: ThermalHeavy},
		{desc: "crawling", limit: 25, want: ThermalHotspot},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, classifySpeedLimit(tc.limit))
		})
	}
}

func TestParseSpeedLimit(t *testing.T) {
	output := "Note: No thermal warning level has been recorded\n" +
		"Note: No performance warning level has been recorded\n" +
		"CPU Power notify levels\n" +
		"\tCPU_Scheduler_Limit \t= 100\n" +
		"\tCPU_Available_CPUs \t= 8\n" +
		"\tCPU_Speed_Limit \t= 72\n"

	limit, ok := parseSpeedLimit(output)
	require.True(t, ok)
	assert.Equal(t, 72, limit)

	_, ok = parseSpeedLimit("Note: No thermal warning level has been recorded\n")
	assert.False(t, ok)
}

func TestThermalStateJSON(t *testing.T) {
	for _, state := range []ThermalState{ThermalNominal, ThermalModerate, ThermalHeavy, ThermalHotspot} {
		data, err := json.Marshal(state)
		require.NoError(t, err)

		var got ThermalState
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, state, got)
	}

	var got ThermalState
	err := json.Unmarshal([]byte(`"volcanic"`), &got)
	assert.Error(t, err)
}
