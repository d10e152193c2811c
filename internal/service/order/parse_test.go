package order

import (
	"testing"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantNil    bool
		wantStatus core.OrderStatus
		wantPhone  string
	}{
		{
			name:       "bare json",
			output:     `{"order":null,"status":"collecting_data","response":"أهلاً"}`,
			wantStatus: core.StatusCollectingData,
		},
		{
			name:       "fenced json",
			output:     "```json\n{\"order\":{\"customerPhone\":\"010\"},\"status\":\"Complete\",\"response\":\"ok\"}\n```",
			wantStatus: core.StatusComplete,
			wantPhone:  "010",
		},
		{
			name:       "prose around object",
			output:     "Sure! Here you go: {\"status\":\"confirmed\",\"response\":\"done\"} hope that helps",
			wantStatus: core.StatusConfirmed,
		},
		{
			name:    "no object",
			output:  "I could not understand the request",
			wantNil: true,
		},
		{
			name:    "broken json",
			output:  `{"status": "complete", "response": }`,
			wantNil: true,
		},
		{
			name:    "empty object",
			output:  `{}`,
			wantNil: true,
		},
		{
			name:    "empty output",
			output:  "",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.output)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantPhone != "" {
				require.NotNil(t, got.Order)
				assert.Equal(t, tt.wantPhone, got.Order.CustomerPhone)
			}
		})
	}
}
