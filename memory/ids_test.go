package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIDs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"none", "forget everything about lunch", []string{}},
		{"single", "delete 3f2b8c1e-9a4d-4e2f-8b7c-1d2e3f4a5b6c please", []string{"3f2b8c1e-9a4d-4e2f-8b7c-1d2e3f4a5b6c"}},
		{
			"several with duplicates and case",
			"3F2B8C1E-9A4D-4E2F-8B7C-1D2E3F4A5B6C, 0b9c8d7e-6f5a-4b3c-a2d1-e0f9a8b7c6d5 and 3f2b8c1e-9a4d-4e2f-8b7c-1d2e3f4a5b6c",
			[]string{"3f2b8c1e-9a4d-4e2f-8b7c-1d2e3f4a5b6c", "0b9c8d7e-6f5a-4b3c-a2d1-e0f9a8b7c6d5"},
		},
		{"not a uuid", "12345678-1234-1234-1234-12345678", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractIDs(tt.in))
		})
	}
}
