package vnstock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCols []string
		wantRows [][]any
	}{
		{
			name:     "empty body",
			body:     "  ",
			wantCols: []string{},
			wantRows: [][]any{},
		},
		{
			name:     "split orientation",
			body:     `{"columns":["time","close","volume"],"index":[0,1],"data":[["2024-01-02",23.1,1500],["2024-01-03",23.4,900]]}`,
			wantCols: []string{"time", "close", "volume"},
			wantRows: [][]any{{"2024-01-02", 23.1, int64(1500)}, {"2024-01-03", 23.4, int64(900)}},
		},
		{
			name:     "records orientation sorts columns",
			body:     `[{"short_name":"SSISCA","nav":21000.5},{"short_name":"VESAF","nav":30000,"fund_type":"STOCK"}]`,
			wantCols: []string{"fund_type", "nav", "short_name"},
			wantRows: [][]any{{nil, 21000.5, "SSISCA"}, {"STOCK", int64(30000), "VESAF"}},
		},
		{
			name:     "empty records",
			body:     `[]`,
			wantCols: []string{},
			wantRows: [][]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, f.Columns)
			assert.Equal(t, tt.wantRows, f.Rows)
		})
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "scalar", body: `42`},
		{name: "object without columns", body: `{"data":[[1]]}`},
		{name: "ragged row", body: `{"columns":["a","b"],"data":[[1]]}`},
		{name: "truncated", body: `[{"a":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(tt.body))
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestFrame_Len(t *testing.T) {
	f := &Frame{Columns: []string{"a", "b"}, Rows: [][]any{{1, 2}, {3, 4}}}
	assert.Equal(t, 2, f.Len())

	var nilFrame *Frame
	assert.Equal(t, 0, nilFrame.Len())
}
