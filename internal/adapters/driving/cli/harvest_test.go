package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
)

func TestParseFromDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "empty means no lower bound",
			in:   "",
			want: time.Time{},
		},
		{
			name: "plain date",
			in:   "2016-04-06",
			want: time.Date(2016, 4, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "rfc3339",
			in:   "2016-04-06T15:17:46Z",
			want: time.Date(2016, 4, 6, 15, 17, 46, 0, time.UTC),
		},
		{
			name:    "garbage",
			in:      "not-a-date",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFromDate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestPathSafe(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"stackoverflow", "stackoverflow"},
		{"https://example.com/repo.git", "https___example.com_repo.git"},
		{"C:\\repos\\wc", "C__repos_wc"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pathSafe(tt.in))
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/grimoirelab-perceval.git", "grimoirelab-perceval"},
		{"https://example.com/repo/", "repo"},
		{"repo.git", "repo"},
		{"", "repo"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, repoName(tt.in))
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	sink := jsonSink(&buf)

	require.NoError(t, sink(domain.StampedRecord{
		UUID:           "aaa",
		Origin:         "stackoverflow",
		BackendName:    "StackExchange",
		BackendVersion: "0.1.0",
		UpdatedOn:      1459975066,
		Timestamp:      1500000000,
		Data:           domain.Record{"question_id": float64(25)},
	}))

	var got domain.StampedRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "aaa", got.UUID)
	assert.Equal(t, int64(1459975066), got.UpdatedOn)
	assert.Equal(t, float64(25), got.Data["question_id"])

	// Indented output, one object per record, newline terminated.
	assert.Contains(t, buf.String(), "\n    \"uuid\": \"aaa\"")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}
