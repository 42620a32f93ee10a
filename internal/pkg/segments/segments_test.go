package segments

import (
	"errors"
	"testing"

	"github.com/edugrade/segma/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain", raw: `{"segments": [{"id": 1, "startTime": 12.5, "label": "Conversation 1"}]}`},
		{name: "json fence", raw: "```json\n{\"segments\": [{\"id\": 1, \"startTime\": 12.5, \"label\": \"Conversation 1\"}]}\n```"},
		{name: "bare fence", raw: "```\n{\"segments\": [{\"id\": 1, \"startTime\": 12.5, \"label\": \"Conversation 1\"}]}\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode(tt.raw)
			require.Nil(t, err)
			require.Equal(t, 1, len(res))
			assert.Equal(t, Segment{ID: 1, StartTime: 12.5, Label: "Conversation 1"}, res[0])
		})
	}
}

func TestDecode_ParseError(t *testing.T) {
	raw := "```json\nnot a json at all\n```"
	_, err := Decode(raw)
	require.NotNil(t, err)
	var errParse *utils.ErrParse
	require.True(t, errors.As(err, &errParse))
	assert.Equal(t, raw, errParse.Raw)
}

func TestDecode_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no segments key", raw: `{"items": []}`},
		{name: "not an array", raw: `{"segments": {"id": 1}}`},
		{name: "wrong element shape", raw: `{"segments": [{"id": "one"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.NotNil(t, err)
			var errValidation *utils.ErrValidation
			assert.True(t, errors.As(err, &errValidation))
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`  {"a":1}  `))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		change  func(segs []Segment) []Segment
		wantErr bool
	}{
		{name: "ok", change: func(segs []Segment) []Segment { return segs }, wantErr: false},
		{name: "too few", change: func(segs []Segment) []Segment { return segs[:9] }, wantErr: true},
		{name: "too many", change: func(segs []Segment) []Segment { return append(segs, Segment{ID: 11}) }, wantErr: true},
		{name: "id out of range", change: func(segs []Segment) []Segment {
			segs[0].ID = 0
			return segs
		}, wantErr: true},
		{name: "duplicate id", change: func(segs []Segment) []Segment {
			segs[1].ID = 1
			return segs
		}, wantErr: true},
		{name: "negative start", change: func(segs []Segment) []Segment {
			segs[3].StartTime = -0.5
			return segs
		}, wantErr: true},
		{name: "non-monotonic accepted", change: func(segs []Segment) []Segment {
			segs[5].StartTime = 1
			return segs
		}, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.change(newTestSegments()))
			if tt.wantErr {
				var errValidation *utils.ErrValidation
				assert.True(t, errors.As(err, &errValidation), "err = %v", err)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	segs := newTestSegments()
	s, err := Marshal(segs)
	require.Nil(t, err)
	res, err := Unmarshal(s)
	require.Nil(t, err)
	assert.Equal(t, segs, res)
}

func TestActive(t *testing.T) {
	segs := []Segment{
		{ID: 1, StartTime: 0, Label: "Conversation 1"},
		{ID: 2, StartTime: 25.5, Label: "Conversation 2"},
		{ID: 3, StartTime: 75, Label: "Conversation 3"},
	}
	tests := []struct {
		name   string
		t      float64
		wantID int
		wantOK bool
	}{
		{name: "first", t: 10, wantID: 1, wantOK: true},
		{name: "second", t: 30, wantID: 2, wantOK: true},
		{name: "just before boundary", t: 74.9, wantID: 2, wantOK: true},
		{name: "at boundary", t: 75, wantID: 3, wantOK: true},
		{name: "past the end", t: 1000, wantID: 3, wantOK: true},
		{name: "before start", t: -1, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Active(segs, tt.t)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, res.ID)
			}
		})
	}
}

func TestActive_Empty(t *testing.T) {
	_, ok := Active(nil, 10)
	assert.False(t, ok)
}

func newTestSegments() []Segment {
	res := make([]Segment, ExpectedCount)
	for i := range res {
		res[i] = Segment{ID: i + 1, StartTime: float64(i) * 30, Label: "Conversation"}
	}
	return res
}
