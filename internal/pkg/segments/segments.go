package segments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/edugrade/segma/internal/pkg/utils"
)

// Segment is one of ten labeled time offsets within a listening audio file.
// IDs 1-5 are Part 1 short items, 6-10 are Part 2 long items.
type Segment struct {
	ID        int     `json:"id"`
	StartTime float64 `json:"startTime"`
	Label     string  `json:"label"`
}

// ExpectedCount is the fixed segment list size the model must return
const ExpectedCount = 10

type segmentsDoc struct {
	Segments []Segment `json:"segments"`
}

// Decode turns raw model output into a segment list.
// Markdown code fences are stripped before parsing - model output is not
// guaranteed to be fence free. A JSON syntax failure returns ErrParse with
// the raw text kept for diagnostics, a missing 'segments' key or a wrong
// element shape returns ErrValidation.
func Decode(raw string) ([]Segment, error) {
	clean := StripFences(raw)
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &doc); err != nil {
		return nil, utils.NewErrParse(err, raw)
	}
	segData, ok := doc["segments"]
	if !ok {
		return nil, utils.NewErrValidation("no 'segments' key in model response")
	}
	var res []Segment
	if err := json.Unmarshal(segData, &res); err != nil {
		return nil, utils.NewErrValidation(fmt.Sprintf("'segments' is not a segment array: %v", err))
	}
	return res, nil
}

// StripFences drops markdown code fence delimiters around a JSON payload
func StripFences(s string) string {
	res := strings.TrimSpace(s)
	if strings.HasPrefix(res, "```json") {
		res = strings.TrimPrefix(res, "```json")
		res = strings.TrimSuffix(res, "```")
	} else if strings.HasPrefix(res, "```") {
		res = strings.TrimPrefix(res, "```")
		res = strings.TrimSuffix(res, "```")
	}
	return strings.TrimSpace(res)
}

// Validate checks the fixed list shape: exactly ten entries, ids 1..10,
// no duplicates, non-negative start times. Non-decreasing start times are
// expected of a well formed recording but a violation is only logged -
// the model's ordering is trusted as is.
func Validate(segs []Segment) error {
	if len(segs) != ExpectedCount {
		return utils.NewErrValidation(fmt.Sprintf("expected %d segments, got %d", ExpectedCount, len(segs)))
	}
	seen := map[int]bool{}
	for _, s := range segs {
		if s.ID < 1 || s.ID > ExpectedCount {
			return utils.NewErrValidation(fmt.Sprintf("segment id %d out of range 1..%d", s.ID, ExpectedCount))
		}
		if seen[s.ID] {
			return utils.NewErrValidation(fmt.Sprintf("duplicate segment id %d", s.ID))
		}
		seen[s.ID] = true
		if s.StartTime < 0 {
			return utils.NewErrValidation(fmt.Sprintf("segment %d has negative start time", s.ID))
		}
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].StartTime < segs[i-1].StartTime {
			goapp.Log.Warn().Int("id", segs[i].ID).Float64("startTime", segs[i].StartTime).
				Msg("non-monotonic segment start time")
			break
		}
	}
	return nil
}

// Marshal encodes a segment list the way it is persisted
func Marshal(segs []Segment) (string, error) {
	b, err := json.Marshal(segs)
	if err != nil {
		return "", fmt.Errorf("can't marshal segments: %w", err)
	}
	return string(b), nil
}

// Unmarshal decodes a persisted segment list
func Unmarshal(s string) ([]Segment, error) {
	var res []Segment
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, fmt.Errorf("can't unmarshal segments: %w", err)
	}
	return res, nil
}

// Active returns the segment playing at time t, assuming segs is sorted by id.
// It is the segment whose start time is <= t while the next segment (if any)
// starts after t. Returns false if t precedes the first start or the list is empty.
func Active(segs []Segment, t float64) (Segment, bool) {
	for i := range segs {
		if t >= segs[i].StartTime {
			if i == len(segs)-1 || t < segs[i+1].StartTime {
				return segs[i], true
			}
		}
	}
	return Segment{}, false
}
