package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/nao1215/crosslink/internal/model"
)

type pageResponse struct {
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
}

type pairResponse struct {
	Candidates []wireCandidate `json:"candidates"`
}

// wireCandidate is a candidate as the model writes it.
type wireCandidate struct {
	LinkFrom     string `json:"linkFrom"`
	LinkFromText string `json:"linkFromText"`
	LinkTo       string `json:"linkTo"`
	LinkToReason string `json:"linkToReason"`
	LinkScore    score  `json:"linkScore"`
}

// score accepts a JSON number or a numeric string such as "80" or "80%".
// Anything else decodes to NaN so that only this candidate is rejected.
type score float64

// UnmarshalJSON implements json.Unmarshaler.
func (s *score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = score(math.NaN())
		return nil
	}
	text := string(data)
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(data, &text); err != nil {
			*s = score(math.NaN())
			return nil //nolint:nilerr // an unreadable score only invalidates this candidate
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "%")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		f = math.NaN()
	}
	*s = score(f)
	return nil
}

func toCandidates(in []wireCandidate) []model.IntersectionCandidate {
	out := make([]model.IntersectionCandidate, 0, len(in))
	for _, c := range in {
		out = append(out, model.IntersectionCandidate{
			LinkFrom:     c.LinkFrom,
			LinkFromText: c.LinkFromText,
			LinkTo:       c.LinkTo,
			LinkToReason: c.LinkToReason,
			LinkScore:    float64(c.LinkScore),
		})
	}
	return out
}

var errEmptyContent = errors.New("empty response content")

// decodeJSON unmarshals content into v, repairing malformed JSON once.
func decodeJSON(content string, v any) error {
	content = stripFence(content)
	if content == "" {
		return errEmptyContent
	}
	err := json.Unmarshal([]byte(content), v)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return errors.Join(err, repairErr)
	}
	return json.Unmarshal([]byte(repaired), v)
}

// decodeCandidates accepts {"candidates": [...]} or a bare array.
func decodeCandidates(content string) ([]model.IntersectionCandidate, error) {
	trimmed := stripFence(content)
	if strings.HasPrefix(trimmed, "[") {
		var list []wireCandidate
		if err := decodeJSON(trimmed, &list); err != nil {
			return nil, err
		}
		return toCandidates(list), nil
	}

	var out pairResponse
	if err := decodeJSON(trimmed, &out); err != nil {
		return nil, err
	}
	return toCandidates(out.Candidates), nil
}

// stripFence removes a surrounding markdown code fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// cleanKeywords trims keywords and drops blanks, duplicates and the title.
func cleanKeywords(keywords []string, title string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" || strings.EqualFold(k, title) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
