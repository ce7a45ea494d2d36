package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/ranking"
)

// RankingResponse is the wire shape of a match run, shared with the local results file.
type RankingResponse struct {
	JobDescription string         `json:"job_description,omitempty"`
	Ranking        []RankingEntry `json:"ranking"`
}

type RankingEntry struct {
	Resume        string        `json:"resume"`
	TotalScore    float64       `json:"total_score"`
	SectionScores OrderedScores `json:"section_scores"`
}

// OrderedScores keeps the key order of a JSON object, which defines the column order.
type OrderedScores struct {
	Keys   []string
	Values map[string]float64
}

func NewOrderedScores(keys []string, values map[string]float64) OrderedScores {
	scores := OrderedScores{Values: make(map[string]float64, len(keys))}
	for _, k := range keys {
		if v, ok := values[k]; ok {
			scores.Keys = append(scores.Keys, k)
			scores.Values[k] = v
		}
	}
	return scores
}

func (o *OrderedScores) UnmarshalJSON(data []byte) error {
	o.Keys = nil
	o.Values = map[string]float64{}

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("section_scores: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("section_scores: unexpected key %v", tok)
		}

		var value float64
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("section_scores[%q]: %w", key, err)
		}

		if _, seen := o.Values[key]; !seen {
			o.Keys = append(o.Keys, key)
		}
		o.Values[key] = value
	}

	_, err = dec.Token()
	return err
}

func (o OrderedScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(o.Values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToBatch converts the wire response into a validated batch. Columns follow the
// key order of the first entry.
func (r *RankingResponse) ToBatch() (*ranking.Batch, error) {
	items := make([]*ranking.CandidateMatch, 0, len(r.Ranking))
	for _, entry := range r.Ranking {
		items = append(items, ranking.NewCandidateMatch(entry.Resume, entry.SectionScores.Values, entry.TotalScore))
	}

	var sections []string
	if len(r.Ranking) > 0 {
		sections = r.Ranking[0].SectionScores.Keys
	}

	return ranking.NewBatch(r.JobDescription, sections, items)
}

// FetchRanking returns the latest ranking batch of the matching service.
func (c *Client) FetchRanking(ctx context.Context) (*ranking.Batch, error) {
	var response RankingResponse
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(matchedCVsPath), nil, &response); err != nil {
		return nil, fmt.Errorf("fetch matched cvs: %w", err)
	}

	batch, err := response.ToBatch()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got ranking from the matching service",
		zap.String("batch_id", batch.ID),
		zap.Int("candidates", batch.Len()),
		zap.Strings("sections", batch.Sections),
	)

	return batch, nil
}
