package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds reward statistics across episodes.
type Summary struct {
	Episodes        int
	MeanReward      float64
	StdDevReward    float64
	MinReward       float64
	MaxReward       float64
	MeanInBandRatio float64
}

// Summarize computes reward statistics. StdDevReward is the sample standard
// deviation and is zero for fewer than two episodes.
func Summarize(results []EpisodeResult) Summary {
	s := Summary{Episodes: len(results)}
	if len(results) == 0 {
		return s
	}

	rewards := make([]float64, len(results))
	ratios := make([]float64, len(results))
	for i, r := range results {
		rewards[i] = r.TotalReward
		ratios[i] = r.InBandRatio()
	}

	s.MeanReward = stat.Mean(rewards, nil)
	if len(rewards) > 1 {
		s.StdDevReward = stat.StdDev(rewards, nil)
	}
	s.MinReward = floats.Min(rewards)
	s.MaxReward = floats.Max(rewards)
	s.MeanInBandRatio = stat.Mean(ratios, nil)
	return s
}

var csvHeader = []string{"Episode", "ID", "Steps", "TotalReward", "InBandDays", "InBandRatio", "FinalMoisture", "FinalStage"}

// CSVRecorder appends one row per episode to w.
type CSVRecorder struct {
	mu sync.Mutex
	w  *csv.Writer
}

// NewCSVRecorder writes the header row and returns the recorder.
func NewCSVRecorder(w io.Writer) (*CSVRecorder, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing stats header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("writing stats header: %w", err)
	}
	return &CSVRecorder{w: cw}, nil
}

func (c *CSVRecorder) Record(r EpisodeResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := []string{
		strconv.Itoa(r.Episode),
		r.ID,
		strconv.Itoa(r.Steps),
		strconv.FormatFloat(r.TotalReward, 'f', 1, 64),
		strconv.Itoa(r.InBandDays),
		strconv.FormatFloat(r.InBandRatio(), 'f', 3, 64),
		strconv.FormatFloat(r.FinalMoisture, 'f', 2, 64),
		strconv.Itoa(r.FinalStage),
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}
