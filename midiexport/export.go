// Package midiexport writes decoded charts as Standard MIDI Files, one key
// per column, so a chart's rhythm can be auditioned in any sequencer.
package midiexport

import (
	"bytes"
	"io"
	"os"

	"github.com/Shimi9999/bmschart"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/exp/slices"
)

type Options struct {
	Resolution uint16 // ticks per quarter note
	Channel    uint8
	BaseKey    uint8 // key of column 0
	Velocity   uint8
	TapTicks   uint32 // length of a tap note
}

// DefaultOptions puts the chart on the General MIDI drum channel starting at
// the bass drum.
func DefaultOptions() Options {
	return Options{
		Resolution: 960,
		Channel:    9,
		BaseKey:    36,
		Velocity:   100,
		TapTicks:   120,
	}
}

type event struct {
	tick uint64
	// at the same tick: tempo, then note off, then note on
	order int
	msg   []byte
}

// Build converts chart into a single track SMF.
func Build(chart *bmschart.Chart, opts Options) (*smf.SMF, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.Resolution)
	tm := newTickMap(chart.TimingPoints, opts.Resolution)

	var events []event
	for _, tp := range chart.TimingPoints {
		events = append(events, event{tick: tm.tick(tp.Time), order: 0, msg: smf.MetaTempo(tp.BPM())})
	}
	for _, n := range chart.Notes {
		key := opts.BaseKey + uint8(n.Column)
		if key > 127 {
			continue
		}
		on := tm.tick(n.Time)
		off := on + uint64(opts.TapTicks)
		if n.IsHold() {
			off = tm.tick(n.EndTime())
		}
		if off <= on {
			off = on + 1
		}
		events = append(events,
			event{tick: on, order: 2, msg: midi.NoteOn(opts.Channel, key, opts.Velocity)},
			event{tick: off, order: 1, msg: midi.NoteOff(opts.Channel, key)},
		)
	}
	slices.SortStableFunc(events, func(a, b event) bool {
		if a.tick != b.tick {
			return a.tick < b.tick
		}
		return a.order < b.order
	})

	var tr smf.Track
	if title := chart.Metadata.Title; title != "" {
		tr.Add(0, smf.MetaTrackSequenceName(title))
	}
	var last uint64
	for _, e := range events {
		tr.Add(uint32(e.tick-last), e.msg)
		last = e.tick
	}
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		return nil, err
	}
	return s, nil
}

func Write(w io.Writer, chart *bmschart.Chart, opts Options) error {
	s, err := Build(chart, opts)
	if err != nil {
		return err
	}
	_, err = s.WriteTo(w)
	return err
}

func WriteFile(path string, chart *bmschart.Chart, opts Options) error {
	var buf bytes.Buffer
	if err := Write(&buf, chart, opts); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// tickMap converts chart milliseconds to ticks by integrating beats over the
// timing points.
type tickMap struct {
	points     []bmschart.TimingPoint
	beats      []float64 // beat position of each point
	resolution float64
}

func newTickMap(points []bmschart.TimingPoint, resolution uint16) *tickMap {
	tm := &tickMap{points: points, resolution: float64(resolution)}
	tm.beats = make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		tm.beats[i] = tm.beats[i-1] + (points[i].Time-prev.Time)/prev.BeatLength
	}
	return tm
}

func (tm *tickMap) tick(ms float64) uint64 {
	if len(tm.points) == 0 || ms <= 0 {
		return 0
	}
	i := len(tm.points) - 1
	for i > 0 && tm.points[i].Time > ms {
		i--
	}
	p := tm.points[i]
	beat := tm.beats[i] + (ms-p.Time)/p.BeatLength
	return uint64(beat*tm.resolution + 0.5)
}
