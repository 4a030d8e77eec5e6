package bmschart

import (
	"sort"
	"strconv"

	"golang.org/x/exp/slices"
)

// TimingMode selects how measure positions are turned into milliseconds.
type TimingMode int

const (
	// TimingCumulative integrates every preceding measure length and tempo
	// change.
	TimingCumulative TimingMode = iota
	// TimingReference places measure m at m*4 beats of the tempo in effect
	// when the position is resolved, and resolves notes with the tempo of the
	// chronologically last timing point, as older decoders do.
	TimingReference
)

func (m TimingMode) String() string {
	switch m {
	case TimingCumulative:
		return "cumulative"
	case TimingReference:
		return "reference"
	}
	return "TimingMode(" + strconv.Itoa(int(m)) + ")"
}

func ParseTimingMode(s string) (TimingMode, bool) {
	switch s {
	case "cumulative", "":
		return TimingCumulative, true
	case "reference":
		return TimingReference, true
	}
	return TimingCumulative, false
}

type tempoPoint struct {
	TimingPoint
	beat float64 // absolute beat, cumulative mode only
}

type timeline struct {
	mode    TimingMode
	lengths map[int]float64
	offsets []float64 // beat at which measure i starts

	points []tempoPoint // construction order
	sorted []TimingPoint
}

// resolveTimeline builds the timing points from the tempo events of ctx.
// events must already be sorted by (measure, position).
func resolveTimeline(ctx *DecoderContext, events []RawEvent, mode TimingMode) *timeline {
	tl := &timeline{
		mode:    mode,
		lengths: ctx.MeasureLengths,
		offsets: []float64{0},
	}
	tl.points = append(tl.points, tempoPoint{
		TimingPoint: TimingPoint{Time: 0, BeatLength: 60000 / ctx.Metadata.InitialBPM},
	})

	// index of the latest point by time so far; its tempo is the one in effect
	latest := 0
	for _, e := range events {
		bpm, ok := ctx.tempoOf(e)
		if !ok {
			continue
		}
		cur := tl.points[latest]

		var p tempoPoint
		switch mode {
		case TimingReference:
			p.Time = tl.referenceTime(e.Measure, e.Position, cur.BeatLength)
		default:
			p.beat = tl.beatAt(e.Measure, e.Position)
			p.Time = cur.Time + (p.beat-cur.beat)*cur.BeatLength
		}
		p.BeatLength = 60000 / bpm

		tl.points = append(tl.points, p)
		if p.Time >= cur.Time {
			latest = len(tl.points) - 1
		}
	}

	tl.sorted = make([]TimingPoint, len(tl.points))
	for i, p := range tl.points {
		tl.sorted[i] = p.TimingPoint
	}
	slices.SortStableFunc(tl.sorted, func(a, b TimingPoint) bool {
		return a.Time < b.Time
	})
	return tl
}

func (ctx *DecoderContext) tempoOf(e RawEvent) (float64, bool) {
	switch e.Channel {
	case ChannelBPM:
		v, err := strconv.ParseUint(e.Code, 16, 32)
		if err != nil || v == 0 {
			return 0, false
		}
		return float64(v), true
	case ChannelExtendedBPM:
		v, ok := ctx.BPMs[e.Code]
		return v, ok
	}
	return 0, false
}

func (tl *timeline) length(measure int) float64 {
	if l, ok := tl.lengths[measure]; ok {
		return l
	}
	return 1.0
}

func (tl *timeline) measureStart(measure int) float64 {
	for len(tl.offsets) <= measure {
		k := len(tl.offsets) - 1
		tl.offsets = append(tl.offsets, tl.offsets[k]+4*tl.length(k))
	}
	return tl.offsets[measure]
}

func (tl *timeline) beatAt(measure int, position float64) float64 {
	return tl.measureStart(measure) + position*4*tl.length(measure)
}

func (tl *timeline) referenceTime(measure int, position, msPerBeat float64) float64 {
	return float64(measure)*4*msPerBeat + position*4*tl.length(measure)*msPerBeat
}

// timeAt resolves a position for notes and other objects.
func (tl *timeline) timeAt(measure int, position float64) float64 {
	if tl.mode == TimingReference {
		last := tl.sorted[len(tl.sorted)-1]
		return tl.referenceTime(measure, position, last.BeatLength)
	}

	b := tl.beatAt(measure, position)
	// points are in beat order in cumulative mode; take the last one at or before b
	i := sort.Search(len(tl.points), func(i int) bool {
		return tl.points[i].beat > b
	}) - 1
	if i < 0 {
		i = 0
	}
	p := tl.points[i]
	return p.Time + (b-p.beat)*p.BeatLength
}

// TimingPoints returns the resolved points ordered by time.
func (tl *timeline) TimingPoints() []TimingPoint {
	return tl.sorted
}
