package bmschart

import (
	"io"
	"strings"

	"golang.org/x/exp/slices"
)

type DecodeOptions struct {
	// DefaultColumnCount is used when the chart has no notes.
	DefaultColumnCount int
	// Encodings is the fallback order for DecodeBytes and LoadBms.
	Encodings []string
	Timing    TimingMode
}

func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{
		DefaultColumnCount: 7,
		Encodings:          DefaultEncodings,
		Timing:             TimingCumulative,
	}
}

// Decode reads already decoded chart text and assembles a Chart. Malformed
// lines are ignored; an error is returned only when r cannot be read.
func Decode(r io.Reader, opts DecodeOptions) (*Chart, error) {
	ctx := NewDecoderContext()
	if err := ScanDirectives(r, ctx.Apply); err != nil {
		return nil, err
	}
	return ctx.Assemble(opts), nil
}

func DecodeString(text string, opts DecodeOptions) (*Chart, error) {
	return Decode(strings.NewReader(text), opts)
}

// DecodeBytes resolves the text encoding of raw and decodes it.
func DecodeBytes(raw []byte, opts DecodeOptions) (*Chart, error) {
	text, _, err := DecodeText(raw, opts.Encodings)
	if err != nil {
		return nil, &DecodeError{Op: "encoding", Err: err}
	}
	return DecodeString(text, opts)
}

// Assemble runs the timeline resolver and the note builder over everything
// the context has accumulated.
func (ctx *DecoderContext) Assemble(opts DecodeOptions) *Chart {
	events := slices.Clone(ctx.Events)
	slices.SortStableFunc(events, func(a, b RawEvent) bool {
		if a.Measure != b.Measure {
			return a.Measure < b.Measure
		}
		return a.Position < b.Position
	})

	tl := resolveTimeline(ctx, events, opts.Timing)

	chart := NewChart()
	chart.Metadata = ctx.Metadata
	chart.TimingPoints = tl.TimingPoints()
	chart.Notes = buildNotes(ctx, events, tl)
	chart.BackgroundSamples, chart.BackgroundImages = backgroundEvents(ctx, events, tl)
	for k, v := range ctx.Samples {
		chart.Samples[k] = v
	}
	for k, v := range ctx.Bitmaps {
		chart.Bitmaps[k] = v
	}

	chart.ColumnCount = opts.DefaultColumnCount
	if len(chart.Notes) > 0 {
		maxColumn := 0
		for _, n := range chart.Notes {
			if n.Column > maxColumn {
				maxColumn = n.Column
			}
			if n.Scratch {
				chart.HasScratch = true
			}
			if n.IsHold() {
				chart.HasLongNotes = true
			}
		}
		chart.ColumnCount = maxColumn + 1
	}
	return chart
}
