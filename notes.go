package bmschart

import (
	"golang.org/x/exp/slices"
)

type noteBuilder struct {
	ctx *DecoderContext
	tl  *timeline

	notes   []Note
	pending map[int]RawEvent // long note start per column
	lastTap map[int]int      // index into notes of the latest tap per column, for LNOBJ
}

// buildNotes turns the sorted events into notes. A long note start that is
// never closed is dropped.
func buildNotes(ctx *DecoderContext, events []RawEvent, tl *timeline) []Note {
	b := &noteBuilder{
		ctx:     ctx,
		tl:      tl,
		notes:   make([]Note, 0),
		pending: map[int]RawEvent{},
		lastTap: map[int]int{},
	}
	for _, e := range events {
		column, ok := ColumnOf(e.Channel)
		if !ok {
			continue
		}
		if IsLongNoteChannel(e.Channel) {
			b.long(column, e)
		} else {
			b.tap(column, e)
		}
	}

	slices.SortStableFunc(b.notes, func(x, y Note) bool {
		if x.Time != y.Time {
			return x.Time < y.Time
		}
		return x.Column < y.Column
	})
	return b.notes
}

func (b *noteBuilder) tap(column int, e RawEvent) {
	if lnobj := b.ctx.Metadata.LNObj; lnobj != "" && e.Code == lnobj {
		b.closeTap(column, e)
		return
	}
	b.lastTap[column] = len(b.notes)
	b.notes = append(b.notes, Note{
		Column:  column,
		Time:    b.tl.timeAt(e.Measure, e.Position),
		Kind:    NoteTap,
		Scratch: IsScratchChannel(e.Channel),
		Samples: b.samples(e.Code),
	})
}

// closeTap turns the latest tap of the column into a hold ending at e.
func (b *noteBuilder) closeTap(column int, e RawEvent) {
	i, ok := b.lastTap[column]
	if !ok {
		return
	}
	delete(b.lastTap, column)
	end := b.tl.timeAt(e.Measure, e.Position)
	if d := end - b.notes[i].Time; d > 0 {
		b.notes[i].Kind = NoteHold
		b.notes[i].Duration = d
	}
}

func (b *noteBuilder) long(column int, e RawEvent) {
	start, ok := b.pending[column]
	if !ok {
		b.pending[column] = e
		return
	}
	delete(b.pending, column)

	startTime := b.tl.timeAt(start.Measure, start.Position)
	n := Note{
		Column:  column,
		Time:    startTime,
		Kind:    NoteHold,
		Scratch: IsScratchChannel(start.Channel),
		Samples: b.samples(start.Code),
	}
	n.Duration = b.tl.timeAt(e.Measure, e.Position) - startTime
	if n.Duration <= 0 {
		n.Kind = NoteTap
		n.Duration = 0
	}
	b.notes = append(b.notes, n)
}

func (b *noteBuilder) samples(code string) []SampleRef {
	file, ok := b.ctx.Samples[code]
	if !ok {
		return nil
	}
	return []SampleRef{{Index: code, File: file}}
}

// backgroundEvents resolves BGM and BGA channel objects.
func backgroundEvents(ctx *DecoderContext, events []RawEvent, tl *timeline) ([]SampleEvent, []BitmapEvent) {
	samples := make([]SampleEvent, 0)
	images := make([]BitmapEvent, 0)
	for _, e := range events {
		switch e.Channel {
		case ChannelBGM:
			file, ok := ctx.Samples[e.Code]
			if !ok {
				continue
			}
			samples = append(samples, SampleEvent{
				Time:   tl.timeAt(e.Measure, e.Position),
				Sample: SampleRef{Index: e.Code, File: file},
			})
		case ChannelBGABase, ChannelBGAPoor, ChannelBGALayer:
			file, ok := ctx.Bitmaps[e.Code]
			if !ok {
				continue
			}
			images = append(images, BitmapEvent{
				Time:  tl.timeAt(e.Measure, e.Position),
				Layer: bgaLayer(e.Channel),
				Index: e.Code,
				File:  file,
			})
		}
	}
	return samples, images
}

func bgaLayer(channel int) BGALayer {
	switch channel {
	case ChannelBGAPoor:
		return BGAPoor
	case ChannelBGALayer:
		return BGALayer1
	}
	return BGABase
}
