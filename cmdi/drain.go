// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"github.com/rest-for-physics/minos-core/frame"
)

// Drain decodes one ring-buffer-filled data frame and routes it to
// whichever sink ServeTarget currently names: ServeNull drops it, ServePedHisto/ServeHitHisto feed
// the local accumulators one ADC_SAMPLE/hit-count item at a time, and
// ServeDAQ leaves buf untouched for the caller to forward to the
// latched DAQ socket (cmdi has no notion of sockets, so forwarding
// itself is the service loop's job).
//
// forward is buf when the caller should transmit it to the DAQ client,
// nil otherwise.
func (ctx *Context) Drain(buf []byte) (forward []byte, err error) {
	if ctx.ServeTarget == ServeDAQ {
		return buf, nil
	}
	if ctx.ServeTarget == ServeNull {
		return nil, nil
	}

	items, err := frame.Decode(buf)
	if err != nil {
		return nil, err
	}

	var chip, chanIx int
	for _, it := range items {
		switch it.Kind {
		case frame.KindCardChipChanHitIx, frame.KindCardChipChanHitCnt, frame.KindCardChipChanHisto:
			chip, chanIx = it.Chip, it.Chan
			if it.Kind == frame.KindCardChipChanHitIx && ctx.ServeTarget == ServeHitHisto {
				// each hit tag also advances the channel's S-curve at the
				// current shisto scan step
				ctx.SCurve.AddHit(it.Chip, it.Chan)
			}

		case frame.KindAdcSample:
			if ctx.ServeTarget == ServePedHisto {
				ctx.Pedestal.AddSample(chip, chanIx, int(it.Value))
			}

		case frame.KindHistoBinIx:
			if ctx.ServeTarget == ServeHitHisto {
				if err := ctx.HitCount.AddEvent(chip, int(it.Value)); err != nil {
					return nil, err
				}
			}
		}
	}

	return nil, nil
}
