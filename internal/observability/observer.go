package observability

import (
	"github.com/danmuck/serial9/internal/codec"
	"github.com/rs/zerolog"
)

// CodecObserver logs codec events and records them as metrics under node.
func CodecObserver(logger zerolog.Logger, node string) codec.Observer {
	return codec.ObserverFunc(func(e codec.Event) {
		switch e.Kind {
		case codec.EventTx:
			RecordCodecBytes(node, "tx", e.Bytes)
			logger.Trace().Str("codec", e.CodecID).Int("mode", e.Mode).Int("bytes", e.Bytes).Msg("codec.tx")
		case codec.EventRx:
			RecordCodecBytes(node, "rx", e.Bytes)
			RecordCodecValues(node, e.Values)
			if e.Bytes > 0 {
				logger.Trace().Str("codec", e.CodecID).Int("bytes", e.Bytes).Int("values", e.Values).
					Stringer("state", e.State).Msg("codec.rx")
			}
		case codec.EventFallbackWrite:
			RecordCodecFallback(node, "write")
			logger.Debug().Str("codec", e.CodecID).Int("mode", e.Mode).Int("bytes", e.Bytes).Err(e.Err).
				Msg("codec.tx parked in fallback buffer")
		case codec.EventFallbackRead:
			RecordCodecFallback(node, "read")
			logger.Debug().Str("codec", e.CodecID).Int("bytes", e.Bytes).Err(e.Err).
				Msg("codec.rx drained fallback buffer")
		case codec.EventIllegalEscape:
			RecordCodecFault(node, string(e.Kind))
			logger.Debug().Str("codec", e.CodecID).Hex("byte", []byte{e.Byte}).Msg("codec.rx dropped illegal escape")
		case codec.EventCorruptState:
			RecordCodecFault(node, string(e.Kind))
			logger.Error().Str("codec", e.CodecID).Uint8("state", uint8(e.State)).Hex("byte", []byte{e.Byte}).
				Msg("codec.rx unhandled state")
		case codec.EventReset:
			logger.Info().Str("codec", e.CodecID).Msg("codec.reset receive state")
		case codec.EventBaud:
			RecordCodecBaud(node, e.Rate.String())
			logger.Info().Str("codec", e.CodecID).Stringer("rate", e.Rate).Msg("codec.baud requested")
		}
	})
}
