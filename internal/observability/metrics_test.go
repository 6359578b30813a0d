package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/serial9/internal/codec"
	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/danmuck/serial9/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("bridge-a", "GET", "/health", 200, 12*time.Millisecond)
	RecordCodecBytes("bridge-a", "tx", 0)
	RecordCodecValues("bridge-a", -1)

	testlog.Logf("observability/metrics: registration idempotent and recording paths executed")
}

func TestCodecObserverRecordsEvents(t *testing.T) {
	testlog.Start(t)
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf).Level(zerolog.DebugLevel)
	node := "observer-test"
	obs := CodecObserver(logger, node)

	c := codec.New(nil, codec.WithObserver(obs), codec.WithID("c1"))
	c.Tx8([]byte{0xff, 'a'})
	c.Rx()
	obs.Observe(codec.Event{Kind: codec.EventIllegalEscape, CodecID: "c1", Byte: 0x02})
	obs.Observe(codec.Event{Kind: codec.EventCorruptState, CodecID: "c1", State: serial9.State(9), Byte: 0x41})
	obs.Observe(codec.Event{Kind: codec.EventBaud, CodecID: "c1", Rate: serial9.Rate38400})
	obs.Observe(codec.Event{Kind: codec.EventTx, CodecID: "c1", Bytes: 4, Err: errors.New("unused")})

	if got := testutil.ToFloat64(codecFallback.WithLabelValues(node, "write")); got != 1 {
		t.Fatalf("fallback write=%v", got)
	}
	if got := testutil.ToFloat64(codecFallback.WithLabelValues(node, "read")); got != 1 {
		t.Fatalf("fallback read=%v", got)
	}
	if got := testutil.ToFloat64(codecBytes.WithLabelValues(node, "rx")); got != 3 {
		t.Fatalf("rx bytes=%v", got)
	}
	if got := testutil.ToFloat64(codecBytes.WithLabelValues(node, "tx")); got != 4 {
		t.Fatalf("tx bytes=%v", got)
	}
	if got := testutil.ToFloat64(codecValues.WithLabelValues(node)); got != 2 {
		t.Fatalf("values=%v", got)
	}
	if got := testutil.ToFloat64(codecFaults.WithLabelValues(node, "corrupt_state")); got != 1 {
		t.Fatalf("corrupt faults=%v", got)
	}
	if got := testutil.ToFloat64(codecBaud.WithLabelValues(node, "38400")); got != 1 {
		t.Fatalf("baud=%v", got)
	}
	if !strings.Contains(logBuf.String(), "codec.rx unhandled state") {
		t.Fatalf("missing corrupt state log: %s", logBuf.String())
	}
}
