package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStoredAndUpstreamFailure(t *testing.T) {
	beforeOK := testutil.ToFloat64(PicturesFetchedTotal.WithLabelValues("cat"))
	beforeFail := testutil.ToFloat64(UpstreamFailuresTotal.WithLabelValues("cat"))

	ObserveFetch("cat", 0.2)
	RecordStored("cat")
	ObserveFetch("cat", 0.1)
	RecordUpstreamFailure("cat")

	if got := testutil.ToFloat64(PicturesFetchedTotal.WithLabelValues("cat")); got != beforeOK+1 {
		t.Errorf("expected fetched counter %v, got %v", beforeOK+1, got)
	}
	if got := testutil.ToFloat64(UpstreamFailuresTotal.WithLabelValues("cat")); got != beforeFail+1 {
		t.Errorf("expected failure counter %v, got %v", beforeFail+1, got)
	}
}

func TestRecordClear(t *testing.T) {
	before := testutil.ToFloat64(PicturesClearedTotal)
	RecordClear(3)
	if got := testutil.ToFloat64(PicturesClearedTotal); got != before+3 {
		t.Errorf("expected cleared counter %v, got %v", before+3, got)
	}
}
