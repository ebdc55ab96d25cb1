package problem_test

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalnine/autograde/internal/problem"
	"github.com/signalnine/autograde/internal/result"
)

func TestGenerateReportSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	p := buildSquare(t)
	_, err := p.GenerateReport(context.Background(), square, result.Metadata{TotalPoints: 20},
		problem.WithTracer(tp.Tracer("test")))
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}

	var root sdktrace.ReadOnlySpan
	runs := 0
	for _, s := range rec.Ended() {
		switch s.Name() {
		case "problem.GenerateReport":
			root = s
		case "engine.Run":
			runs++
		}
	}
	if root == nil {
		t.Fatal("no problem.GenerateReport span")
	}
	if runs != 2 {
		t.Errorf("got %d engine.Run spans, want 2", runs)
	}
	for _, s := range rec.Ended() {
		if s.Name() == "engine.Run" && s.Parent().SpanID() != root.SpanContext().SpanID() {
			t.Errorf("engine.Run span not parented by the report span")
		}
	}
}
