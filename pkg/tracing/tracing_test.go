package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useRecorder 安装内存Provider，测试结束后恢复
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	shutdown, err := InitTracer(context.Background(), Config{
		ServiceName: "bookshelf-test",
		Endpoint:    "localhost:4317",
		SampleRatio: 0.5,
		Insecure:    true,
	})
	require.NoError(t, err)
	assert.NotNil(t, shutdown)
}

func TestStartSpan_ChildSharesTrace(t *testing.T) {
	recorder := useRecorder(t)

	ctx, root := StartSpan(context.Background(), "bookimport", "import.run",
		attribute.String("job_id", "job-1"))
	_, child := StartSpan(ctx, "bookimport", "import.parse")
	child.End()
	root.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	parse, run := spans[0], spans[1]
	assert.Equal(t, "import.parse", parse.Name())
	assert.Equal(t, "import.run", run.Name())
	assert.Equal(t, run.SpanContext().TraceID(), parse.SpanContext().TraceID())
	assert.Equal(t, run.SpanContext().SpanID(), parse.Parent().SpanID())
	assert.Contains(t, run.Attributes(), attribute.String("job_id", "job-1"))
}

func TestEndSpan_RecordsError(t *testing.T) {
	recorder := useRecorder(t)

	_, ok := StartSpan(context.Background(), "bookimport", "import.enrich")
	EndSpan(ok, nil)

	_, failed := StartSpan(context.Background(), "bookimport", "import.write")
	EndSpan(failed, errors.New("deadlock detected"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "deadlock detected", spans[1].Status().Description)
	assert.Len(t, spans[1].Events(), 1, "错误应记录为Span事件")
}

func TestExtractTraceID(t *testing.T) {
	useRecorder(t)

	t.Run("有效Context", func(t *testing.T) {
		ctx, span := StartSpan(context.Background(), "bookimport", "import.run")
		defer span.End()

		assert.Len(t, ExtractTraceID(ctx), 32)
	})

	t.Run("无Span的Context", func(t *testing.T) {
		assert.Empty(t, ExtractTraceID(context.Background()))
	})
}
