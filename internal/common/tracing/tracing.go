package tracing

import (
	"fmt"
	"io"
	"net/http"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// InitTracer 初始化Jaeger Tracer
func InitTracer(serviceName, endpoint string, sampler float64) (opentracing.Tracer, io.Closer, error) {
	cfg := &jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: sampler,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           true,
			LocalAgentHostPort: endpoint,
		},
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaeger.StdLogger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init jaeger tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}

// StartSpanFromRequest 从 HTTP 请求头提取上游 span context 并创建 server span。
// 找不到上游 span 时创建根 span。
func StartSpanFromRequest(serviceName string, r *http.Request) opentracing.Span {
	tracer := opentracing.GlobalTracer()

	operation := r.Method + " " + r.URL.Path

	var span opentracing.Span
	if parent, err := tracer.Extract(
		opentracing.HTTPHeaders,
		opentracing.HTTPHeadersCarrier(r.Header),
	); err == nil {
		span = tracer.StartSpan(operation, ext.RPCServerOption(parent))
	} else {
		span = tracer.StartSpan(operation)
	}

	ext.SpanKindRPCServer.Set(span)
	ext.Component.Set(span, "http")
	ext.HTTPMethod.Set(span, r.Method)
	ext.HTTPUrl.Set(span, r.URL.String())
	if serviceName != "" {
		span.SetTag("service", serviceName)
	}
	return span
}
