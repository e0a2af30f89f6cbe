package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	panicTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_panic_recovered_total",
			Help: "Total panics recovered by the HTTP recovery filter",
		},
	)

	// 结算接口绝大多数落在 100ms 以内，桶粒度偏向低延迟段
	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in ms",
			Buckets: []float64{2, 5, 10, 25, 50, 100, 250, 500, 1000, 3000},
		},
		[]string{"path", "method"},
	)
)

// HTTPMetricsFilter 在进入处理器前记录起始时间
func HTTPMetricsFilter(ctx *context.Context) {
	ctx.Input.SetData("_metrics_start", time.Now())
}

// HTTPMetricsAfter 在响应完成后记录耗时与状态码
func HTTPMetricsAfter(ctx *context.Context) {
	v := ctx.Input.GetData("_metrics_start")
	start, _ := v.(time.Time)
	if start.IsZero() {
		return
	}

	path := metricPath(ctx.Input.URL())
	if path == "" {
		return
	}
	method := ctx.Input.Method()
	status := strconv.Itoa(ctx.ResponseWriter.Status)

	dur := float64(time.Since(start).Milliseconds())
	httpReqDuration.WithLabelValues(path, method).Observe(dur)
	httpReqTotal.WithLabelValues(path, method, status).Inc()
}

// RecordPanic 统计 Recovery 过滤器捕获的 panic
func RecordPanic() {
	panicTotal.Inc()
}

// metricPath 归一化路径标签：抓取端点自身不计入，局ID等路径参数折叠，
// 避免标签基数随局数膨胀
func metricPath(url string) string {
	if url == "/metrics" {
		return ""
	}
	if strings.HasPrefix(url, "/api/round/") {
		return "/api/round/:round_id"
	}
	return url
}
