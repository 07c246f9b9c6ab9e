package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/credits-api/internal/metrics"
)

// Metrics records request count, latency and in-flight requests. The route
// label is the registered path pattern, so ids do not blow up cardinality.
func Metrics() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            done := metrics.RequestStarted()
            defer done()
            start := time.Now()

            err := next(c)
            if err != nil {
                c.Error(err)
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            metrics.ObserveRequest(c.Request().Method, route, c.Response().Status, time.Since(start))
            return nil
        }
    }
}

// RequestLogger writes one structured line per request.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req := c.Request()
            res := c.Response()
            entry := log.WithFields(logrus.Fields{
                "method":     req.Method,
                "path":       req.URL.Path,
                "status":     res.Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "request_id": res.Header().Get(echo.HeaderXRequestID),
                "caller":     subject(c),
                "remote_ip":  c.RealIP(),
            })
            switch {
            case res.Status >= 500:
                entry.Error("request failed")
            case res.Status >= 400:
                entry.Warn("request rejected")
            default:
                entry.Info("request served")
            }
            return nil
        }
    }
}
