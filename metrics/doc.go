/*
Package metrics implements collection of the routing and serving metrics
with the Prometheus client library:

https://github.com/prometheus/client_golang

The collected metrics include the duration of the path resolution, the
number of paths that did not resolve to a model, the number of requests
rejected because of invalid query parameters, and the duration of serving
a request, labeled by application, view, method and status code.

When enabled, the metrics are exposed on the support listener, under the
/metrics path, in the Prometheus text format. Go runtime and process
metrics can be added with Options.EnableRuntimeMetrics.
*/
package metrics
