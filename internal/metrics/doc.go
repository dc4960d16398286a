// Package metrics records docprep run metrics.
//
// Components receive a Recorder and never nil-check it: NoopRecorder is the
// default and the Prometheus implementation is swapped in when
// metrics.enabled is set (watch mode serves it over HTTP).
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	extractor := extract.New(extract.Options{Recorder: recorder})
package metrics
